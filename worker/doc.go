// Package worker implements the worker side of the model execution
// protocol. A Runtime serves one session per channel: it accepts exactly one
// Init, loads the model it describes, reports the loaded status and then
// answers every Call with exactly one Result or Error carrying the call's id.
//
// Calls that arrive while the model is loading are queued and run in arrival
// order once it is ready. Calls may carry a timeout and may be cancelled.
// Up to a configurable number of calls run at once, so replies are not
// guaranteed to arrive in request order.
package worker
