// Package host drives a model from the host side of the execution protocol.
//
// A Controller owns one schema. It loads the schema document, sends the
// model descriptor to a worker in a single Init, reads bound input sources
// into Calls and routes every reply: status events move the controller to
// Ready, results go to the output dispatcher and errors to the error
// handler. Workers run in process behind a memory pipe by default; Process
// and WebSocket dialers reach workers in a child process or on another
// machine. Models whose schema turns isolation off are loaded in the host
// process through the same loader the worker uses.
package host
