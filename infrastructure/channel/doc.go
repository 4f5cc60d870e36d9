// Package channel provides ports.Channel transports between a host and a
// worker: an in-memory pipe for in-process workers, newline-delimited
// streams for stdio workers, spawned worker processes and websockets.
package channel
