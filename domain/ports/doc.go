// Package ports defines the interfaces between the protocol core and its
// collaborators: transports, engines, interpreters, fetchers, input sources
// and output sinks. Infrastructure adapters implement these interfaces.
package ports
