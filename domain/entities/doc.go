// Package entities provides the core domain types of the model execution
// protocol: the schema document, the model descriptor sent in Init, call
// payloads, protocol messages, lifecycle states and outcomes.
// These types carry no behavior beyond normalization and encoding.
package entities
