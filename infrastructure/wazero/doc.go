// Package wazero runs WebAssembly models on the wazero runtime.
//
// A wasm model is a function export. Two calling conventions are accepted:
//
//   - Numeric: every parameter and result is an i32, i64, f32 or f64.
//     Arguments are passed positionally on the stack.
//   - JSON: the export has the signature (ptr i32, len i32) -> i64 and the
//     module exports "allocate". The host writes the JSON array of
//     arguments into guest memory and reads the JSON result named by the
//     returned packed pointer and length.
//
// Every module may import "port_host" "log_message" (param i64) to send a
// JSON {"level", "message"} record, named by a packed pointer and length,
// to the host logger.
//
// # Basic Usage
//
//	engine, err := wazero.NewEngine(ctx, wazero.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer engine.Close(ctx)
//
//	mod, err := engine.Load(ctx, "model.wasm", wasmBytes)
//	add, err := mod.Function("add")
//	sum, err := add(ctx, int64(3), int64(4))
package wazero
