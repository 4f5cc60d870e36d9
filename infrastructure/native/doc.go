// Package native serves models implemented in Go.
//
// Models are registered by name in an immutable Registry: plain functions,
// class constructors whose methods are bound by name, and factories that
// produce a model asynchronously. An Engine maps namespace names, used as the
// model source text, to registries.
//
//	reg, err := native.NewRegistry(
//	    native.WithMiddleware(native.PanicRecoveryMiddleware()),
//	    native.WithFunc("add", func(ctx context.Context, a, b int64) (int64, error) {
//	        return a + b, nil
//	    }),
//	)
//	engine := native.NewEngine(native.WithNamespace("demo", reg))
package native
