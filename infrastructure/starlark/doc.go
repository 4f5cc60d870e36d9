// Package starlark runs models written in Starlark.
//
// Engine loads a source file once and exposes its top-level definitions as
// an explicit export registry: functions, class-like constructors whose
// result carries methods as attributes, and factories that produce a model.
//
// Interpreter runs whole scripts repeatedly in a persistent Environment, the
// way foreign-script models work: every run sees the globals left by the
// previous one and the value of the final expression statement is the result.
//
//	interp := starlark.NewInterpreter()
//	<-interp.Ready()
//	env, _ := interp.NewEnvironment()
//	_ = env.SetGlobal("a", 1)
//	v, err := interp.Run(ctx, env, "model.star", []byte("a + 1"))
package starlark
