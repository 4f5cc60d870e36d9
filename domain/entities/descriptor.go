package entities

import "strings"

// ModelKind selects the load procedure the worker uses for a model.
type ModelKind string

const (
	// KindFunction resolves a named callable from the loaded source.
	KindFunction ModelKind = "function"

	// KindClass constructs one instance of a named class and binds a method.
	KindClass ModelKind = "class"

	// KindAsyncInit calls a named factory once with no arguments; its
	// eventual result becomes the model.
	KindAsyncInit ModelKind = "async-init-function"

	// KindForeignScript re-executes a whole script per call in a shared
	// global namespace and returns its final expression value.
	KindForeignScript ModelKind = "foreign-script"
)

// ParseModelKind maps a kind name, including the short aliases used by older
// schema documents, onto a ModelKind. Unknown names are returned unchanged so
// validation can report them.
func ParseModelKind(s string) ModelKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "function", "async-function":
		return KindFunction
	case "class":
		return KindClass
	case "async-init-function", "async-init":
		return KindAsyncInit
	case "foreign-script", "py", "script":
		return KindForeignScript
	default:
		return ModelKind(s)
	}
}

// ArgumentStyle decides how a call payload is handed to the model.
type ArgumentStyle string

const (
	// ArgsPositional spreads an ordered value list as positional arguments.
	ArgsPositional ArgumentStyle = "positional"

	// ArgsSingleObject passes a name→value mapping as the single argument.
	ArgsSingleObject ArgumentStyle = "single-object"
)

// ModelRuntime names the engine that evaluates model source.
type ModelRuntime string

const (
	RuntimeStarlark ModelRuntime = "starlark"
	RuntimeWasm     ModelRuntime = "wasm"
	RuntimeNative   ModelRuntime = "native"
)

// DefaultInvocationMethod is the method bound for class models when the
// descriptor names none.
const DefaultInvocationMethod = "predict"

// ModelDescriptor describes how to obtain a callable model. It is sent to the
// worker in the Init message and is immutable afterwards.
type ModelDescriptor struct {
	// Kind selects the load procedure.
	Kind ModelKind `json:"kind" yaml:"kind" validate:"required,oneof=function class async-init-function foreign-script"`

	// Runtime selects the engine. Empty means starlark.
	Runtime ModelRuntime `json:"runtime,omitempty" yaml:"runtime,omitempty" validate:"omitempty,oneof=starlark wasm native"`

	// SourceLocation is a URL or file path the source is fetched from.
	SourceLocation string `json:"sourceLocation,omitempty" yaml:"sourceLocation,omitempty"`

	// InlineSource is the model source text itself.
	InlineSource string `json:"inlineSource,omitempty" yaml:"inlineSource,omitempty"`

	// EntryName names the function, class or factory to resolve.
	EntryName string `json:"entryName,omitempty" yaml:"entryName,omitempty"`

	// InvocationMethod is the method bound on class instances.
	InvocationMethod string `json:"invocationMethod,omitempty" yaml:"invocationMethod,omitempty"`

	ArgumentStyle ArgumentStyle `json:"argumentStyle,omitempty" yaml:"argumentStyle,omitempty" validate:"omitempty,oneof=positional single-object"`

	// Isolation is read only by the host: true runs the model in a worker.
	Isolation bool `json:"isolation" yaml:"isolation"`
}

// Normalized returns a copy with defaults applied: starlark runtime,
// single-object arguments and the conventional class method.
func (d ModelDescriptor) Normalized() ModelDescriptor {
	d.Kind = ParseModelKind(string(d.Kind))
	if d.Runtime == "" {
		d.Runtime = RuntimeStarlark
	}
	if d.ArgumentStyle == "" {
		d.ArgumentStyle = ArgsSingleObject
	}
	if d.Kind == KindClass && d.InvocationMethod == "" {
		d.InvocationMethod = DefaultInvocationMethod
	}
	return d
}

// HasSource reports whether the descriptor carries inline source or a location.
func (d ModelDescriptor) HasSource() bool {
	return d.SourceLocation != "" || d.InlineSource != ""
}

// Label is a short human readable identifier used in logs and errors.
func (d ModelDescriptor) Label() string {
	switch {
	case d.EntryName != "":
		return string(d.Kind) + ":" + d.EntryName
	case d.SourceLocation != "":
		return string(d.Kind) + ":" + d.SourceLocation
	default:
		return string(d.Kind) + ":<inline>"
	}
}
