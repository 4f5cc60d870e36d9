package entities

// Schema is the declarative document a port is built from: one model, the
// inputs feeding it and the outputs its results are routed to.
type Schema struct {
	Design  *Design      `json:"design,omitempty" yaml:"design,omitempty"`
	Model   ModelSpec    `json:"model" yaml:"model"`
	Inputs  []InputSpec  `json:"inputs,omitempty" yaml:"inputs,omitempty" validate:"dive"`
	Outputs []OutputSpec `json:"outputs,omitempty" yaml:"outputs,omitempty" validate:"dive"`
}

// ModelSpec is the model section of a schema document.
type ModelSpec struct {
	// Worker requests isolation. Nil means true.
	Worker *bool `json:"worker,omitempty" yaml:"worker,omitempty"`

	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Type is the model kind; short aliases such as "py" are accepted.
	Type string `json:"type" yaml:"type" validate:"required"`

	Runtime string `json:"runtime,omitempty" yaml:"runtime,omitempty"`

	// URL locates the source. Relative URLs resolve against the schema URL.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Code is inline source.
	Code string `json:"code,omitempty" yaml:"code,omitempty"`

	// Name is the entry (function, class or factory) to resolve.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	Method string `json:"method,omitempty" yaml:"method,omitempty"`

	// Container is "args" for positional arguments; anything else passes one object.
	Container string `json:"container,omitempty" yaml:"container,omitempty"`

	Autorun bool `json:"autorun,omitempty" yaml:"autorun,omitempty"`
}

// InputType lists the input widgets a schema may declare.
type InputType string

const (
	InputInt         InputType = "int"
	InputFloat       InputType = "float"
	InputString      InputType = "string"
	InputCheckbox    InputType = "checkbox"
	InputRange       InputType = "range"
	InputText        InputType = "text"
	InputSelect      InputType = "select"
	InputCategorical InputType = "categorical"
	InputFile        InputType = "file"
	InputImage       InputType = "image"
)

// InputSpec declares one model input.
type InputSpec struct {
	Default     any       `json:"default,omitempty" yaml:"default,omitempty"`
	Min         *float64  `json:"min,omitempty" yaml:"min,omitempty"`
	Max         *float64  `json:"max,omitempty" yaml:"max,omitempty"`
	Step        *float64  `json:"step,omitempty" yaml:"step,omitempty"`
	Name        string    `json:"name" yaml:"name" validate:"required"`
	Type        InputType `json:"type,omitempty" yaml:"type,omitempty" validate:"omitempty,oneof=int float string checkbox range text select categorical file image"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Options     []string  `json:"options,omitempty" yaml:"options,omitempty"`

	// Reactive triggers a run whenever the input changes.
	Reactive bool `json:"reactive,omitempty" yaml:"reactive,omitempty"`
}

// OutputSpec declares one model output.
type OutputSpec struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Filename string `json:"filename,omitempty" yaml:"filename,omitempty"`
}

// Design carries presentation hints that the core passes through untouched.
type Design struct {
	Layout string `json:"layout,omitempty" yaml:"layout,omitempty"`
}

// Isolated reports whether the model should run in a worker.
func (m ModelSpec) Isolated() bool {
	return m.Worker == nil || *m.Worker
}

// Normalize fills defaults in place: worker isolation is on unless the
// document turns it off, and class models get the conventional method.
func (s *Schema) Normalize() {
	if s.Model.Worker == nil {
		on := true
		s.Model.Worker = &on
	}
	if ParseModelKind(s.Model.Type) == KindClass && s.Model.Method == "" {
		s.Model.Method = DefaultInvocationMethod
	}
}

// Descriptor derives the Init descriptor for the schema's model.
func (s *Schema) Descriptor() ModelDescriptor {
	style := ArgsSingleObject
	if s.Model.Container == "args" {
		style = ArgsPositional
	}
	d := ModelDescriptor{
		Kind:             ParseModelKind(s.Model.Type),
		Runtime:          ModelRuntime(s.Model.Runtime),
		SourceLocation:   s.Model.URL,
		InlineSource:     s.Model.Code,
		EntryName:        s.Model.Name,
		InvocationMethod: s.Model.Method,
		ArgumentStyle:    style,
		Isolation:        s.Model.Isolated(),
	}
	// Inline code wins over a location, matching the fetch-then-inline flow.
	if d.InlineSource != "" {
		d.SourceLocation = ""
	}
	return d.Normalized()
}

// InputNames returns the declared input names in order.
func (s *Schema) InputNames() []string {
	names := make([]string, 0, len(s.Inputs))
	for _, in := range s.Inputs {
		names = append(names, in.Name)
	}
	return names
}

// Input looks up a declared input by name.
func (s *Schema) Input(name string) (InputSpec, bool) {
	for _, in := range s.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return InputSpec{}, false
}
