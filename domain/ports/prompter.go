package ports

import "github.com/Bind-Forward/port/domain/entities"

// Prompter asks a person for input values.
type Prompter interface {
	// IsInteractive returns true if running in an interactive terminal.
	IsInteractive() bool

	// PromptForInput asks for the value of one declared input.
	PromptForInput(spec entities.InputSpec) (any, error)

	// FormatNonInteractiveError creates a helpful error when inputs are
	// missing and no terminal is attached.
	FormatNonInteractiveError(missing []string) error
}
