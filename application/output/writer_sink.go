package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/Bind-Forward/port/domain/entities"
	"github.com/Bind-Forward/port/domain/ports"
)

// WriterSink renders results as text on a writer. File and SVG outputs are
// printed under a header naming the file instead of being saved.
type WriterSink struct {
	w  io.Writer
	mu sync.Mutex
}

var _ ports.OutputSink = (*WriterSink)(nil)

// NewWriterSink creates a WriterSink.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Render implements ports.OutputSink.
func (s *WriterSink) Render(_ context.Context, value any, out entities.OutputSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch out.Type {
	case TypeFile, TypeSVG:
		name := out.Filename
		if name == "" {
			name = "output"
			if out.Type == TypeSVG {
				name = "code.svg"
			}
		}
		_, err := fmt.Fprintf(s.w, "--- %s ---\n%s\n", name, stringify(value))
		return err

	case TypeJSON:
		b, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to render %s: %w", label(out), err)
		}
		_, err = fmt.Fprintf(s.w, "%s%s\n", prefix(out), b)
		return err

	default:
		_, err := fmt.Fprintf(s.w, "%s%s\n", prefix(out), stringify(value))
		return err
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return "null"
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

func prefix(out entities.OutputSpec) string {
	if out.Name == "" {
		return ""
	}
	return out.Name + ": "
}

func label(out entities.OutputSpec) string {
	if out.Name == "" {
		return "output"
	}
	return out.Name
}
