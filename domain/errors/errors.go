// Package errors provides the domain error taxonomy of the model execution
// protocol. All error types support errors.As and errors.Is and convert
// themselves to a structured ErrorDetail for the wire.
package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/Bind-Forward/port/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// DetailedError is implemented by errors that can describe themselves as an
// ErrorDetail. New error types only need to implement it.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to a structured ErrorDetail.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	switch {
	case stdErrors.Is(err, context.DeadlineExceeded):
		return &entities.ErrorDetail{Message: err.Error(), Type: entities.ErrorTypeTimeout, IsTimeout: true}
	case stdErrors.Is(err, context.Canceled):
		return &entities.ErrorDetail{Message: err.Error(), Type: entities.ErrorTypeCanceled}
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    entities.ErrorTypeInternal,
	}
}

// FromDetail turns a received ErrorDetail back into an error value.
func FromDetail(d *entities.ErrorDetail) error {
	if d == nil {
		return nil
	}
	return d
}

// LoadError means the model source was unreachable or could not be parsed,
// or the interpreter never became available.
type LoadError struct {
	Err    error
	Source string
}

func (e *LoadError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("failed to load model from %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("failed to load model: %v", e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *LoadError) ToErrorDetail() *entities.ErrorDetail {
	d := &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeLoad, Code: e.Source}
	var inner DetailedError
	if stdErrors.As(e.Err, &inner) {
		d.Wrapped = inner.ToErrorDetail()
	}
	return d
}

// ResolutionError means the named entry was not found after loading.
type ResolutionError struct {
	Name      string
	Available []string
	// Reason replaces "not found" when the entry exists but cannot be used.
	Reason string
}

func (e *ResolutionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("entry %q %s", e.Name, e.Reason)
	}
	if len(e.Available) > 0 {
		return fmt.Sprintf("entry %q not found (available: %v)", e.Name, e.Available)
	}
	return fmt.Sprintf("entry %q not found", e.Name)
}

// ToErrorDetail implements DetailedError.
func (e *ResolutionError) ToErrorDetail() *entities.ErrorDetail {
	d := &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeResolution, Code: e.Name}
	if len(e.Available) > 0 {
		d.Details = map[string]any{"available": e.Available}
	}
	return d
}

// InvocationError means the model failed while handling a call.
type InvocationError struct {
	Err   error
	Entry string
	Stack string
}

func (e *InvocationError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("model %s failed: %v", e.Entry, e.Err)
	}
	return fmt.Sprintf("model failed: %v", e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *InvocationError) ToErrorDetail() *entities.ErrorDetail {
	d := &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeInvocation, Code: e.Entry}
	if e.Stack != "" {
		d.Details = map[string]any{"stack": e.Stack}
	}
	return d
}

// ProtocolAmbiguityError reports a reply whose shape matches both a status
// event and a result in the untagged dialect.
type ProtocolAmbiguityError struct {
	Value any
}

func (e *ProtocolAmbiguityError) Error() string {
	return fmt.Sprintf("untagged reply %v is indistinguishable from a status event", e.Value)
}

// ToErrorDetail implements DetailedError.
func (e *ProtocolAmbiguityError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeAmbiguity}
}

// ProtocolError reports a message that violates the protocol, such as a
// second Init or an undecodable frame.
type ProtocolError struct {
	Err  error
	Code string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ProtocolError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeProtocol, Code: e.Code}
}

// FetchError reports a failed retrieval of a remote or local resource.
type FetchError struct {
	Err        error
	Location   string
	StatusCode int
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.Location, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.Location, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *FetchError) ToErrorDetail() *entities.ErrorDetail {
	d := &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeFetch, Code: e.Location}
	if e.StatusCode != 0 {
		d.Details = map[string]any{"status_code": e.StatusCode}
	}
	return d
}

// TimeoutError represents a timeout during an operation.
type TimeoutError struct {
	Operation string
	Target    string
	Duration  time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s timeout after %v (target: %s)", e.Operation, e.Duration, e.Target)
	}
	return fmt.Sprintf("%s timeout after %v", e.Operation, e.Duration)
}

func (e *TimeoutError) Timeout() bool {
	return true
}

// ToErrorDetail implements DetailedError.
func (e *TimeoutError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeTimeout, Code: e.Operation, IsTimeout: true}
}

// CanceledError reports a call aborted by the host.
type CanceledError struct {
	ID uint64
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("call %d canceled", e.ID)
}

// ToErrorDetail implements DetailedError.
func (e *CanceledError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeCanceled}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeConfig, Code: e.Field}
}

// PanicError wraps a value recovered from a panicking model.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// ToErrorDetail implements DetailedError.
func (e *PanicError) ToErrorDetail() *entities.ErrorDetail {
	d := &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypePanic}
	if len(e.Stack) > 0 {
		d.Details = map[string]any{"stack": string(e.Stack)}
	}
	return d
}
