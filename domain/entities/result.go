package entities

import (
	"time"
)

// OutcomeStatus is the terminal status of one call.
type OutcomeStatus string

const (
	// OutcomeSuccess means the model returned a value.
	OutcomeSuccess OutcomeStatus = "success"

	// OutcomeFailure means loading, resolution or invocation failed.
	OutcomeFailure OutcomeStatus = "failure"
)

// Outcome is the explicit success(value) | failure(reason) result that
// travels across every asynchronous boundary between a call and its reply.
type Outcome struct {
	Value  any           `json:"value,omitempty"`
	Error  *ErrorDetail  `json:"error,omitempty"`
	Timing *CallTiming   `json:"timing,omitempty"`
	Status OutcomeStatus `json:"status"`
}

// CallTiming records when a call ran.
type CallTiming struct {
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Duration time.Duration `json:"duration"`
}

// NewCallTiming builds timing from start and end instants.
func NewCallTiming(start, end time.Time) *CallTiming {
	return &CallTiming{Start: start, End: end, Duration: end.Sub(start)}
}

// Success wraps a model value.
func Success(v any) Outcome {
	return Outcome{Status: OutcomeSuccess, Value: v}
}

// Failure wraps a failure reason.
func Failure(e *ErrorDetail) Outcome {
	return Outcome{Status: OutcomeFailure, Error: e}
}

// WithTiming returns a copy with timing attached.
func (o Outcome) WithTiming(t *CallTiming) Outcome {
	o.Timing = t
	return o
}

// IsSuccess reports whether the outcome carries a value.
func (o Outcome) IsSuccess() bool {
	return o.Status == OutcomeSuccess
}

// IsFailure reports whether the outcome carries a reason.
func (o Outcome) IsFailure() bool {
	return o.Status == OutcomeFailure
}

// Reply converts the outcome into the terminal protocol message for call id.
func (o Outcome) Reply(id uint64) Message {
	if o.IsFailure() {
		return ErrorMessage(id, o.Error)
	}
	return ResultMessage(id, o.Value)
}
