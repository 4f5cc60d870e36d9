package entities

import "fmt"

// Error types carried in ErrorDetail.Type.
const (
	ErrorTypeLoad       = "load"
	ErrorTypeResolution = "resolution"
	ErrorTypeInvocation = "invocation"
	ErrorTypeAmbiguity  = "ambiguity"
	ErrorTypeProtocol   = "protocol"
	ErrorTypeFetch      = "fetch"
	ErrorTypeTimeout    = "timeout"
	ErrorTypeCanceled   = "canceled"
	ErrorTypeConfig     = "config"
	ErrorTypePanic      = "panic"
	ErrorTypeInternal   = "internal"
)

// ErrorDetail is the structured failure reason that crosses the host/worker
// boundary in error replies.
type ErrorDetail struct {
	// Wrapped is the cause, when it was itself structured.
	Wrapped *ErrorDetail `json:"wrapped,omitempty"`

	Details map[string]any `json:"details,omitempty"`

	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`

	IsTimeout bool `json:"is_timeout,omitempty"`
}

// Error implements the error interface.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != ErrorTypeInternal {
		msg = fmt.Sprintf("%s: %s", e.Type, msg)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	if e.Wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Wrapped.Error())
	}
	return msg
}

// NewErrorDetail creates an ErrorDetail with the given type and message.
func NewErrorDetail(errorType, message string) *ErrorDetail {
	return &ErrorDetail{
		Type:    errorType,
		Message: message,
	}
}

// WithDetails attaches details and returns the receiver.
func (e *ErrorDetail) WithDetails(details map[string]any) *ErrorDetail {
	e.Details = details
	return e
}

// WithCode attaches a machine-readable code and returns the receiver.
func (e *ErrorDetail) WithCode(code string) *ErrorDetail {
	e.Code = code
	return e
}
