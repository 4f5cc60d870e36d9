package entities

// MessageKind tags every protocol message.
type MessageKind string

const (
	// Host → worker.
	MessageInit   MessageKind = "init"
	MessageCall   MessageKind = "call"
	MessageCancel MessageKind = "cancel"

	// Worker → host.
	MessageStatus MessageKind = "status"
	MessageResult MessageKind = "result"
	MessageError  MessageKind = "error"
	MessageLog    MessageKind = "log"
)

// Status values carried by status messages.
type Status string

// StatusLoaded signals the model is ready to accept calls.
const StatusLoaded Status = "loaded"

// Dialect identifies the framing a peer speaks.
type Dialect int

const (
	// DialectTagged carries an explicit kind and a correlation id.
	DialectTagged Dialect = iota

	// DialectLegacy is the untagged structural shape: bare descriptors,
	// bare payloads and bare results.
	DialectLegacy
)

// Message is one protocol frame. Which fields are set depends on Kind.
type Message struct {
	Model     *ModelDescriptor `json:"model,omitempty"`
	Payload   *CallPayload     `json:"payload,omitempty"`
	Value     any              `json:"value,omitempty"`
	Error     *ErrorDetail     `json:"error,omitempty"`
	Log       *LogRecord       `json:"log,omitempty"`
	Kind      MessageKind      `json:"kind"`
	Status    Status           `json:"status,omitempty"`
	ID        uint64           `json:"id,omitempty"`
	TimeoutMs int64            `json:"timeout_ms,omitempty"`

	// Dialect is set by the decoder and is never encoded.
	Dialect Dialect `json:"-"`
}

// LogRecord is a log entry forwarded from the worker to the host.
type LogRecord struct {
	Attrs   map[string]any `json:"attrs,omitempty"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
}

// InitMessage builds a tagged Init.
func InitMessage(id uint64, d ModelDescriptor) Message {
	return Message{Kind: MessageInit, ID: id, Model: &d}
}

// CallMessage builds a tagged Call.
func CallMessage(id uint64, p CallPayload) Message {
	return Message{Kind: MessageCall, ID: id, Payload: &p}
}

// CancelMessage asks the worker to abort call id.
func CancelMessage(id uint64) Message {
	return Message{Kind: MessageCancel, ID: id}
}

// StatusMessage builds a status reply.
func StatusMessage(id uint64, s Status) Message {
	return Message{Kind: MessageStatus, ID: id, Status: s}
}

// ResultMessage builds a result reply.
func ResultMessage(id uint64, v any) Message {
	return Message{Kind: MessageResult, ID: id, Value: v}
}

// ErrorMessage builds an error reply.
func ErrorMessage(id uint64, e *ErrorDetail) Message {
	return Message{Kind: MessageError, ID: id, Error: e}
}

// IsReply reports whether the message terminates a request.
func (m Message) IsReply() bool {
	return m.Kind == MessageResult || m.Kind == MessageError
}
