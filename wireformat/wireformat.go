// Package wireformat defines the JSON framing of protocol messages exchanged
// between host and worker. Two dialects exist: the tagged dialect, where
// every frame carries a kind and a correlation id, and the legacy untagged
// dialect, where frames are bare descriptors, payloads and results and are
// classified by shape.
package wireformat

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Bind-Forward/port/domain/entities"
)

// Reserved marker fields of the legacy dialect.
const (
	LegacyStatusField = "_status"
	LegacyErrorField  = "_error"
)

// legacyLocationFields mark a legacy frame as Init.
var legacyLocationFields = []string{"url", "sourceLocation"}

// ErrNotRepresentable is returned when a message has no legacy encoding.
var ErrNotRepresentable = errors.New("message kind has no legacy encoding")

// Direction tells a decoder which side of the channel it serves.
type Direction int

const (
	// ToWorker frames are requests: init, call, cancel.
	ToWorker Direction = iota
	// ToHost frames are replies: status, result, error, log.
	ToHost
)

var requestKinds = map[entities.MessageKind]bool{
	entities.MessageInit:   true,
	entities.MessageCall:   true,
	entities.MessageCancel: true,
}

var replyKinds = map[entities.MessageKind]bool{
	entities.MessageStatus: true,
	entities.MessageResult: true,
	entities.MessageError:  true,
	entities.MessageLog:    true,
}

// taggedFrame mirrors entities.Message with the value kept raw so numbers can
// be normalized.
type taggedFrame struct {
	Model     *entities.ModelDescriptor `json:"model,omitempty"`
	Payload   *entities.CallPayload     `json:"payload,omitempty"`
	Error     *entities.ErrorDetail     `json:"error,omitempty"`
	Log       *entities.LogRecord       `json:"log,omitempty"`
	Kind      entities.MessageKind      `json:"kind"`
	Status    entities.Status           `json:"status,omitempty"`
	Value     json.RawMessage           `json:"value,omitempty"`
	ID        uint64                    `json:"id,omitempty"`
	TimeoutMs int64                     `json:"timeout_ms,omitempty"`
}

// Encode serializes msg in the given dialect.
func Encode(msg entities.Message, dialect entities.Dialect) ([]byte, error) {
	if dialect == entities.DialectLegacy {
		return encodeLegacy(msg)
	}
	return json.Marshal(msg)
}

func encodeLegacy(msg entities.Message) ([]byte, error) {
	switch msg.Kind {
	case entities.MessageInit:
		if msg.Model == nil {
			return nil, fmt.Errorf("init message without model")
		}
		return json.Marshal(legacyInit(*msg.Model))
	case entities.MessageCall:
		if msg.Payload == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(msg.Payload)
	case entities.MessageStatus:
		return json.Marshal(map[string]any{LegacyStatusField: msg.Status})
	case entities.MessageResult:
		return json.Marshal(msg.Value)
	case entities.MessageError:
		reason := "model error"
		if msg.Error != nil {
			reason = msg.Error.Error()
		}
		return json.Marshal(map[string]any{LegacyErrorField: reason})
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotRepresentable, msg.Kind)
	}
}

// legacyInit renders a descriptor in the original schema model shape. The
// location field is always present because legacy peers detect Init by it.
func legacyInit(d entities.ModelDescriptor) map[string]any {
	m := map[string]any{
		"type": string(d.Kind),
		"url":  d.SourceLocation,
	}
	if d.InlineSource != "" {
		m["code"] = d.InlineSource
	}
	if d.EntryName != "" {
		m["name"] = d.EntryName
	}
	if d.InvocationMethod != "" {
		m["method"] = d.InvocationMethod
	}
	if d.Runtime != "" && d.Runtime != entities.RuntimeStarlark {
		m["runtime"] = string(d.Runtime)
	}
	if d.ArgumentStyle == entities.ArgsPositional {
		m["container"] = "args"
	} else {
		m["container"] = "object"
	}
	return m
}

// Decoder decodes frames for one direction of a channel. The dialect is
// detected from the first frame and locked afterwards, so a legacy payload
// that happens to contain a "kind" key is never taken for a tagged frame.
type Decoder struct {
	dir     Direction
	dialect entities.Dialect
	locked  bool
}

// NewDecoder returns a decoder that detects the dialect from the first frame.
func NewDecoder(dir Direction) *Decoder {
	return &Decoder{dir: dir}
}

// NewDialectDecoder returns a decoder locked to dialect.
func NewDialectDecoder(dir Direction, dialect entities.Dialect) *Decoder {
	return &Decoder{dir: dir, dialect: dialect, locked: true}
}

// Dialect reports the detected (or configured) dialect.
func (d *Decoder) Dialect() entities.Dialect {
	return d.dialect
}

// Decode parses one frame.
func (d *Decoder) Decode(frame []byte) (entities.Message, error) {
	v, err := entities.DecodeValue(frame)
	if err != nil {
		return entities.Message{}, fmt.Errorf("malformed frame: %w", err)
	}

	if !d.locked {
		d.dialect = entities.DialectLegacy
		if d.isTagged(v) {
			d.dialect = entities.DialectTagged
		}
		d.locked = true
	}

	if d.dialect == entities.DialectTagged {
		return decodeTagged(frame)
	}
	if d.dir == ToWorker {
		return decodeLegacyRequest(v)
	}
	return ClassifyReply(v), nil
}

func (d *Decoder) isTagged(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	k, ok := m["kind"].(string)
	if !ok {
		return false
	}
	if d.dir == ToWorker {
		return requestKinds[entities.MessageKind(k)]
	}
	return replyKinds[entities.MessageKind(k)]
}

func decodeTagged(frame []byte) (entities.Message, error) {
	var f taggedFrame
	if err := json.Unmarshal(frame, &f); err != nil {
		return entities.Message{}, fmt.Errorf("malformed tagged frame: %w", err)
	}
	msg := entities.Message{
		Kind:      f.Kind,
		ID:        f.ID,
		Model:     f.Model,
		Payload:   f.Payload,
		Error:     f.Error,
		Log:       f.Log,
		Status:    f.Status,
		TimeoutMs: f.TimeoutMs,
		Dialect:   entities.DialectTagged,
	}
	if len(f.Value) > 0 {
		v, err := entities.DecodeValue(f.Value)
		if err != nil {
			return entities.Message{}, fmt.Errorf("malformed value: %w", err)
		}
		msg.Value = v
	}
	if msg.Kind == entities.MessageCall && msg.Payload == nil {
		p := entities.ObjectPayload(nil)
		msg.Payload = &p
	}
	return msg, nil
}

// IsLegacyInit reports whether a decoded legacy value is an Init: a mapping
// carrying a model location field, even an empty one.
func IsLegacyInit(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	for _, f := range legacyLocationFields {
		if _, ok := m[f]; ok {
			return true
		}
	}
	return false
}

func decodeLegacyRequest(v any) (entities.Message, error) {
	if IsLegacyInit(v) {
		d, err := descriptorFromLegacy(v.(map[string]any))
		if err != nil {
			return entities.Message{}, err
		}
		return entities.Message{Kind: entities.MessageInit, Model: &d, Dialect: entities.DialectLegacy}, nil
	}

	var p entities.CallPayload
	switch t := v.(type) {
	case []any:
		p = entities.PositionalPayload(t...)
	case map[string]any:
		p = entities.ObjectPayload(t)
	default:
		// Scalars are passed as the single positional argument.
		p = entities.PositionalPayload(t)
	}
	return entities.Message{Kind: entities.MessageCall, Payload: &p, Dialect: entities.DialectLegacy}, nil
}

// descriptorFromLegacy accepts both the original schema model shape (type,
// url, code, name, method, container) and descriptor field names.
func descriptorFromLegacy(m map[string]any) (entities.ModelDescriptor, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return entities.ModelDescriptor{}, err
	}
	if _, ok := m["type"]; ok {
		var spec entities.ModelSpec
		if err := json.Unmarshal(raw, &spec); err != nil {
			return entities.ModelDescriptor{}, fmt.Errorf("malformed legacy init: %w", err)
		}
		s := entities.Schema{Model: spec}
		s.Normalize()
		return s.Descriptor(), nil
	}
	var d entities.ModelDescriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return entities.ModelDescriptor{}, fmt.Errorf("malformed legacy init: %w", err)
	}
	return d.Normalized(), nil
}

// ClassifyReply classifies a decoded legacy reply by shape. A mapping
// carrying the status marker is a status event even when the model meant it
// as a result; the legacy dialect cannot tell them apart.
func ClassifyReply(v any) entities.Message {
	if m, ok := v.(map[string]any); ok {
		if s, ok := m[LegacyStatusField]; ok {
			status, _ := s.(string)
			return entities.Message{Kind: entities.MessageStatus, Status: entities.Status(status), Dialect: entities.DialectLegacy}
		}
		if reason, ok := m[LegacyErrorField]; ok && len(m) == 1 {
			return entities.Message{
				Kind:    entities.MessageError,
				Error:   entities.NewErrorDetail(entities.ErrorTypeInvocation, fmt.Sprint(reason)),
				Dialect: entities.DialectLegacy,
			}
		}
	}
	return entities.Message{Kind: entities.MessageResult, Value: v, Dialect: entities.DialectLegacy}
}
