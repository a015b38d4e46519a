package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type discriminates the kinds of Event.
type Type string

// Event kinds. Complete and Error are terminal.
const (
	TypeProgress Type = "progress"
	TypeLog      Type = "log"
	TypeComplete Type = "complete"
	TypeError    Type = "error"
)

// Field names with fixed meaning in the wire format.
const (
	FieldType        = "type"
	FieldMessage     = "message"
	FieldDownloadURL = "downloadUrl"
)

// ErrMissingType is returned when decoding an event without a "type" field.
var ErrMissingType = errors.New("event has no type")

// Event is one unit of progress or outcome information for a task.
//
// On the wire an event is a flat JSON object: {"type": ..., <Fields>...}.
// Output carries the checker's final artifact on a success event and is never
// serialized, so a relayed event cannot leak the artifact.
type Event struct {
	Type   Type
	Fields map[string]any
	Output string
}

// IsTerminal reports whether no further events may follow this one.
func (e Event) IsTerminal() bool {
	return e.Type == TypeComplete || e.Type == TypeError
}

// Message returns the "message" field when it is a string.
func (e Event) Message() string {
	msg, _ := e.Fields[FieldMessage].(string)
	return msg
}

// Progress builds a non-terminal progress event carrying checker-defined fields.
func Progress(fields map[string]any) Event {
	return Event{Type: TypeProgress, Fields: copyFields(fields)}
}

// Log builds a non-terminal event carrying a free-form console line.
func Log(message string) Event {
	return Event{Type: TypeLog, Fields: map[string]any{FieldMessage: message}}
}

// Result builds the checker's terminal success event holding the full artifact.
func Result(output string) Event {
	return Event{Type: TypeComplete, Output: output}
}

// Complete builds the externally visible completion notice pointing at the
// persisted artifact.
func Complete(downloadURL string) Event {
	return Event{Type: TypeComplete, Fields: map[string]any{FieldDownloadURL: downloadURL}}
}

// Failure builds a terminal error event.
func Failure(message string) Event {
	return Event{Type: TypeError, Fields: map[string]any{FieldMessage: message}}
}

// Failuref is Failure with fmt.Sprintf formatting.
func Failuref(format string, args ...any) Event {
	return Failure(fmt.Sprintf(format, args...))
}

// MarshalJSON flattens the event into a single object. A "type" entry in
// Fields never overrides the event's own type.
func (e Event) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(e.Fields)+1)
	for k, v := range e.Fields {
		obj[k] = v
	}
	obj[FieldType] = e.Type
	return json.Marshal(obj)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (e *Event) UnmarshalJSON(data []byte) error {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	t, ok := obj[FieldType].(string)
	if !ok || t == "" {
		return ErrMissingType
	}
	delete(obj, FieldType)

	e.Type = Type(t)
	e.Fields = obj
	e.Output = ""
	return nil
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == FieldType {
			continue
		}
		out[k] = v
	}
	return out
}
