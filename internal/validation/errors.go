package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Errors maps form fields to a single message each, remembering the order in
// which fields failed so callers can point at the first invalid one.
type Errors struct {
	order []string
	msgs  map[string]string
}

// Add records msg for field unless the field already failed
func (e *Errors) Add(field, msg string) {
	if e.msgs == nil {
		e.msgs = make(map[string]string)
	}
	if _, ok := e.msgs[field]; ok {
		return
	}
	e.msgs[field] = msg
	e.order = append(e.order, field)
}

// Has reports whether field failed
func (e *Errors) Has(field string) bool {
	_, ok := e.msgs[field]
	return ok
}

// Get returns the message recorded for field
func (e *Errors) Get(field string) string {
	return e.msgs[field]
}

// Len returns the number of failed fields
func (e *Errors) Len() int {
	return len(e.order)
}

// OK reports whether no field failed
func (e *Errors) OK() bool {
	return e == nil || len(e.order) == 0
}

// First returns the first field that failed, or "" when none did
func (e *Errors) First() string {
	if len(e.order) == 0 {
		return ""
	}
	return e.order[0]
}

// Fields returns failed fields in form order
func (e *Errors) Fields() []string {
	if len(e.order) == 0 {
		return nil
	}
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// Map returns a copy of the field to message map
func (e *Errors) Map() map[string]string {
	out := make(map[string]string, len(e.msgs))
	for k, v := range e.msgs {
		out[k] = v
	}
	return out
}

// Error implements error so a failed validation can travel up a call chain
func (e *Errors) Error() string {
	parts := make([]string, 0, len(e.order))
	for _, f := range e.order {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e.msgs[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// MarshalJSON writes the errors as an object whose keys keep form order
func (e *Errors) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range e.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.msgs[f])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
