package record

import (
	"strings"
)

// ValidationContext selects when a validation applies.
type ValidationContext int

const (
	// OnAny applies on create and update.
	OnAny ValidationContext = iota
	// OnCreate applies while the record is not yet persisted.
	OnCreate
	// OnUpdate applies once the record is persisted.
	OnUpdate
)

func (c ValidationContext) String() string {
	switch c {
	case OnCreate:
		return "create"
	case OnUpdate:
		return "update"
	}
	return "any"
}

func (c ValidationContext) applies(current ValidationContext) bool {
	return c == OnAny || c == current
}

// BlankMessage is the message added by presence validations.
const BlankMessage = "can't be blank"

// FieldError is one validation failure.
type FieldError struct {
	Field   string
	Message string
}

// ValidationErrors accumulates field errors in the order they were added.
type ValidationErrors []FieldError

// Add appends a message for field.
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, FieldError{Field: field, Message: message})
}

// On returns the messages recorded for field.
func (e ValidationErrors) On(field string) []string {
	var msgs []string
	for _, fe := range e {
		if fe.Field == field {
			msgs = append(msgs, fe.Message)
		}
	}
	return msgs
}

// Empty reports whether no errors were recorded.
func (e ValidationErrors) Empty() bool {
	return len(e) == 0
}

// Error formats the errors as "field message, field message".
func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + " " + fe.Message
	}
	return strings.Join(parts, ", ")
}

// Validator inspects a record and adds to errs.
type Validator func(r *Record, errs *ValidationErrors)

type validation struct {
	on ValidationContext
	fn Validator
}

// Presence returns a Validator that requires every named column to be non-blank.
// Blank is nil, an empty or all-space string, or a zero Date.
func Presence(columns ...string) Validator {
	return func(r *Record, errs *ValidationErrors) {
		for _, col := range columns {
			if isBlank(r.attrs[col]) {
				errs.Add(col, BlankMessage)
			}
		}
	}
}

func isBlank(v any) bool {
	switch x := deref(v).(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case Date:
		return x.IsZero()
	}
	return false
}
