package domain

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind string

const (
	KindMissingOrganization ErrorKind = "MissingOrganization"
	KindUnknownOrganization ErrorKind = "UnknownOrganization"
	KindMissingValue        ErrorKind = "MissingValue"
	KindInvalidQuantity     ErrorKind = "InvalidQuantity"
	KindMissingLinkedEntity ErrorKind = "MissingLinkedEntity"
	KindDuplicateValue      ErrorKind = "DuplicateValue"
	KindDanglingReference   ErrorKind = "DanglingReference"
	KindNotFound            ErrorKind = "NotFound"
)

// Error is a field-attributed registry error. Two errors match under
// errors.Is when their kinds are equal.
type Error struct {
	Kind    ErrorKind
	Field   string
	Message string
	cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + " " + msg
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Kind: e.Kind, Field: e.Field, Message: e.Message, cause: err}
}

// WithMessage returns a copy of e with a different message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Kind: e.Kind, Field: e.Field, Message: msg, cause: e.cause}
}

var (
	ErrMissingOrganization = &Error{Kind: KindMissingOrganization, Field: "organization", Message: "must exist"}
	ErrUnknownOrganization = &Error{Kind: KindUnknownOrganization, Field: "organization", Message: "does not exist"}
	ErrMissingValue        = &Error{Kind: KindMissingValue, Field: "value", Message: "can't be blank"}
	ErrInvalidQuantity     = &Error{Kind: KindInvalidQuantity, Field: "quantity", Message: "must be a whole number greater than 0"}
	ErrMissingLinkedEntity = &Error{Kind: KindMissingLinkedEntity, Field: "linked_entity", Message: "must exist"}
	ErrDuplicateValue      = &Error{Kind: KindDuplicateValue, Field: "value", Message: "That barcode value already exists"}
	ErrDanglingReference   = &Error{Kind: KindDanglingReference, Field: "linked_entity", Message: "no longer exists"}
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "barcode registration not found"}
)

// ValidationErrors collects every field error found for one candidate.
type ValidationErrors []*Error

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Unwrap() []error {
	errs := make([]error, len(v))
	for i, e := range v {
		errs[i] = e
	}
	return errs
}

// Fields groups messages by field name, suitable for form errors.
func (v ValidationErrors) Fields() map[string][]string {
	fields := make(map[string][]string, len(v))
	for _, e := range v {
		fields[e.Field] = append(fields[e.Field], e.Message)
	}
	return fields
}

// ErrOrNil returns nil for an empty collection so callers can return it directly.
func (v ValidationErrors) ErrOrNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}
