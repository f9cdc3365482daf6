package consensus

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindInvalidState ErrorKind = "invalid_state"
	KindNotFound     ErrorKind = "not_found"
)

// Sentinels for errors.Is; every *Error matches the sentinel of its kind.
var (
	ErrValidation   = errors.New("validation error")
	ErrInvalidState = errors.New("invalid state")
	ErrNotFound     = errors.New("not found")
)

// Error carries the kind of failure and the offending id (sku, triple key or
// queue entry id) so callers can build a message without parsing text.
type Error struct {
	Kind ErrorKind
	ID   string
	Msg  string
}

func (e *Error) Error() string {
	if e.ID == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Msg, e.ID)
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrInvalidState:
		return e.Kind == KindInvalidState
	case ErrNotFound:
		return e.Kind == KindNotFound
	}
	return false
}

func validationError(id, msg string) error {
	return &Error{Kind: KindValidation, ID: id, Msg: msg}
}

func invalidStateError(id, msg string) error {
	return &Error{Kind: KindInvalidState, ID: id, Msg: msg}
}

func notFoundError(id, msg string) error {
	return &Error{Kind: KindNotFound, ID: id, Msg: msg}
}

// NewValidationError is used by outer layers that validate input before it
// reaches the core (scan submissions, imports).
func NewValidationError(id, msg string) error {
	return validationError(id, msg)
}

func NewNotFoundError(id, msg string) error {
	return notFoundError(id, msg)
}

func NewInvalidStateError(id, msg string) error {
	return invalidStateError(id, msg)
}

// KindOf returns the kind of a core error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
