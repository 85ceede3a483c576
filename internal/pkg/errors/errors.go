package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalid        = errors.New("invalid")
	ErrConflict       = errors.New("conflict")
	ErrExpired        = errors.New("verification code expired")
	ErrInvalidCode    = errors.New("invalid verification code")
	ErrNotVerified    = errors.New("account not verified")
	ErrBadCredentials = errors.New("incorrect password")
	ErrNotAccepting   = errors.New("not accepting messages")
	ErrUpstream       = errors.New("upstream failure")
	ErrInternal       = errors.New("internal")
)

// ValidationError carries per-field messages. It matches ErrInvalid.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return strings.Join(parts, ",")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

type messageErr struct {
	err error
	msg string
}

func (e *messageErr) Error() string { return e.msg }
func (e *messageErr) Unwrap() error { return e.err }

// WithMessage attaches a user facing message to a sentinel.
func WithMessage(err error, msg string) error {
	return &messageErr{err: err, msg: msg}
}

// UserMessage returns the message attached by WithMessage, or "".
func UserMessage(err error) string {
	var me *messageErr
	if errors.As(err, &me) {
		return me.msg
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return ""
}

// Internal marks err as an unexpected failure of op. The cause stays
// reachable through errors.Is and errors.As.
func Internal(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
