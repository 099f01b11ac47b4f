// Package errors provides the error helpers used throughout davsync. Errors
// are wrapped with a short description of the failed step so that the final
// message reads like a trace, e.g. "sync personal: create directory: ...".
package errors

import (
	"fmt"
)

// New returns an error with the formatted message.
func New(format string, a ...interface{}) error {
	if len(a) == 0 {
		return stringError(format)
	}
	return stringError(fmt.Sprintf(format, a...))
}

type stringError string

func (err stringError) Error() string {
	return string(err)
}

// WithContext annotates `err` with a description of what was being attempted
// when it occurred.
func WithContext(err error, context string) error {
	return contextError{err: err, context: context}
}

type contextError struct {
	err     error
	context string
}

func (err contextError) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.err)
}

func (err contextError) Unwrap() error {
	return err.err
}

// RootCause strips all the context added by WithContext and returns the
// original error.
func RootCause(err error) error {
	for {
		ctxErr, ok := err.(contextError)
		if !ok {
			return err
		}
		err = ctxErr.err
	}
}

// FriendlyError is an error whose message is meant to be shown directly to
// the user, without any of the context from WithContext.
type FriendlyError struct {
	msg string
}

// NewFriendlyError creates a FriendlyError with the formatted message.
func NewFriendlyError(format string, a ...interface{}) error {
	return FriendlyError{fmt.Sprintf(format, a...)}
}

func (err FriendlyError) Error() string {
	return err.msg
}

// FriendlyMessage returns the message to print to the user.
func (err FriendlyError) FriendlyMessage() string {
	return err.msg
}

// Friendly is implemented by errors that know how to describe themselves
// to the user.
type Friendly interface {
	FriendlyMessage() string
}

// GetFriendlyMessage returns the friendly message of the first error in the
// chain that has one.
func GetFriendlyMessage(err error) (string, bool) {
	for err != nil {
		if friendly, ok := err.(Friendly); ok {
			return friendly.FriendlyMessage(), true
		}

		ctxErr, ok := err.(contextError)
		if !ok {
			return "", false
		}
		err = ctxErr.err
	}
	return "", false
}
