// Package apperr defines the typed failures raised by the calculation pipeline.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindLoad
	KindClip
	KindSchema
	KindParameter
)

func (k Kind) String() string {
	switch k {
	case KindLoad:
		return "LoadError"
	case KindClip:
		return "ClipError"
	case KindSchema:
		return "SchemaError"
	case KindParameter:
		return "ParameterError"
	default:
		return "UnknownError"
	}
}

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(k Kind, op string, format string, args ...any) error {
	return &Error{Kind: k, Op: op, Err: fmt.Errorf(format, args...)}
}

// Load reports a file that could not be fetched, parsed or merged.
func Load(op, format string, args ...any) error {
	return newErr(KindLoad, op, format, args...)
}

// Clip reports missing geometry source columns.
func Clip(op, format string, args ...any) error {
	return newErr(KindClip, op, format, args...)
}

// Schema reports a table that lacks the columns a calculation needs.
func Schema(op, format string, args ...any) error {
	return newErr(KindSchema, op, format, args...)
}

// Param reports malformed request parameters.
func Param(op, format string, args ...any) error {
	return newErr(KindParameter, op, format, args...)
}

// KindOf returns the kind of the first *Error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
