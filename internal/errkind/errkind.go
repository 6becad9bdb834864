// Package errkind defines the failure taxonomy shared by the save decoder,
// the interchange decoder and the import pipeline.
//
// Every failure surfaced to a caller carries exactly one Kind. Packages
// construct the root with New or Wrap and then add context the usual way
// with fmt.Errorf("...: %w", err); Is and KindOf see through that wrapping.
package errkind

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	// Io means a file could not be opened or fully read.
	Io Kind = "io"
	// InvalidFormat covers unrecognized extensions, magic mismatches and
	// unsupported save kinds.
	InvalidFormat Kind = "invalid_format"
	// UnsupportedVersion means the save predates the supported layouts.
	UnsupportedVersion Kind = "unsupported_version"
	// Incomplete means a fixed-offset read ran past the end of the buffer.
	Incomplete Kind = "incomplete"
	// Malformed means a field was present but failed structural decode.
	Malformed Kind = "malformed"
	// Decode means interchange text failed schema deserialization.
	Decode Kind = "decode"
	// Storage means a persistence lookup or insert failed.
	Storage Kind = "storage"
)

func (k Kind) String() string {
	return string(k)
}

// Error is a failure with a Kind, the operation that produced it and an
// optional cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return e.Op
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind, so that
// errors.Is(err, errkind.New(errkind.Io, "")) matches any Io failure.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New returns a failure of the given kind with a message and no cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Op: msg}
}

// Newf is New with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and operation to err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain, or the
// empty Kind when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether any *Error in err's chain has the given kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
