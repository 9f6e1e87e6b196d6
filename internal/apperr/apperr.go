package apperr

import (
	"errors"
	"fmt"
)

// Kind tags an error with the failure site it came from
type Kind string

const (
	FailedToReadFile     Kind = "failed to read file"
	FailedToParse        Kind = "failed to parse"
	FailedToSerialize    Kind = "failed to serialize"
	FailedToWrite        Kind = "failed to write"
	FailedToCreateFolder Kind = "failed to create folder"
	FailedToEncode       Kind = "failed to encode"
	InvalidPath          Kind = "invalid path"
	// Ignore covers lower-level faults with no dedicated kind
	Ignore Kind = "unclassified error"
)

// Error implements error so a bare Kind can be used as an errors.Is target
func (k Kind) Error() string {
	return string(k)
}

// Error carries a Kind plus the operation, the path involved and the cause
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

// New wraps err with kind, op and path
func New(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a bare Kind target
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or Ignore
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Ignore
}
