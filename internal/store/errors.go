package store

import (
	"errors"
	"fmt"
)

// Kind classifies document access failures.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindParse
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindParse:
		return "parse error"
	case KindIO:
		return "io error"
	}
	return "unknown"
}

// Sentinels for errors.Is; an *Error matches the sentinel of its Kind.
var (
	ErrNotFound = errors.New("document not found")
	ErrParse    = errors.New("document is not valid JSON")
	ErrIO       = errors.New("document i/o failed")

	ErrIndexOutOfRange = errors.New("record index out of range")
	ErrNoFields        = errors.New("no fields to update")
)

// Error reports a failed load or save of the record document.
type Error struct {
	Kind Kind
	Op   string // "load" or "save"
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrParse:
		return e.Kind == KindParse
	case ErrIO:
		return e.Kind == KindIO
	}
	return false
}

func indexError(index, n int) error {
	return fmt.Errorf("%w: %d (have %d records)", ErrIndexOutOfRange, index, n)
}
