package logo

import (
	"errors"
	"fmt"
	"io/fs"
)

// Kind classifies failures so callers can map them to responses.
type Kind int

const (
	KindIO Kind = iota + 1
	KindNotFound
	KindPermission
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPermission:
		return "permission"
	case KindValidation:
		return "validation"
	default:
		return "io"
	}
}

// Sentinels for errors.Is checks against *Error values.
var (
	ErrNotFound   = errors.New("not found")
	ErrPermission = errors.New("permission denied")
	ErrIO         = errors.New("i/o error")
	ErrValidation = errors.New("invalid input")
)

// Error is a classified failure from the store, the distributor or the
// interceptor.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the package sentinels by kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrPermission:
		return e.Kind == KindPermission
	case ErrIO:
		return e.Kind == KindIO
	case ErrValidation:
		return e.Kind == KindValidation
	}
	return false
}

// FSError wraps a filesystem error with the matching kind.
func FSError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	kind := KindIO
	switch {
	case errors.Is(err, fs.ErrNotExist):
		kind = KindNotFound
	case errors.Is(err, fs.ErrPermission):
		kind = KindPermission
	}
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// KindOf returns the kind of a classified error, or KindIO for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindIO
}
