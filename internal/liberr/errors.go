// Package liberr classifies library failures into the kinds callers need to
// tell apart: a rejected request, a store fault, an unavailable source file
// and a per-asset artifact failure.
package liberr

import (
	"errors"
	"fmt"
)

// Kind is the classification of a library error.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindStore
	KindAccess
	KindArtifact
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStore:
		return "store"
	case KindAccess:
		return "access"
	case KindArtifact:
		return "artifact_generation"
	default:
		return "unknown"
	}
}

// ErrClosed is returned for requests submitted after the coordinator closed.
var ErrClosed = Store(errors.New("coordinator is closed"), CodeClosed)

// Error is a classified library error. Ref names the offending identifier or
// source reference when one applies.
type Error struct {
	Kind Kind
	Code int
	Ref  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String() + " error"
	}
	if e.Ref != "" {
		return fmt.Sprintf("%s: %v", e.Ref, e.Err)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func makeError(kind Kind, code int, ref string, err error) error {
	if err == nil {
		err = errors.New(kind.String() + " error")
	}

	if code == 0 {
		code = defaultCode(kind)
	}

	var existing *Error
	if errors.As(err, &existing) && existing.Kind != KindUnknown {
		if kind == KindArtifact && existing.Kind != KindArtifact {
			return &Error{Kind: kind, Code: code, Ref: ref, Err: err}
		}
		return err
	}
	return &Error{Kind: kind, Code: code, Ref: ref, Err: err}
}

// Validation classifies err as a rejected request.
func Validation(err error) error {
	return makeError(KindValidation, CodeInvalidArgument, "", err)
}

// ValidationCode classifies err as a rejected request with a specific code.
func ValidationCode(err error, code int) error {
	return makeError(KindValidation, code, "", err)
}

// NotFound reports an unknown identifier as a validation error.
func NotFound(id string, code int) error {
	return makeError(KindValidation, code, id, fmt.Errorf("unknown id"))
}

// Store classifies err as a store failure.
func Store(err error, code int) error {
	return makeError(KindStore, code, "", err)
}

// Access classifies err as an unavailable sandboxed resource.
func Access(ref string, err error, code int) error {
	return makeError(KindAccess, code, ref, err)
}

// Artifact classifies err as a per-asset artifact generation failure. The
// cause keeps its own classification reachable through errors.As.
func Artifact(assetID string, err error, code int) error {
	return makeError(KindArtifact, code, assetID, err)
}

// KindOf returns the outermost classification of err.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf returns the outermost numeric code of err, or 0.
func CodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsStore(err error) bool      { return KindOf(err) == KindStore }
func IsAccess(err error) bool     { return KindOf(err) == KindAccess }
func IsArtifact(err error) bool   { return KindOf(err) == KindArtifact }

// Classify leaves classified errors untouched and marks anything else as a
// store failure.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return Store(err, CodeStoreFailure)
}
