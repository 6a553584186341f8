// Package apperr classifies errors so callers at the transport boundary can
// map them to user-facing responses without knowing every sentinel.
package apperr

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindRegionUnavailable
	KindConflict
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindRegionUnavailable:
		return "region_unavailable"
	case KindConflict:
		return "conflict"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error carries a Kind and the operation that failed. Err is the wrapped
// cause and stays reachable through errors.Is / errors.As.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func Validation(op string, err error) error { return New(KindValidation, op, err) }

func NotFound(op string, err error) error { return New(KindNotFound, op, err) }

func RegionUnavailable(op string, err error) error { return New(KindRegionUnavailable, op, err) }

func Conflict(op string, err error) error { return New(KindConflict, op, err) }

func Persistence(op string, err error) error { return New(KindPersistence, op, err) }

// KindOf returns the outermost Kind found in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
