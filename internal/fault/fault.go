package fault

import (
	"errors"
	"fmt"
)

// Kind classifies an operation failure so callers can branch on it
// programmatically instead of matching message text.
type Kind int32

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindAlreadyExists
	KindInsufficientFunds
	KindInsufficientCollateral
	KindInvalidState
	KindOverRepayment
	KindOverflow
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindInsufficientCollateral:
		return "insufficient_collateral"
	case KindInvalidState:
		return "invalid_state"
	case KindOverRepayment:
		return "over_repayment"
	case KindOverflow:
		return "overflow"
	default:
		return "unknown"
	}
}

// Error is a structured operation failure. Every failure is detected before
// any state mutation, so surfacing one guarantees the store is untouched.
type Error struct {
	Kind Kind
	Op   string // operation name, e.g. "withdraw"
	Msg  string
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

// New creates a structured failure.
func New(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the failure kind from an error chain.
// Returns KindUnknown for non-fault errors.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Is lets sentinel comparisons like errors.Is(err, &Error{Kind: KindInvalidState})
// match on kind alone.
func (e *Error) Is(target error) bool {
	var fe *Error
	if !errors.As(target, &fe) {
		return false
	}
	return fe.Kind == e.Kind && (fe.Op == "" || fe.Op == e.Op)
}
