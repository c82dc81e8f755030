package types

import (
	"errors"
	"fmt"
)

// Kind classifies every failure a capability operation can report.
type Kind uint8

// Error kinds shared by Read, Write and Erase.
const (
	KindOutOfBounds Kind = iota + 1
	KindMisaligned
	KindNotErased
	KindMediumFault
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindOutOfBounds:
		return "out of bounds"
	case KindMisaligned:
		return "misaligned"
	case KindNotErased:
		return "not erased"
	case KindMediumFault:
		return "medium fault"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Sentinels matched with errors.Is against any error returned by a
// capability operation.
var (
	ErrOutOfBounds = errors.New("out of bounds")
	ErrMisaligned  = errors.New("misaligned")
	ErrNotErased   = errors.New("not erased")
	ErrMediumFault = errors.New("medium fault")
)

// Common MediumFault causes.
var (
	ErrTimeout  = errors.New("medium timed out")
	ErrDetached = errors.New("medium is detached")
)

func (k Kind) sentinel() error {
	switch k {
	case KindOutOfBounds:
		return ErrOutOfBounds
	case KindMisaligned:
		return ErrMisaligned
	case KindNotErased:
		return ErrNotErased
	case KindMediumFault:
		return ErrMediumFault
	}
	return nil
}

// AccessError reports a failed capability operation.
type AccessError struct {
	Op     string // "read", "write", "erase", ...
	Region Region // Region the operation targeted.
	Kind   Kind   // Classification of the failure.
	Err    error  // Underlying cause, usually set only for MediumFault.
}

// Error formats the error as "op region: kind[: cause]".
func (e *AccessError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Op, e.Region, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the sentinel of the error's kind.
func (e *AccessError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// Unwrap returns the underlying cause.
func (e *AccessError) Unwrap() error {
	return e.Err
}

// OutOfBounds returns an OutOfBounds error for op on r.
func OutOfBounds(op string, r Region) error {
	return &AccessError{Op: op, Region: r, Kind: KindOutOfBounds}
}

// Misaligned returns a Misaligned error for op on r.
func Misaligned(op string, r Region) error {
	return &AccessError{Op: op, Region: r, Kind: KindMisaligned}
}

// NotErased returns a NotErased error for op on r.
func NotErased(op string, r Region) error {
	return &AccessError{Op: op, Region: r, Kind: KindNotErased}
}

// Fault returns a MediumFault error for op on r caused by cause.
func Fault(op string, r Region, cause error) error {
	return &AccessError{Op: op, Region: r, Kind: KindMediumFault, Err: cause}
}

// KindOf returns the kind of the first AccessError in err's chain.
func KindOf(err error) (Kind, bool) {
	var ae *AccessError
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return 0, false
}
