package posting

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind discriminates failures raised by Enforce.
type FailureKind int

const (
	// KindImmutabilityViolation is raised for every denied operation.
	KindImmutabilityViolation FailureKind = iota + 1
)

func (k FailureKind) String() string {
	switch k {
	case KindImmutabilityViolation:
		return "IMMUTABILITY_VIOLATION"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler
func (k FailureKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Violation is the error Enforce returns when an operation is denied.
type Violation struct {
	StatusCode int         `json:"status_code"`
	Message    string      `json:"message"`
	Kind       FailureKind `json:"kind"`
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s: %s (status %d)", v.Kind, v.Message, v.StatusCode)
}

// AsViolation extracts a *Violation from err's chain.
func AsViolation(err error) (*Violation, bool) {
	var v *Violation
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// Enforce validates op for id and turns a denial into a *Violation. The
// decision is returned in both cases.
func Enforce[ID any](ctx context.Context, id ID, load Loader[ID], op Operation, label string) (Decision, error) {
	decision := ValidateByLoader(ctx, id, load, op, label)
	if flagFor(op, decision) {
		return decision, nil
	}
	return decision, &Violation{
		StatusCode: decision.StatusCode,
		Message:    decision.Error,
		Kind:       KindImmutabilityViolation,
	}
}
