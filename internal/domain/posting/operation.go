package posting

import (
	"fmt"
	"strings"
)

// Operation is a mutation the policy can rule on.
type Operation string

const (
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// IsValid reports whether op is one of the supported operations
func (op Operation) IsValid() bool {
	switch op {
	case OperationUpdate, OperationDelete:
		return true
	default:
		return false
	}
}

func (op Operation) String() string {
	return string(op)
}

// pastTense is used in allow messages, e.g. "Invoice can be updated".
func (op Operation) pastTense() string {
	switch op {
	case OperationUpdate:
		return "updated"
	case OperationDelete:
		return "deleted"
	default:
		return string(op)
	}
}

// ParseOperation parses a case-insensitive operation name.
func ParseOperation(s string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(s)))
	if !op.IsValid() {
		return "", fmt.Errorf("unsupported operation %q", s)
	}
	return op, nil
}
