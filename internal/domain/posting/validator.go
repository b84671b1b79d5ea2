package posting

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Loader fetches a record by id. It returns a nil Record when the id does not
// exist and a non-nil error only for infrastructure failures.
type Loader[ID any] func(ctx context.Context, id ID) (Record, error)

// ValidateUpdate decides whether r may be updated. An empty label means DefaultLabel.
func ValidateUpdate(r Record, label string) Decision {
	return validate(r, OperationUpdate, resolveLabel(label))
}

// ValidateDeletion decides whether r may be deleted. An empty label means DefaultLabel.
func ValidateDeletion(r Record, label string) Decision {
	return validate(r, OperationDelete, resolveLabel(label))
}

// Validate decides whether op may be applied to r.
func Validate(r Record, op Operation, label string) Decision {
	if !op.IsValid() {
		return unsupported(op)
	}
	return validate(r, op, resolveLabel(label))
}

func validate(r Record, op Operation, label string) Decision {
	switch {
	case isAbsent(r):
		return deny(op, http.StatusNotFound, label+" not found")
	case IsPosted(r):
		return deny(op, http.StatusForbidden, MsgPostedImmutable)
	default:
		return allow(op, label)
	}
}

// ValidateByLoader loads the record for id and validates op against it. The
// loader is called exactly once. A loader error or panic becomes a 500
// decision and is not returned to the caller.
func ValidateByLoader[ID any](ctx context.Context, id ID, load Loader[ID], op Operation, label string) Decision {
	if !op.IsValid() {
		return unsupported(op)
	}
	label = resolveLabel(label)

	r, err := safeLoad(ctx, id, load)
	if err != nil {
		return deny(op, http.StatusInternalServerError,
			"Failed to retrieve "+strings.ToLower(label)+" for validation")
	}
	return validate(r, op, label)
}

// safeLoad turns a loader panic into an error
func safeLoad[ID any](ctx context.Context, id ID, load Loader[ID]) (r Record, err error) {
	defer func() {
		if p := recover(); p != nil {
			r, err = nil, fmt.Errorf("loader panicked: %v", p)
		}
	}()
	return load(ctx, id)
}

func unsupported(op Operation) Decision {
	return deny(op, http.StatusBadRequest, "Unsupported operation: "+string(op))
}
