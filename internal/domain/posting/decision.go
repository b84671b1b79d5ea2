package posting

import (
	"encoding/json"
	"net/http"
)

// Fixed decision texts. The immutable text is shared by update and delete.
const (
	MsgPostedImmutable = "Posted records cannot be modified"
)

// Decision is the outcome of validating one operation against one record.
type Decision struct {
	Operation  Operation
	Allowed    bool
	StatusCode int
	// Message is set when Allowed is true, Error when it is false.
	Message string
	Error   string
}

// CanUpdate reports the allow flag for an update decision and false for any other operation.
func (d Decision) CanUpdate() bool {
	return d.Operation == OperationUpdate && d.Allowed
}

// CanDelete reports the allow flag for a delete decision and false for any other operation.
func (d Decision) CanDelete() bool {
	return d.Operation == OperationDelete && d.Allowed
}

// Text returns Message for allowed decisions and Error otherwise.
func (d Decision) Text() string {
	if d.Allowed {
		return d.Message
	}
	return d.Error
}

type decisionJSON struct {
	Operation  Operation `json:"operation"`
	Allowed    bool      `json:"allowed"`
	CanUpdate  *bool     `json:"can_update,omitempty"`
	CanDelete  *bool     `json:"can_delete,omitempty"`
	StatusCode int       `json:"status_code"`
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// MarshalJSON emits the operation-specific flag (can_update or can_delete) next to allowed.
func (d Decision) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.wire())
}

func (d Decision) wire() decisionJSON {
	out := decisionJSON{
		Operation:  d.Operation,
		Allowed:    d.Allowed,
		StatusCode: d.StatusCode,
		Message:    d.Message,
		Error:      d.Error,
	}
	allowed := d.Allowed
	switch d.Operation {
	case OperationUpdate:
		out.CanUpdate = &allowed
	case OperationDelete:
		out.CanDelete = &allowed
	}
	return out
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Decision) UnmarshalJSON(data []byte) error {
	var in decisionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*d = Decision{
		Operation:  in.Operation,
		Allowed:    in.Allowed,
		StatusCode: in.StatusCode,
		Message:    in.Message,
		Error:      in.Error,
	}
	return nil
}

func allow(op Operation, label string) Decision {
	return Decision{
		Operation:  op,
		Allowed:    true,
		StatusCode: http.StatusOK,
		Message:    label + " can be " + op.pastTense(),
	}
}

func deny(op Operation, statusCode int, text string) Decision {
	return Decision{
		Operation:  op,
		Allowed:    false,
		StatusCode: statusCode,
		Error:      text,
	}
}
