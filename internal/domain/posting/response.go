package posting

import (
	"net/http"
	"strings"
)

// Fixed reasons used by the response builders.
const (
	ReasonPosted = "Record is in posted status and cannot be modified to maintain accounting integrity"
	ReasonDraft  = "Record is in draft status and can be modified"
)

// ResponseDetails describes which record and operation a response refers to.
type ResponseDetails struct {
	RecordType string `json:"record_type"`
	Operation  string `json:"operation"`
	Reason     string `json:"reason"`
}

// ResponseBody is the JSON body handlers return for allow and deny outcomes.
type ResponseBody struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"status_code"`
	Message    string          `json:"message,omitempty"`
	Error      string          `json:"error,omitempty"`
	Details    ResponseDetails `json:"details"`
}

// BuildImmutabilityError formats the 403 body for a denied operation on a posted record.
func BuildImmutabilityError(label, operationLabel string) ResponseBody {
	label = resolveLabel(label)
	return ResponseBody{
		Success:    false,
		StatusCode: http.StatusForbidden,
		Error:      "Cannot " + operationLabel + " posted " + label,
		Details: ResponseDetails{
			RecordType: label,
			Operation:  operationLabel,
			Reason:     ReasonPosted,
		},
	}
}

// BuildAllowedResponse formats the 200 body for an allowed operation.
func BuildAllowedResponse(label, operationLabel string) ResponseBody {
	label = resolveLabel(label)
	return ResponseBody{
		Success:    true,
		StatusCode: http.StatusOK,
		Message:    label + " can be " + pastTense(operationLabel),
		Details: ResponseDetails{
			RecordType: label,
			Operation:  operationLabel,
			Reason:     ReasonDraft,
		},
	}
}

func pastTense(verb string) string {
	if op := Operation(strings.ToLower(verb)); op.IsValid() {
		return op.pastTense()
	}
	if strings.HasSuffix(verb, "e") {
		return verb + "d"
	}
	return verb + "ed"
}
