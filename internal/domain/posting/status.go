package posting

import (
	"reflect"
	"strings"
)

// Status is the lifecycle status of a record as seen by the posting policy.
// The zero value is StatusOther.
type Status int

const (
	// StatusOther covers every status the policy does not know, including empty values.
	StatusOther Status = iota
	StatusDraft
	StatusPosted
	StatusCancelled
)

var statusNames = map[Status]string{
	StatusOther:     "other",
	StatusDraft:     "draft",
	StatusPosted:    "posted",
	StatusCancelled: "cancelled",
}

// ParseStatus maps a stored status string to a Status. Unknown strings map to StatusOther.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "draft":
		return StatusDraft
	case "posted":
		return StatusPosted
	case "cancelled", "canceled":
		return StatusCancelled
	default:
		return StatusOther
	}
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return statusNames[StatusOther]
}

// MarshalText implements encoding.TextMarshaler
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Status) UnmarshalText(text []byte) error {
	*s = ParseStatus(string(text))
	return nil
}

// Record is anything governed by the posting policy.
type Record interface {
	PostingStatus() Status
}

// IsPosted reports whether r exists and is posted.
func IsPosted(r Record) bool {
	return !isAbsent(r) && r.PostingStatus() == StatusPosted
}

// IsDraft reports whether r exists and is a draft.
func IsDraft(r Record) bool {
	return !isAbsent(r) && r.PostingStatus() == StatusDraft
}

// isAbsent treats both a nil interface and a typed nil pointer as "not found".
func isAbsent(r Record) bool {
	if r == nil {
		return true
	}
	v := reflect.ValueOf(r)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}
