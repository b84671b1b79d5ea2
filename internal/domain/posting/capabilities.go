package posting

// AllowedOperations is the capability vector a record's status implies.
type AllowedOperations struct {
	CanRead   bool `json:"can_read"`
	CanUpdate bool `json:"can_update"`
	CanDelete bool `json:"can_delete"`
	CanPost   bool `json:"can_post"`
}

var (
	noAccess   = AllowedOperations{}
	fullAccess = AllowedOperations{CanRead: true, CanUpdate: true, CanDelete: true, CanPost: true}
	readOnly   = AllowedOperations{CanRead: true}
)

// GetAllowedOperations derives the capability vector for r. Only drafts are
// writable; a missing record grants nothing.
func GetAllowedOperations(r Record) AllowedOperations {
	if isAbsent(r) {
		return noAccess
	}
	switch r.PostingStatus() {
	case StatusDraft:
		return fullAccess
	case StatusPosted:
		return readOnly
	case StatusCancelled:
		return readOnly
	case StatusOther:
		return readOnly
	default:
		return readOnly
	}
}

// Permits reports the flag matching op. Unsupported operations are never permitted.
func (a AllowedOperations) Permits(op Operation) bool {
	switch op {
	case OperationUpdate:
		return a.CanUpdate
	case OperationDelete:
		return a.CanDelete
	default:
		return false
	}
}
