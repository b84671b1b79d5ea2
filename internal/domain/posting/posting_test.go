package posting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	ID     int
	Status Status
}

func (r *testRecord) PostingStatus() Status { return r.Status }

func draft(id int) *testRecord     { return &testRecord{ID: id, Status: StatusDraft} }
func posted(id int) *testRecord    { return &testRecord{ID: id, Status: StatusPosted} }
func cancelled(id int) *testRecord { return &testRecord{ID: id, Status: StatusCancelled} }

// mapLoader serves records from a map and records every id it was asked for.
type mapLoader struct {
	records map[int]Record
	failing map[int]bool
	calls   []int
}

func (l *mapLoader) Load(_ context.Context, id int) (Record, error) {
	l.calls = append(l.calls, id)
	if l.failing[id] {
		return nil, errors.New("connection reset by peer")
	}
	if r, ok := l.records[id]; ok {
		return r, nil
	}
	return nil, nil
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"draft", StatusDraft},
		{"POSTED", StatusPosted},
		{" posted ", StatusPosted},
		{"cancelled", StatusCancelled},
		{"canceled", StatusCancelled},
		{"", StatusOther},
		{"archived", StatusOther},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseStatus(tt.in))
		})
	}
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "draft", StatusDraft.String())
	assert.Equal(t, "posted", StatusPosted.String())
	assert.Equal(t, "cancelled", StatusCancelled.String())
	assert.Equal(t, "other", StatusOther.String())
	assert.Equal(t, "other", Status(42).String())
}

func TestIsPostedIsDraft(t *testing.T) {
	var typedNil *testRecord

	t.Run("nil record", func(t *testing.T) {
		assert.False(t, IsPosted(nil))
		assert.False(t, IsDraft(nil))
	})
	t.Run("typed nil pointer", func(t *testing.T) {
		assert.False(t, IsPosted(typedNil))
		assert.False(t, IsDraft(typedNil))
	})
	t.Run("posted", func(t *testing.T) {
		assert.True(t, IsPosted(posted(1)))
		assert.False(t, IsDraft(posted(1)))
	})
	t.Run("draft", func(t *testing.T) {
		assert.True(t, IsDraft(draft(1)))
		assert.False(t, IsPosted(draft(1)))
	})
	t.Run("cancelled is neither", func(t *testing.T) {
		assert.False(t, IsDraft(cancelled(1)))
		assert.False(t, IsPosted(cancelled(1)))
	})
}

func TestValidateUpdate(t *testing.T) {
	t.Run("draft invoice can be updated", func(t *testing.T) {
		d := ValidateUpdate(draft(1), "Invoice")
		assert.True(t, d.CanUpdate())
		assert.Equal(t, http.StatusOK, d.StatusCode)
		assert.Equal(t, "Invoice can be updated", d.Message)
		assert.Empty(t, d.Error)
	})

	t.Run("missing record uses default label", func(t *testing.T) {
		d := ValidateUpdate(nil, "")
		assert.False(t, d.CanUpdate())
		assert.Equal(t, http.StatusNotFound, d.StatusCode)
		assert.Equal(t, "record not found", d.Error)
	})

	t.Run("typed nil pointer is not found", func(t *testing.T) {
		var missing *testRecord
		d := ValidateUpdate(missing, "Budget")
		assert.Equal(t, http.StatusNotFound, d.StatusCode)
		assert.Equal(t, "Budget not found", d.Error)
	})

	t.Run("cancelled record is not blocked by the single-record validator", func(t *testing.T) {
		d := ValidateUpdate(cancelled(3), "Sales order")
		assert.True(t, d.Allowed)
		assert.Equal(t, "Sales order can be updated", d.Message)
	})
}

func TestValidateDeletion(t *testing.T) {
	t.Run("posted invoice cannot be deleted", func(t *testing.T) {
		d := ValidateDeletion(posted(2), "Invoice")
		assert.False(t, d.CanDelete())
		assert.Equal(t, http.StatusForbidden, d.StatusCode)
		assert.Equal(t, "Posted records cannot be modified", d.Error)
		assert.Empty(t, d.Message)
	})

	t.Run("draft can be deleted", func(t *testing.T) {
		d := ValidateDeletion(draft(2), "Purchase bill")
		assert.True(t, d.CanDelete())
		assert.False(t, d.CanUpdate())
		assert.Equal(t, "Purchase bill can be deleted", d.Message)
	})
}

func TestPostedRecordsAreNeverMutable(t *testing.T) {
	labels := []string{"", "record", "Invoice", "Production expense", "Purchase order"}
	for _, label := range labels {
		for _, op := range []Operation{OperationUpdate, OperationDelete} {
			d := Validate(posted(7), op, label)
			assert.False(t, d.Allowed, "label=%q op=%s", label, op)
			assert.Equal(t, http.StatusForbidden, d.StatusCode)
			assert.Equal(t, MsgPostedImmutable, d.Error)
		}
	}
}

func TestDraftRecordsAreAlwaysMutable(t *testing.T) {
	for _, op := range []Operation{OperationUpdate, OperationDelete} {
		d := Validate(draft(1), op, "Invoice")
		assert.True(t, d.Allowed)
		assert.Equal(t, http.StatusOK, d.StatusCode)
	}
}

func TestNotFoundEmbedsLabelVerbatim(t *testing.T) {
	for _, op := range []Operation{OperationUpdate, OperationDelete} {
		assert.Equal(t, "INVOICE not found", Validate(nil, op, "INVOICE").Error)
		assert.Equal(t, "record not found", Validate(nil, op, "").Error)
		assert.Equal(t, http.StatusNotFound, Validate(nil, op, "x").StatusCode)
	}
}

func TestValidate_UnsupportedOperation(t *testing.T) {
	d := Validate(draft(1), Operation("archive"), "Invoice")
	assert.False(t, d.Allowed)
	assert.Equal(t, http.StatusBadRequest, d.StatusCode)
	assert.Equal(t, "Unsupported operation: archive", d.Error)
}

func TestValidationIsIdempotent(t *testing.T) {
	records := []Record{nil, draft(1), posted(2), cancelled(3), &testRecord{Status: StatusOther}}
	for _, r := range records {
		for _, op := range []Operation{OperationUpdate, OperationDelete} {
			first, err := json.Marshal(Validate(r, op, "Invoice"))
			require.NoError(t, err)
			second, err := json.Marshal(Validate(r, op, "Invoice"))
			require.NoError(t, err)
			assert.Equal(t, first, second)
		}
	}
}

func TestValidateByLoader(t *testing.T) {
	ctx := context.Background()

	t.Run("delegates to the validator", func(t *testing.T) {
		loader := &mapLoader{records: map[int]Record{1: draft(1), 2: posted(2)}}

		d := ValidateByLoader(ctx, 1, loader.Load, OperationUpdate, "Invoice")
		assert.True(t, d.CanUpdate())

		d = ValidateByLoader(ctx, 2, loader.Load, OperationDelete, "Invoice")
		assert.Equal(t, http.StatusForbidden, d.StatusCode)

		d = ValidateByLoader(ctx, 3, loader.Load, OperationDelete, "Invoice")
		assert.Equal(t, http.StatusNotFound, d.StatusCode)
		assert.Equal(t, "Invoice not found", d.Error)

		assert.Equal(t, []int{1, 2, 3}, loader.calls)
	})

	t.Run("loader failure becomes a 500 decision", func(t *testing.T) {
		loader := &mapLoader{failing: map[int]bool{9: true}}

		d := ValidateByLoader(ctx, 9, loader.Load, OperationUpdate, "Purchase Bill")
		assert.False(t, d.Allowed)
		assert.Equal(t, http.StatusInternalServerError, d.StatusCode)
		assert.Equal(t, "Failed to retrieve purchase bill for validation", d.Error)
		assert.NotContains(t, d.Error, "connection reset")
	})

	t.Run("panicking loader becomes a 500 decision", func(t *testing.T) {
		load := func(_ context.Context, _ int) (Record, error) {
			var cache map[int]Record
			cache[1] = draft(1)
			return nil, nil
		}

		var d Decision
		require.NotPanics(t, func() {
			d = ValidateByLoader(ctx, 1, load, OperationUpdate, "Sales Order")
		})
		assert.False(t, d.Allowed)
		assert.Equal(t, http.StatusInternalServerError, d.StatusCode)
		assert.Equal(t, "Failed to retrieve sales order for validation", d.Error)
	})

	t.Run("default label on loader failure", func(t *testing.T) {
		loader := &mapLoader{failing: map[int]bool{1: true}}
		d := ValidateByLoader(ctx, 1, loader.Load, OperationDelete, "")
		assert.Equal(t, "Failed to retrieve record for validation", d.Error)
	})

	t.Run("unsupported operation does not call the loader", func(t *testing.T) {
		loader := &mapLoader{records: map[int]Record{1: draft(1)}}
		d := ValidateByLoader(ctx, 1, loader.Load, Operation("post"), "Invoice")
		assert.Equal(t, http.StatusBadRequest, d.StatusCode)
		assert.Empty(t, loader.calls)
	})

	t.Run("string ids", func(t *testing.T) {
		load := func(_ context.Context, id string) (Record, error) {
			if id == "INV-1" {
				return posted(1), nil
			}
			return nil, nil
		}
		assert.Equal(t, http.StatusForbidden, ValidateByLoader(ctx, "INV-1", load, OperationUpdate, "Invoice").StatusCode)
		assert.Equal(t, http.StatusNotFound, ValidateByLoader(ctx, "INV-2", load, OperationUpdate, "Invoice").StatusCode)
	})
}

func TestGetAllowedOperations(t *testing.T) {
	tests := []struct {
		name   string
		record Record
		want   AllowedOperations
	}{
		{"nil", nil, AllowedOperations{}},
		{"draft", draft(1), AllowedOperations{CanRead: true, CanUpdate: true, CanDelete: true, CanPost: true}},
		{"posted", posted(1), AllowedOperations{CanRead: true}},
		{"cancelled", cancelled(1), AllowedOperations{CanRead: true}},
		{"unknown", &testRecord{Status: StatusOther}, AllowedOperations{CanRead: true}},
		{"out of range", &testRecord{Status: Status(99)}, AllowedOperations{CanRead: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetAllowedOperations(tt.record))
		})
	}
}

func TestAllowedOperationsAgreeWithValidator(t *testing.T) {
	for _, r := range []Record{draft(1), posted(2)} {
		caps := GetAllowedOperations(r)
		assert.Equal(t, caps.CanUpdate, ValidateUpdate(r, "Invoice").Allowed)
		assert.Equal(t, caps.CanDelete, ValidateDeletion(r, "Invoice").Allowed)
		assert.Equal(t, caps.CanUpdate, caps.Permits(OperationUpdate))
		assert.Equal(t, caps.CanDelete, caps.Permits(OperationDelete))
	}
	assert.False(t, AllowedOperations{CanRead: true, CanUpdate: true}.Permits(Operation("post")))
}

func TestDecision_MarshalJSON(t *testing.T) {
	body, err := json.Marshal(ValidateUpdate(draft(1), "Invoice"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"operation":"update","allowed":true,"can_update":true,"status_code":200,"message":"Invoice can be updated"}`, string(body))

	body, err = json.Marshal(ValidateDeletion(posted(2), "Invoice"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"operation":"delete","allowed":false,"can_delete":false,"status_code":403,"error":"Posted records cannot be modified"}`, string(body))

	var decoded Decision
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, ValidateDeletion(posted(2), "Invoice"), decoded)
}
