package posting

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBulk(t *testing.T) {
	ctx := context.Background()

	t.Run("one posted record blocks the batch", func(t *testing.T) {
		loader := &mapLoader{records: map[int]Record{1: draft(1), 2: posted(2), 3: draft(3)}}

		result := ValidateBulk(ctx, []int{1, 2, 3}, loader.Load, OperationDelete, "Invoice")

		assert.False(t, result.Success)
		assert.Equal(t, BulkSummary{Total: 3, Allowed: 2, Blocked: 1}, result.Summary)
		require.Len(t, result.Results, 3)
		assert.False(t, result.Results[1].CanDelete())
		assert.Equal(t, 2, result.Results[1].RecordID)
		assert.Equal(t, []int{1, 2, 3}, loader.calls)
	})

	t.Run("empty input succeeds", func(t *testing.T) {
		loader := &mapLoader{}
		result := ValidateBulk(ctx, nil, loader.Load, OperationUpdate, "Invoice")

		assert.True(t, result.Success)
		assert.Empty(t, result.Results)
		assert.Equal(t, BulkSummary{}, result.Summary)
		assert.Empty(t, loader.calls)
	})

	t.Run("loader failure blocks only its own id", func(t *testing.T) {
		loader := &mapLoader{
			records: map[int]Record{1: draft(1), 3: draft(3), 4: draft(4)},
			failing: map[int]bool{2: true},
		}

		result := ValidateBulk(ctx, []int{1, 2, 3, 4}, loader.Load, OperationUpdate, "Budget")

		assert.Equal(t, BulkSummary{Total: 4, Allowed: 3, Blocked: 1}, result.Summary)
		assert.Equal(t, http.StatusInternalServerError, result.Results[1].StatusCode)
		assert.Equal(t, "Failed to retrieve budget for validation", result.Results[1].Error)
		assert.Equal(t, []int{1, 2, 3, 4}, loader.calls)
	})

	t.Run("all drafts", func(t *testing.T) {
		loader := &mapLoader{records: map[int]Record{1: draft(1), 2: draft(2)}}
		result := ValidateBulk(ctx, []int{1, 2}, loader.Load, OperationUpdate, "Invoice")
		assert.True(t, result.Success)
		assert.Equal(t, 2, result.Summary.Allowed)
	})

	t.Run("summary counts only the requested flag", func(t *testing.T) {
		loader := &mapLoader{records: map[int]Record{1: draft(1), 2: draft(2)}}
		result := ValidateBulk(ctx, []int{1, 2}, loader.Load, OperationDelete, "Invoice")
		for _, item := range result.Results {
			assert.False(t, item.CanUpdate())
			assert.True(t, item.CanDelete())
		}
		assert.True(t, result.Success)
	})

	t.Run("totals always add up", func(t *testing.T) {
		loader := &mapLoader{
			records: map[int]Record{1: draft(1), 2: posted(2), 4: cancelled(4)},
			failing: map[int]bool{5: true},
		}
		ids := []int{1, 2, 3, 4, 5, 1}
		for _, op := range []Operation{OperationUpdate, OperationDelete} {
			result := ValidateBulk(ctx, ids, loader.Load, op, "Invoice")
			assert.Equal(t, len(ids), result.Summary.Total)
			assert.Equal(t, result.Summary.Total, result.Summary.Allowed+result.Summary.Blocked)
			assert.Equal(t, result.Summary.Blocked == 0, result.Success)
		}
	})
}

func TestValidateBulkConcurrent(t *testing.T) {
	ctx := context.Background()
	records := map[int]Record{1: draft(1), 2: posted(2), 3: draft(3), 5: cancelled(5)}

	var mu sync.Mutex
	calls := 0
	load := func(_ context.Context, id int) (Record, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		if r, ok := records[id]; ok {
			return r, nil
		}
		return nil, nil
	}

	ids := []int{1, 2, 3, 4, 5, 6, 7, 8}
	sequential := ValidateBulk(ctx, ids, load, OperationUpdate, "Invoice")
	calls = 0
	concurrent := ValidateBulkConcurrent(ctx, ids, load, OperationUpdate, "Invoice", 4)

	assert.Equal(t, sequential, concurrent)
	assert.Equal(t, len(ids), calls)
	for i, item := range concurrent.Results {
		assert.Equal(t, ids[i], item.RecordID)
	}
}

func TestValidateBulkConcurrent_LowLimitIsSequential(t *testing.T) {
	loader := &mapLoader{records: map[int]Record{1: draft(1), 2: draft(2), 3: posted(3)}}
	result := ValidateBulkConcurrent(context.Background(), []int{3, 1, 2}, loader.Load, OperationDelete, "Invoice", 1)

	assert.Equal(t, []int{3, 1, 2}, loader.calls)
	assert.Equal(t, BulkSummary{Total: 3, Allowed: 2, Blocked: 1}, result.Summary)
}

func TestBulkItem_JSON(t *testing.T) {
	loader := &mapLoader{records: map[int]Record{1: draft(1), 2: posted(2)}}
	result := ValidateBulk(context.Background(), []int{1, 2}, loader.Load, OperationDelete, "Invoice")

	body, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"success": false,
		"results": [
			{"record_id":1,"operation":"delete","allowed":true,"can_delete":true,"status_code":200,"message":"Invoice can be deleted"},
			{"record_id":2,"operation":"delete","allowed":false,"can_delete":false,"status_code":403,"error":"Posted records cannot be modified"}
		],
		"summary": {"total":2,"allowed":1,"blocked":1}
	}`, string(body))

	var decoded BulkResult[int]
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, result, decoded)
}

func TestValidateBulk_PanickingLoader(t *testing.T) {
	ctx := context.Background()
	ids := []int{1, 2, 3}

	newLoader := func() (Loader[int], func() []int) {
		var mu sync.Mutex
		var seen []int
		load := func(_ context.Context, id int) (Record, error) {
			mu.Lock()
			seen = append(seen, id)
			mu.Unlock()
			if id == 2 {
				var index map[int]bool
				index[id] = true
			}
			return draft(id), nil
		}
		return load, func() []int {
			mu.Lock()
			defer mu.Unlock()
			return append([]int(nil), seen...)
		}
	}

	check := func(t *testing.T, result BulkResult[int], seen []int) {
		t.Helper()
		assert.ElementsMatch(t, ids, seen)
		assert.Equal(t, BulkSummary{Total: 3, Allowed: 2, Blocked: 1}, result.Summary)
		require.Len(t, result.Results, 3)
		assert.True(t, result.Results[0].CanUpdate())
		assert.Equal(t, http.StatusInternalServerError, result.Results[1].StatusCode)
		assert.Equal(t, "Failed to retrieve invoice for validation", result.Results[1].Error)
		assert.True(t, result.Results[2].CanUpdate())
	}

	t.Run("sequential", func(t *testing.T) {
		load, seen := newLoader()
		var result BulkResult[int]
		require.NotPanics(t, func() {
			result = ValidateBulk(ctx, ids, load, OperationUpdate, "Invoice")
		})
		check(t, result, seen())
		assert.Equal(t, ids, seen())
	})

	t.Run("concurrent", func(t *testing.T) {
		load, seen := newLoader()
		result := ValidateBulkConcurrent(ctx, ids, load, OperationUpdate, "Invoice", 3)
		check(t, result, seen())
	})
}
