package posting

import (
	"context"
	"encoding/json"

	"golang.org/x/sync/errgroup"
)

// BulkItem is one decision in a bulk result, tagged with the id it was made for.
type BulkItem[ID any] struct {
	RecordID ID
	Decision
}

// MarshalJSON flattens the decision fields next to record_id.
func (i BulkItem[ID]) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RecordID ID `json:"record_id"`
		decisionJSON
	}{i.RecordID, i.Decision.wire()})
}

// UnmarshalJSON implements json.Unmarshaler
func (i *BulkItem[ID]) UnmarshalJSON(data []byte) error {
	var in struct {
		RecordID ID `json:"record_id"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if err := i.Decision.UnmarshalJSON(data); err != nil {
		return err
	}
	i.RecordID = in.RecordID
	return nil
}

// BulkSummary counts the outcomes of a bulk validation.
type BulkSummary struct {
	Total   int `json:"total"`
	Allowed int `json:"allowed"`
	Blocked int `json:"blocked"`
}

// BulkResult aggregates per-id decisions. Success is true iff nothing was blocked.
type BulkResult[ID any] struct {
	Success bool           `json:"success"`
	Results []BulkItem[ID] `json:"results"`
	Summary BulkSummary    `json:"summary"`
}

// ValidateBulk validates op for each id in input order, one loader call per id.
// A failure for one id never stops the remaining ids from being evaluated.
func ValidateBulk[ID any](ctx context.Context, ids []ID, load Loader[ID], op Operation, label string) BulkResult[ID] {
	results := make([]BulkItem[ID], len(ids))
	for i, id := range ids {
		results[i] = BulkItem[ID]{RecordID: id, Decision: ValidateByLoader(ctx, id, load, op, label)}
	}
	return summarize(op, results)
}

// ValidateBulkConcurrent is ValidateBulk with up to limit loader calls in
// flight. Results keep input order, so the outcome equals ValidateBulk's.
// A limit below 2 falls back to sequential evaluation.
func ValidateBulkConcurrent[ID any](ctx context.Context, ids []ID, load Loader[ID], op Operation, label string, limit int) BulkResult[ID] {
	if limit < 2 || len(ids) < 2 {
		return ValidateBulk(ctx, ids, load, op, label)
	}

	results := make([]BulkItem[ID], len(ids))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, id := range ids {
		g.Go(func() error {
			results[i] = BulkItem[ID]{RecordID: id, Decision: ValidateByLoader(ctx, id, load, op, label)}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; loader failures are already decisions

	return summarize(op, results)
}

// summarize only looks at the flag for the requested operation.
func summarize[ID any](op Operation, results []BulkItem[ID]) BulkResult[ID] {
	summary := BulkSummary{Total: len(results)}
	for _, item := range results {
		if flagFor(op, item.Decision) {
			summary.Allowed++
		}
	}
	summary.Blocked = summary.Total - summary.Allowed

	return BulkResult[ID]{
		Success: summary.Blocked == 0,
		Results: results,
		Summary: summary,
	}
}

func flagFor(op Operation, d Decision) bool {
	switch op {
	case OperationUpdate:
		return d.CanUpdate()
	case OperationDelete:
		return d.CanDelete()
	default:
		return false
	}
}
