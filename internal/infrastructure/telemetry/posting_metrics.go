package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/smberp/backend/internal/domain/posting"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics constructor receives no meter
var ErrMeterNil = errors.New("telemetry: meter is nil")

// Metric names
const (
	MetricPostingDecisions = "erp_posting_decisions_total"
	MetricPostingBulkSize  = "erp_posting_bulk_size"
)

// Attribute keys on posting metrics
var (
	AttrOperation    = attribute.Key("operation")
	AttrAllowed      = attribute.Key("allowed")
	AttrStatusCode   = attribute.Key("status_code")
	AttrDocumentKind = attribute.Key("document_kind")
)

var bulkSizeBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500}

// PostingMetrics counts guard decisions and bulk request sizes
type PostingMetrics struct {
	decisions metric.Int64Counter
	bulkSize  metric.Int64Histogram
}

// NewPostingMetrics registers the posting instruments on meter
func NewPostingMetrics(meter metric.Meter) (*PostingMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	decisions, err := meter.Int64Counter(MetricPostingDecisions,
		metric.WithDescription("Posting guard decisions by operation and outcome"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", MetricPostingDecisions, err)
	}
	bulkSize, err := meter.Int64Histogram(MetricPostingBulkSize,
		metric.WithDescription("Number of ids per bulk validation request"),
		metric.WithUnit("{id}"),
		metric.WithExplicitBucketBoundaries(bulkSizeBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", MetricPostingBulkSize, err)
	}
	return &PostingMetrics{decisions: decisions, bulkSize: bulkSize}, nil
}

// RecordDecision counts one decision. kind may be empty.
func (m *PostingMetrics) RecordDecision(ctx context.Context, kind string, d posting.Decision) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		AttrOperation.String(d.Operation.String()),
		AttrAllowed.Bool(d.Allowed),
		AttrStatusCode.String(strconv.Itoa(d.StatusCode)),
	}
	if kind != "" {
		attrs = append(attrs, AttrDocumentKind.String(kind))
	}
	m.decisions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordBulk records the request size and counts every item decision
func (m *PostingMetrics) RecordBulk(ctx context.Context, kind string, op posting.Operation, decisions []posting.Decision) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{AttrOperation.String(op.String())}
	if kind != "" {
		attrs = append(attrs, AttrDocumentKind.String(kind))
	}
	m.bulkSize.Record(ctx, int64(len(decisions)), metric.WithAttributes(attrs...))
	for _, d := range decisions {
		m.RecordDecision(ctx, kind, d)
	}
}
