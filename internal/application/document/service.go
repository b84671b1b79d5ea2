package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/smberp/backend/internal/domain/document"
	"github.com/smberp/backend/internal/domain/posting"
	"github.com/smberp/backend/internal/domain/shared"
	"github.com/smberp/backend/internal/infrastructure/config"
	"github.com/smberp/backend/internal/infrastructure/logger"
	"github.com/smberp/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Service provides application-level document operations. Every mutation is
// checked against the posting policy before the aggregate is touched.
type Service struct {
	repo      document.Repository
	publisher shared.EventPublisher
	metrics   *telemetry.PostingMetrics
	logger    *zap.Logger
	cfg       config.PostingConfig
}

// NewService creates a new document Service. publisher and metrics may be nil.
func NewService(
	repo document.Repository,
	publisher shared.EventPublisher,
	metrics *telemetry.PostingMetrics,
	log *zap.Logger,
	cfg config.PostingConfig,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BulkConcurrency < 1 {
		cfg.BulkConcurrency = 1
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		metrics:   metrics,
		logger:    log,
		cfg:       cfg,
	}
}

// Loader adapts the repository into a posting loader bound to one tenant and kind.
// Missing documents and documents of another kind load as a nil record.
func (s *Service) Loader(tenantID uuid.UUID, kind document.Kind) posting.Loader[uuid.UUID] {
	return func(ctx context.Context, id uuid.UUID) (posting.Record, error) {
		doc, err := s.repo.FindByIDForTenant(ctx, tenantID, id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		if doc == nil || doc.Kind != kind {
			return nil, nil
		}
		return doc, nil
	}
}

// Create creates a draft document with a generated number
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, kind document.Kind, req CreateRequest) (*Response, error) {
	ctx, span := telemetry.StartSpan(ctx, "document.create",
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrDocumentKind, kind.String(),
	)
	defer span.End()

	if !kind.IsValid() {
		err := shared.NewDomainError("INVALID_KIND", fmt.Sprintf("Unsupported document kind: %s", kind))
		telemetry.RecordError(span, err)
		return nil, err
	}

	number, err := s.repo.GenerateNumber(ctx, tenantID, kind)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to generate document number: %w", err)
	}

	doc, err := document.NewDocument(tenantID, kind, number, req.input())
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if req.CreatedBy != nil {
		doc.SetCreatedBy(*req.CreatedBy)
	}

	if err := s.repo.Save(ctx, doc); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrDocumentID, doc.ID.String(),
		telemetry.SpanAttrDocumentNumber, doc.Number,
	)

	s.publishEvents(ctx, doc)

	logger.L(ctx).Info("Document created",
		zap.String("document_id", doc.ID.String()),
		zap.String("kind", kind.String()),
		zap.String("number", doc.Number),
	)
	return ToResponse(doc), nil
}

// Get returns a document together with its allowed operations
func (s *Service) Get(ctx context.Context, tenantID uuid.UUID, kind document.Kind, id uuid.UUID) (*Response, error) {
	doc, err := s.find(ctx, tenantID, kind, id)
	if err != nil {
		return nil, err
	}
	return ToResponse(doc), nil
}

// List lists documents of one kind with filtering and pagination
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, kind document.Kind, filter ListFilter) (*shared.Paginated[Response], error) {
	domainFilter := filter.toDomain(kind)

	docs, err := s.repo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}

	items := make([]Response, 0, len(docs))
	for i := range docs {
		items = append(items, *ToResponse(&docs[i]))
	}
	result := shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize)
	return &result, nil
}

// Permissions returns the allowed-operations vector for a document
func (s *Service) Permissions(ctx context.Context, tenantID uuid.UUID, kind document.Kind, id uuid.UUID) (posting.AllowedOperations, error) {
	doc, err := s.find(ctx, tenantID, kind, id)
	if err != nil {
		return posting.AllowedOperations{}, err
	}
	return doc.AllowedOperations(), nil
}

// Update replaces the editable fields of a draft document.
// A posted or missing document yields a *posting.Violation.
func (s *Service) Update(ctx context.Context, tenantID uuid.UUID, kind document.Kind, id uuid.UUID, req UpdateRequest) (*Response, error) {
	ctx, span := telemetry.StartSpan(ctx, "document.update",
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrDocumentKind, kind.String(),
		telemetry.SpanAttrDocumentID, id.String(),
	)
	defer span.End()

	if _, err := s.enforce(ctx, tenantID, kind, id, posting.OperationUpdate); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	doc, err := s.find(ctx, tenantID, kind, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := doc.Update(req.input()); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.repo.SaveWithLock(ctx, doc); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, doc)

	logger.L(ctx).Info("Document updated",
		zap.String("document_id", doc.ID.String()),
		zap.String("number", doc.Number),
		zap.Int("version", doc.Version),
	)
	return ToResponse(doc), nil
}

// Delete removes a draft document. A posted or missing document yields a *posting.Violation.
func (s *Service) Delete(ctx context.Context, tenantID uuid.UUID, kind document.Kind, id, userID uuid.UUID) error {
	ctx, span := telemetry.StartSpan(ctx, "document.delete",
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrDocumentKind, kind.String(),
		telemetry.SpanAttrDocumentID, id.String(),
	)
	defer span.End()

	if _, err := s.enforce(ctx, tenantID, kind, id, posting.OperationDelete); err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	doc, err := s.find(ctx, tenantID, kind, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := doc.MarkDeleted(userID); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := s.repo.DeleteWithLock(ctx, doc); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			// Re-check so a document posted in the meantime reports the posting violation
			if _, verr := s.enforce(ctx, tenantID, kind, id, posting.OperationDelete); verr != nil {
				err = verr
			}
		}
		telemetry.RecordError(span, err)
		return err
	}

	s.publishEvents(ctx, doc)

	logger.L(ctx).Info("Document deleted",
		zap.String("document_id", id.String()),
		zap.String("number", doc.Number),
	)
	return nil
}

// Post moves a draft document into posted status
func (s *Service) Post(ctx context.Context, tenantID uuid.UUID, kind document.Kind, id, userID uuid.UUID) (*Response, error) {
	ctx, span := telemetry.StartSpan(ctx, "document.post",
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrDocumentKind, kind.String(),
		telemetry.SpanAttrDocumentID, id.String(),
	)
	defer span.End()

	doc, err := s.find(ctx, tenantID, kind, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := doc.Post(userID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.repo.SaveWithLock(ctx, doc); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrDocumentNumber, doc.Number)

	s.publishEvents(ctx, doc)

	logger.L(ctx).Info("Document posted",
		zap.String("document_id", doc.ID.String()),
		zap.String("number", doc.Number),
		zap.String("posted_by", userID.String()),
	)
	return ToResponse(doc), nil
}

// Validate returns the posting decision for op on a single document
func (s *Service) Validate(ctx context.Context, tenantID uuid.UUID, kind document.Kind, id uuid.UUID, op posting.Operation) posting.Decision {
	ctx, span := telemetry.StartSpan(ctx, "posting.validate",
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrDocumentKind, kind.String(),
		telemetry.SpanAttrDocumentID, id.String(),
		telemetry.SpanAttrOperation, op.String(),
	)
	defer span.End()

	decision := posting.ValidateByLoader(ctx, id, s.Loader(tenantID, kind), op, kind.Label())
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAllowed, decision.Allowed,
		telemetry.SpanAttrStatusCode, decision.StatusCode,
	)
	s.observe(ctx, kind, id, decision)
	return decision
}

// ValidateBulk returns one decision per id in input order. Requests above the
// configured id limit are rejected before any document is loaded.
func (s *Service) ValidateBulk(ctx context.Context, tenantID uuid.UUID, kind document.Kind, ids []uuid.UUID, op posting.Operation) (*posting.BulkResult[uuid.UUID], error) {
	ctx, span := telemetry.StartSpan(ctx, "posting.validate_bulk",
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrDocumentKind, kind.String(),
		telemetry.SpanAttrOperation, op.String(),
		telemetry.SpanAttrBulkTotal, len(ids),
	)
	defer span.End()

	if s.cfg.BulkMaxIDs > 0 && len(ids) > s.cfg.BulkMaxIDs {
		err := shared.NewDomainError(shared.ErrInvalidInput.Code,
			fmt.Sprintf("Too many ids in bulk validation request: %d (max %d)", len(ids), s.cfg.BulkMaxIDs))
		telemetry.RecordError(span, err)
		return nil, err
	}

	load := s.Loader(tenantID, kind)
	var result posting.BulkResult[uuid.UUID]
	if s.cfg.BulkConcurrency > 1 {
		result = posting.ValidateBulkConcurrent(ctx, ids, load, op, kind.Label(), s.cfg.BulkConcurrency)
	} else {
		result = posting.ValidateBulk(ctx, ids, load, op, kind.Label())
	}

	decisions := make([]posting.Decision, len(result.Results))
	for i, item := range result.Results {
		decisions[i] = item.Decision
	}
	s.metrics.RecordBulk(ctx, kind.String(), op, decisions)
	telemetry.SetAttributes(span, telemetry.SpanAttrBulkBlocked, result.Summary.Blocked)

	logger.L(ctx).Debug("Bulk posting validation",
		zap.String("kind", kind.String()),
		zap.String("operation", op.String()),
		zap.Int("total", result.Summary.Total),
		zap.Int("allowed", result.Summary.Allowed),
		zap.Int("blocked", result.Summary.Blocked),
	)
	return &result, nil
}

// enforce runs the posting guard for a mutation and records the decision
func (s *Service) enforce(ctx context.Context, tenantID uuid.UUID, kind document.Kind, id uuid.UUID, op posting.Operation) (posting.Decision, error) {
	decision, err := posting.Enforce(ctx, id, s.Loader(tenantID, kind), op, kind.Label())
	s.observe(ctx, kind, id, decision)
	return decision, err
}

func (s *Service) observe(ctx context.Context, kind document.Kind, id uuid.UUID, d posting.Decision) {
	s.metrics.RecordDecision(ctx, kind.String(), d)

	fields := []zap.Field{
		zap.String("kind", kind.String()),
		zap.String("document_id", id.String()),
		zap.String("operation", d.Operation.String()),
		zap.Bool("allowed", d.Allowed),
		zap.Int("status_code", d.StatusCode),
	}
	if d.StatusCode >= 500 {
		logger.L(ctx).Warn("Posting decision failed to load record", append(fields, zap.String("error", d.Error))...)
		return
	}
	logger.L(ctx).Debug("Posting decision", fields...)
}

// find loads a document of the given kind; anything else is shared.ErrNotFound
func (s *Service) find(ctx context.Context, tenantID uuid.UUID, kind document.Kind, id uuid.UUID) (*document.Document, error) {
	doc, err := s.repo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if doc == nil || doc.Kind != kind {
		return nil, shared.NewDomainError(shared.ErrNotFound.Code, kind.Label()+" not found")
	}
	return doc, nil
}

// publishEvents hands the aggregate's pending events to the bus.
// Publish failures are logged, not returned.
func (s *Service) publishEvents(ctx context.Context, doc *document.Document) {
	events := doc.GetDomainEvents()
	doc.ClearDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish document events",
			zap.String("document_id", doc.ID.String()),
			zap.Int("event_count", len(events)),
			zap.Error(err),
		)
	}
}
