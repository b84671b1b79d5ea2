package document

import (
	"context"
	"fmt"

	"github.com/smberp/backend/internal/domain/document"
	"github.com/smberp/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// PostingAuditHandler writes an audit line whenever a document is posted or deleted
type PostingAuditHandler struct {
	logger *zap.Logger
}

// NewPostingAuditHandler creates a new handler for posting audit events
func NewPostingAuditHandler(logger *zap.Logger) *PostingAuditHandler {
	return &PostingAuditHandler{logger: logger.Named("posting_audit")}
}

// EventTypes returns the event types this handler is interested in
func (h *PostingAuditHandler) EventTypes() []string {
	return []string{
		document.EventTypeDocumentPosted,
		document.EventTypeDocumentDeleted,
	}
}

// Handle logs the audit entry for a posted or deleted document
func (h *PostingAuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *document.DocumentPostedEvent:
		h.logger.Info("document posted",
			zap.String("event_id", e.EventID().String()),
			zap.String("tenant_id", e.TenantID().String()),
			zap.String("document_id", e.AggregateID().String()),
			zap.String("kind", e.Kind.String()),
			zap.String("number", e.Number),
			zap.String("amount", e.Amount.String()),
			zap.String("posted_by", e.PostedBy.String()),
			zap.Time("posted_at", e.PostedAt),
		)
		return nil

	case *document.DocumentDeletedEvent:
		h.logger.Info("draft document deleted",
			zap.String("event_id", e.EventID().String()),
			zap.String("tenant_id", e.TenantID().String()),
			zap.String("document_id", e.AggregateID().String()),
			zap.String("kind", e.Kind.String()),
			zap.String("number", e.Number),
			zap.String("deleted_by", e.DeletedBy.String()),
		)
		return nil

	default:
		h.logger.Error("unexpected event type",
			zap.Strings("expected", h.EventTypes()),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
}
