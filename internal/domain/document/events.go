package document

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smberp/backend/internal/domain/shared"
)

const (
	EventTypeDocumentCreated = "DocumentCreated"
	EventTypeDocumentUpdated = "DocumentUpdated"
	EventTypeDocumentPosted  = "DocumentPosted"
	EventTypeDocumentDeleted = "DocumentDeleted"

	aggregateType = "Document"
)

// DocumentCreatedEvent is raised when a draft document is created
type DocumentCreatedEvent struct {
	shared.BaseDomainEvent
	Kind   Kind            `json:"kind"`
	Number string          `json:"number"`
	Amount decimal.Decimal `json:"amount"`
}

// NewDocumentCreatedEvent creates a new DocumentCreatedEvent
func NewDocumentCreatedEvent(d *Document) *DocumentCreatedEvent {
	return &DocumentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentCreated, aggregateType, d.ID, d.TenantID),
		Kind:            d.Kind,
		Number:          d.Number,
		Amount:          d.Amount,
	}
}

// DocumentUpdatedEvent is raised when a draft document is edited
type DocumentUpdatedEvent struct {
	shared.BaseDomainEvent
	Kind   Kind            `json:"kind"`
	Number string          `json:"number"`
	Amount decimal.Decimal `json:"amount"`
}

// NewDocumentUpdatedEvent creates a new DocumentUpdatedEvent
func NewDocumentUpdatedEvent(d *Document) *DocumentUpdatedEvent {
	return &DocumentUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentUpdated, aggregateType, d.ID, d.TenantID),
		Kind:            d.Kind,
		Number:          d.Number,
		Amount:          d.Amount,
	}
}

// DocumentPostedEvent is raised when a document becomes immutable
type DocumentPostedEvent struct {
	shared.BaseDomainEvent
	Kind     Kind            `json:"kind"`
	Number   string          `json:"number"`
	Amount   decimal.Decimal `json:"amount"`
	PostedBy uuid.UUID       `json:"posted_by"`
	PostedAt time.Time       `json:"posted_at"`
}

// NewDocumentPostedEvent creates a new DocumentPostedEvent
func NewDocumentPostedEvent(d *Document) *DocumentPostedEvent {
	postedAt := shared.Now()
	if d.PostedAt != nil {
		postedAt = *d.PostedAt
	}
	var postedBy uuid.UUID
	if d.PostedBy != nil {
		postedBy = *d.PostedBy
	}
	return &DocumentPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentPosted, aggregateType, d.ID, d.TenantID),
		Kind:            d.Kind,
		Number:          d.Number,
		Amount:          d.Amount,
		PostedBy:        postedBy,
		PostedAt:        postedAt,
	}
}

// DocumentDeletedEvent is raised when a draft document is removed
type DocumentDeletedEvent struct {
	shared.BaseDomainEvent
	Kind      Kind      `json:"kind"`
	Number    string    `json:"number"`
	DeletedBy uuid.UUID `json:"deleted_by"`
}

// NewDocumentDeletedEvent creates a new DocumentDeletedEvent
func NewDocumentDeletedEvent(d *Document, deletedBy uuid.UUID) *DocumentDeletedEvent {
	return &DocumentDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentDeleted, aggregateType, d.ID, d.TenantID),
		Kind:            d.Kind,
		Number:          d.Number,
		DeletedBy:       deletedBy,
	}
}
