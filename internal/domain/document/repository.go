package document

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/smberp/backend/internal/domain/posting"
	"github.com/smberp/backend/internal/domain/shared"
)

// Filter defines filtering options for document queries
type Filter struct {
	shared.Filter
	Kind     Kind            // Required: documents are always listed per kind
	Status   *posting.Status // Filter by posting status
	FromDate *time.Time      // Filter by document date range start
	ToDate   *time.Time      // Filter by document date range end
}

// Repository defines the interface for document persistence
type Repository interface {
	// FindByIDForTenant returns shared.ErrNotFound when the document does not exist
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Document, error)

	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter Filter) ([]Document, error)

	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter Filter) (int64, error)

	// Save creates or updates a document
	Save(ctx context.Context, doc *Document) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, doc *Document) error

	// DeleteWithLock removes doc only while the stored row is still a draft at
	// doc's version; otherwise it returns shared.ErrConcurrencyConflict
	DeleteWithLock(ctx context.Context, doc *Document) error

	// GenerateNumber returns the next document number for a kind, e.g. INV-202610-00042
	GenerateNumber(ctx context.Context, tenantID uuid.UUID, kind Kind) (string, error)
}
