package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smberp/backend/internal/domain/document"
	"github.com/smberp/backend/internal/domain/posting"
	"github.com/smberp/backend/internal/domain/shared"
	"github.com/smberp/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormDocumentRepository implements document.Repository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

var _ document.Repository = (*GormDocumentRepository)(nil)

// FindByIDForTenant finds a document by ID for a specific tenant
func (r *GormDocumentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*document.Document, error) {
	var model models.DocumentModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists documents of one kind for a tenant
func (r *GormDocumentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter document.Filter) ([]document.Document, error) {
	var rows []models.DocumentModel
	query := r.db.WithContext(ctx).Model(&models.DocumentModel{}).
		Where("tenant_id = ?", tenantID)
	query = r.applyFilter(query, filter)

	sortField := ValidateSortField(filter.OrderBy, DocumentSortFields, "created_at")
	query = query.Order(fmt.Sprintf("%s %s", sortField, ValidateSortOrder(filter.OrderDir)))
	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if offset := filter.Offset(); offset > 0 {
			query = query.Offset(offset)
		}
	}

	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	docs := make([]document.Document, len(rows))
	for i := range rows {
		docs[i] = *rows[i].ToDomain()
	}
	return docs, nil
}

// CountForTenant counts documents matching filter, ignoring pagination
func (r *GormDocumentRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter document.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.DocumentModel{}).
		Where("tenant_id = ?", tenantID)
	if err := r.applyFilter(query, filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormDocumentRepository) applyFilter(query *gorm.DB, filter document.Filter) *gorm.DB {
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind.String())
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("(LOWER(number) LIKE ? OR LOWER(counterparty) LIKE ?)", pattern, pattern)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", filter.Status.String())
	}
	if filter.FromDate != nil {
		query = query.Where("document_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("document_date <= ?", *filter.ToDate)
	}
	return query
}

// Save creates or updates a document
func (r *GormDocumentRepository) Save(ctx context.Context, doc *document.Document) error {
	return r.db.WithContext(ctx).Save(models.DocumentModelFromDomain(doc)).Error
}

// SaveWithLock updates the document only if the stored version is the one it
// was loaded with, then bumps the version. New documents are inserted.
func (r *GormDocumentRepository) SaveWithLock(ctx context.Context, doc *document.Document) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.DocumentModel
		if err := tx.Select("version").Where("id = ?", doc.ID).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return tx.Create(models.DocumentModelFromDomain(doc)).Error
			}
			return err
		}

		if current.Version != doc.Version {
			return shared.ErrConcurrencyConflict
		}

		model := models.DocumentModelFromDomain(doc)
		model.Version = doc.Version + 1
		result := tx.Model(&models.DocumentModel{}).
			Where("id = ? AND version = ?", doc.ID, doc.Version).
			Updates(map[string]any{
				"counterparty":     model.Counterparty,
				"cost_center_code": model.CostCenterCode,
				"description":      model.Description,
				"amount":           model.Amount,
				"document_date":    model.DocumentDate,
				"status":           model.Status,
				"posted_at":        model.PostedAt,
				"posted_by":        model.PostedBy,
				"version":          model.Version,
				"updated_at":       model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		doc.IncrementVersion()
		return nil
	})
}

// DeleteWithLock deletes the document only if the stored row is still the
// draft it was loaded as. A concurrent post or edit bumps the version, so the
// delete matches nothing and reports a conflict.
func (r *GormDocumentRepository) DeleteWithLock(ctx context.Context, doc *document.Document) error {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ? AND version = ? AND status = ?",
			doc.TenantID, doc.ID, doc.Version, posting.StatusDraft.String()).
		Delete(&models.DocumentModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// GenerateNumber returns PREFIX-YYYYMM-NNNNN, counting this month's documents of the kind
func (r *GormDocumentRepository) GenerateNumber(ctx context.Context, tenantID uuid.UUID, kind document.Kind) (string, error) {
	prefix := fmt.Sprintf("%s-%s-", kind.NumberPrefix(), time.Now().Format("200601"))

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.DocumentModel{}).
		Where("tenant_id = ? AND kind = ? AND number LIKE ?", tenantID, kind.String(), prefix+"%").
		Count(&count).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}
