package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/smberp/backend/internal/domain/shared"
)

// TenantAggregateModel holds the persistence fields shared by tenant-scoped aggregates
type TenantAggregateModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	CreatedBy *uuid.UUID `gorm:"type:uuid;index"`
	Version   int        `gorm:"not null;default:1"`
	CreatedAt time.Time  `gorm:"not null"`
	UpdatedAt time.Time  `gorm:"not null"`
}

// FromDomainTenantAggregateRoot populates the model from a domain aggregate root
func (m *TenantAggregateModel) FromDomainTenantAggregateRoot(t shared.TenantAggregateRoot) {
	m.ID = t.ID
	m.TenantID = t.TenantID
	m.CreatedBy = t.CreatedBy
	m.Version = t.Version
	m.CreatedAt = t.CreatedAt
	m.UpdatedAt = t.UpdatedAt
}

// ToDomainTenantAggregateRoot rebuilds the domain aggregate root fields
func (m *TenantAggregateModel) ToDomainTenantAggregateRoot() shared.TenantAggregateRoot {
	return shared.TenantAggregateRoot{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		TenantID:  m.TenantID,
		CreatedBy: m.CreatedBy,
	}
}
