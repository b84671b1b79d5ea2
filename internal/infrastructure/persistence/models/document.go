package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smberp/backend/internal/domain/document"
	"github.com/smberp/backend/internal/domain/posting"
)

// DocumentModel is the persistence model for the Document aggregate root
type DocumentModel struct {
	TenantAggregateModel
	Kind           string          `gorm:"type:varchar(30);not null;uniqueIndex:idx_documents_tenant_kind_number,priority:2"`
	Number         string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_documents_tenant_kind_number,priority:3"`
	Counterparty   string          `gorm:"type:varchar(200);not null"`
	CostCenterCode string          `gorm:"type:varchar(50)"`
	Description    string          `gorm:"type:varchar(500)"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DocumentDate   time.Time       `gorm:"not null;index"`
	Status         string          `gorm:"type:varchar(20);not null;default:'draft';index"`
	PostedAt       *time.Time
	PostedBy       *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "documents"
}

// ToDomain converts the persistence model to a domain Document.
// Stored statuses the policy does not recognise become posting.StatusOther.
func (m *DocumentModel) ToDomain() *document.Document {
	return &document.Document{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		Kind:                document.Kind(m.Kind),
		Number:              m.Number,
		Counterparty:        m.Counterparty,
		CostCenterCode:      m.CostCenterCode,
		Description:         m.Description,
		Amount:              m.Amount,
		DocumentDate:        m.DocumentDate,
		Status:              posting.ParseStatus(m.Status),
		PostedAt:            m.PostedAt,
		PostedBy:            m.PostedBy,
	}
}

// FromDomain populates the persistence model from a domain Document
func (m *DocumentModel) FromDomain(d *document.Document) {
	m.FromDomainTenantAggregateRoot(d.TenantAggregateRoot)
	m.Kind = d.Kind.String()
	m.Number = d.Number
	m.Counterparty = d.Counterparty
	m.CostCenterCode = d.CostCenterCode
	m.Description = d.Description
	m.Amount = d.Amount
	m.DocumentDate = d.DocumentDate
	m.Status = d.Status.String()
	m.PostedAt = d.PostedAt
	m.PostedBy = d.PostedBy
}

// DocumentModelFromDomain creates a new persistence model from domain
func DocumentModelFromDomain(d *document.Document) *DocumentModel {
	m := &DocumentModel{}
	m.FromDomain(d)
	return m
}
