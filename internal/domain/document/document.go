package document

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smberp/backend/internal/domain/posting"
	"github.com/smberp/backend/internal/domain/shared"
)

const (
	maxNumberLength       = 50
	maxCounterpartyLength = 200
	maxDescriptionLength  = 500
	maxCostCenterLength   = 50
)

// Input carries the editable fields of a document
type Input struct {
	Counterparty   string
	CostCenterCode string
	Description    string
	Amount         decimal.Decimal
	DocumentDate   time.Time
}

func (in Input) validate() error {
	if strings.TrimSpace(in.Counterparty) == "" {
		return shared.NewDomainError("INVALID_COUNTERPARTY", "Counterparty cannot be empty")
	}
	if len(in.Counterparty) > maxCounterpartyLength {
		return shared.NewDomainError("INVALID_COUNTERPARTY", fmt.Sprintf("Counterparty cannot exceed %d characters", maxCounterpartyLength))
	}
	if len(in.CostCenterCode) > maxCostCenterLength {
		return shared.NewDomainError("INVALID_COST_CENTER", fmt.Sprintf("Cost center code cannot exceed %d characters", maxCostCenterLength))
	}
	if len(in.Description) > maxDescriptionLength {
		return shared.NewDomainError("INVALID_DESCRIPTION", fmt.Sprintf("Description cannot exceed %d characters", maxDescriptionLength))
	}
	if in.Amount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount cannot be negative")
	}
	if in.DocumentDate.IsZero() {
		return shared.NewDomainError("INVALID_DATE", "Document date is required")
	}
	return nil
}

// Document is a financial record whose mutability is governed by the posting policy.
// Invoices, purchase bills, production expenses, budgets and orders share this aggregate.
type Document struct {
	shared.TenantAggregateRoot
	Kind           Kind            `json:"kind"`
	Number         string          `json:"number"`
	Counterparty   string          `json:"counterparty"`
	CostCenterCode string          `json:"cost_center_code"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	DocumentDate   time.Time       `json:"document_date"`
	Status         posting.Status  `json:"status"`
	PostedAt       *time.Time      `json:"posted_at"`
	PostedBy       *uuid.UUID      `json:"posted_by"`
}

var (
	_ shared.AggregateRoot = (*Document)(nil)
	_ posting.Record       = (*Document)(nil)
)

// NewDocument creates a draft document
func NewDocument(tenantID uuid.UUID, kind Kind, number string, in Input) (*Document, error) {
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_KIND", fmt.Sprintf("Unsupported document kind: %s", kind))
	}
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Document number cannot be empty")
	}
	if len(number) > maxNumberLength {
		return nil, shared.NewDomainError("INVALID_NUMBER", fmt.Sprintf("Document number cannot exceed %d characters", maxNumberLength))
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	doc := &Document{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Kind:                kind,
		Number:              number,
		Counterparty:        strings.TrimSpace(in.Counterparty),
		CostCenterCode:      in.CostCenterCode,
		Description:         in.Description,
		Amount:              in.Amount,
		DocumentDate:        in.DocumentDate,
		Status:              posting.StatusDraft,
	}

	doc.AddDomainEvent(NewDocumentCreatedEvent(doc))

	return doc, nil
}

// PostingStatus implements posting.Record
func (d *Document) PostingStatus() posting.Status {
	return d.Status
}

// AllowedOperations returns the capability vector for the document's current status
func (d *Document) AllowedOperations() posting.AllowedOperations {
	return posting.GetAllowedOperations(d)
}

// Update replaces the editable fields. Only drafts can be updated.
func (d *Document) Update(in Input) error {
	if err := d.ensureWritable(); err != nil {
		return err
	}
	if err := in.validate(); err != nil {
		return err
	}

	d.Counterparty = strings.TrimSpace(in.Counterparty)
	d.CostCenterCode = in.CostCenterCode
	d.Description = in.Description
	d.Amount = in.Amount
	d.DocumentDate = in.DocumentDate
	d.Touch()

	d.AddDomainEvent(NewDocumentUpdatedEvent(d))

	return nil
}

// Post moves a draft into posted status. A posted document is read-only from then on.
func (d *Document) Post(postedBy uuid.UUID) error {
	if !d.AllowedOperations().CanPost {
		if posting.IsPosted(d) {
			return shared.ErrImmutable
		}
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot post document in %s status", d.Status))
	}
	if postedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Poster user ID cannot be empty")
	}

	now := d.Touch()
	d.Status = posting.StatusPosted
	d.PostedAt = &now
	d.PostedBy = &postedBy

	d.AddDomainEvent(NewDocumentPostedEvent(d))

	return nil
}

// MarkDeleted records the deletion event. Only drafts can be deleted.
func (d *Document) MarkDeleted(deletedBy uuid.UUID) error {
	if !d.AllowedOperations().CanDelete {
		if posting.IsPosted(d) {
			return shared.ErrImmutable
		}
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot delete document in %s status", d.Status))
	}

	d.AddDomainEvent(NewDocumentDeletedEvent(d, deletedBy))

	return nil
}

func (d *Document) ensureWritable() error {
	if d.AllowedOperations().CanUpdate {
		return nil
	}
	if posting.IsPosted(d) {
		return shared.ErrImmutable
	}
	return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot update document in %s status", d.Status))
}

// IsDraft returns true if the document is a draft
func (d *Document) IsDraft() bool {
	return posting.IsDraft(d)
}

// IsPosted returns true if the document is posted
func (d *Document) IsPosted() bool {
	return posting.IsPosted(d)
}
