package document

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smberp/backend/internal/domain/document"
	"github.com/smberp/backend/internal/domain/posting"
	"github.com/smberp/backend/internal/domain/shared"
)

// Response represents a document in API responses
type Response struct {
	ID                uuid.UUID                 `json:"id"`
	TenantID          uuid.UUID                 `json:"tenant_id"`
	Kind              string                    `json:"kind"`
	KindLabel         string                    `json:"kind_label"`
	Number            string                    `json:"number"`
	Counterparty      string                    `json:"counterparty"`
	CostCenterCode    string                    `json:"cost_center_code,omitempty"`
	Description       string                    `json:"description,omitempty"`
	Amount            decimal.Decimal           `json:"amount"`
	DocumentDate      time.Time                 `json:"document_date"`
	Status            string                    `json:"status"`
	PostedAt          *time.Time                `json:"posted_at,omitempty"`
	PostedBy          *uuid.UUID                `json:"posted_by,omitempty"`
	AllowedOperations posting.AllowedOperations `json:"allowed_operations"`
	CreatedBy         *uuid.UUID                `json:"created_by,omitempty"`
	CreatedAt         time.Time                 `json:"created_at"`
	UpdatedAt         time.Time                 `json:"updated_at"`
	Version           int                       `json:"version"`
}

// CreateRequest represents a request to create a draft document
type CreateRequest struct {
	Counterparty   string          `json:"counterparty" binding:"required,max=200"`
	CostCenterCode string          `json:"cost_center_code" binding:"max=50"`
	Description    string          `json:"description" binding:"max=500"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	DocumentDate   time.Time       `json:"document_date" binding:"required"`
	CreatedBy      *uuid.UUID      `json:"-"` // Set from JWT context, not from request body
}

// UpdateRequest represents a request to update a draft document
type UpdateRequest struct {
	Counterparty   string          `json:"counterparty" binding:"required,max=200"`
	CostCenterCode string          `json:"cost_center_code" binding:"max=50"`
	Description    string          `json:"description" binding:"max=500"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	DocumentDate   time.Time       `json:"document_date" binding:"required"`
}

// ListFilter defines filtering options for document list queries
type ListFilter struct {
	Search   string     `form:"search"`
	Status   string     `form:"status" binding:"omitempty,oneof=draft posted cancelled"`
	FromDate *time.Time `form:"from_date" time_format:"2006-01-02"`
	ToDate   *time.Time `form:"to_date" time_format:"2006-01-02"`
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string     `form:"order_by"`
	OrderDir string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

func (r CreateRequest) input() document.Input {
	return document.Input{
		Counterparty:   r.Counterparty,
		CostCenterCode: r.CostCenterCode,
		Description:    r.Description,
		Amount:         r.Amount,
		DocumentDate:   r.DocumentDate,
	}
}

func (r UpdateRequest) input() document.Input {
	return document.Input{
		Counterparty:   r.Counterparty,
		CostCenterCode: r.CostCenterCode,
		Description:    r.Description,
		Amount:         r.Amount,
		DocumentDate:   r.DocumentDate,
	}
}

func (f ListFilter) toDomain(kind document.Kind) document.Filter {
	domainFilter := document.Filter{
		Filter:   shared.DefaultFilter(),
		Kind:     kind,
		FromDate: f.FromDate,
		ToDate:   f.ToDate,
	}
	if f.Page > 0 {
		domainFilter.Page = f.Page
	}
	if f.PageSize > 0 {
		domainFilter.PageSize = f.PageSize
	}
	if f.OrderBy != "" {
		domainFilter.OrderBy = f.OrderBy
	}
	if f.OrderDir != "" {
		domainFilter.OrderDir = f.OrderDir
	}
	domainFilter.Search = f.Search

	if f.Status != "" {
		status := posting.ParseStatus(f.Status)
		domainFilter.Status = &status
	}
	return domainFilter
}

// ToResponse converts a domain document to its API representation
func ToResponse(d *document.Document) *Response {
	return &Response{
		ID:                d.ID,
		TenantID:          d.TenantID,
		Kind:              d.Kind.String(),
		KindLabel:         d.Kind.Label(),
		Number:            d.Number,
		Counterparty:      d.Counterparty,
		CostCenterCode:    d.CostCenterCode,
		Description:       d.Description,
		Amount:            d.Amount,
		DocumentDate:      d.DocumentDate,
		Status:            d.Status.String(),
		PostedAt:          d.PostedAt,
		PostedBy:          d.PostedBy,
		AllowedOperations: d.AllowedOperations(),
		CreatedBy:         d.CreatedBy,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
		Version:           d.Version,
	}
}
