package handler

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	docapp "github.com/smberp/backend/internal/application/document"
	"github.com/smberp/backend/internal/domain/document"
	"github.com/smberp/backend/internal/domain/posting"
	"github.com/smberp/backend/internal/interfaces/http/middleware"
	"github.com/smberp/backend/internal/interfaces/http/router"
)

// DocumentHandler handles financial document endpoints. Every route is
// scoped by the :kind path parameter (invoice, purchase_bill, budget, ...).
type DocumentHandler struct {
	BaseHandler
	service *docapp.Service
	bulkMW  []gin.HandlerFunc
}

// DocumentHandlerOption configures a DocumentHandler
type DocumentHandlerOption func(*DocumentHandler)

// WithBulkMiddleware runs mw ahead of the bulk validation handler
func WithBulkMiddleware(mw ...gin.HandlerFunc) DocumentHandlerOption {
	return func(h *DocumentHandler) {
		h.bulkMW = append(h.bulkMW, mw...)
	}
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(service *docapp.Service, opts ...DocumentHandlerOption) *DocumentHandler {
	h := &DocumentHandler{service: service}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ValidateRequest asks for the decision on one document
type ValidateRequest struct {
	ID        uuid.UUID `json:"id" binding:"required"`
	Operation string    `json:"operation" binding:"required"`
}

// ValidateBulkRequest asks for decisions on several documents
type ValidateBulkRequest struct {
	IDs       []uuid.UUID `json:"ids" binding:"required"`
	Operation string      `json:"operation" binding:"required"`
}

// Routes builds the /finance/documents route group. PUT and DELETE run the
// immutability guard before the handler; bulk validation runs the bulk
// middleware (rate limiting in production) first.
func (h *DocumentHandler) Routes() *router.DomainGroup {
	docs := router.NewDomainGroup("documents", "/finance/documents")
	docs.POST("/:kind", h.Create)
	docs.GET("/:kind", h.List)
	docs.POST("/:kind/validate", h.Validate)
	bulk := append(append([]gin.HandlerFunc{}, h.bulkMW...), h.ValidateBulk)
	docs.POST("/:kind/validate/bulk", bulk...)
	docs.GET("/:kind/:id", h.GetByID)
	docs.PUT("/:kind/:id", h.Guard(posting.OperationUpdate), h.Update)
	docs.DELETE("/:kind/:id", h.Guard(posting.OperationDelete), h.Delete)
	docs.POST("/:kind/:id/post", h.Post)
	docs.GET("/:kind/:id/permissions", h.Permissions)
	return docs
}

// Guard returns the immutability guard for op on /:kind/:id routes
func (h *DocumentHandler) Guard(op posting.Operation) gin.HandlerFunc {
	return middleware.ImmutabilityGuard(op, h.guardTarget)
}

func (h *DocumentHandler) guardTarget(c *gin.Context) (middleware.GuardTarget[uuid.UUID], error) {
	tenantID, err := getTenantID(c)
	if err != nil {
		return middleware.GuardTarget[uuid.UUID]{}, fmt.Errorf("invalid tenant: %w", err)
	}
	kind, err := parseKind(c)
	if err != nil {
		return middleware.GuardTarget[uuid.UUID]{}, err
	}
	id, err := parseID(c)
	if err != nil {
		return middleware.GuardTarget[uuid.UUID]{}, err
	}
	return middleware.GuardTarget[uuid.UUID]{
		ID:     id,
		Loader: h.service.Loader(tenantID, kind),
		Label:  kind.Label(),
	}, nil
}

// Create creates a draft document
// POST /finance/documents/:kind
func (h *DocumentHandler) Create(c *gin.Context) {
	tenantID, kind, ok := h.scope(c)
	if !ok {
		return
	}

	var req docapp.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	if userID, err := getUserID(c); err == nil {
		req.CreatedBy = &userID
	}

	doc, err := h.service.Create(c.Request.Context(), tenantID, kind, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, doc)
}

// List lists documents of one kind
// GET /finance/documents/:kind
func (h *DocumentHandler) List(c *gin.Context) {
	tenantID, kind, ok := h.scope(c)
	if !ok {
		return
	}

	var filter docapp.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), tenantID, kind, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// GetByID returns a document with its allowed operations
// GET /finance/documents/:kind/:id
func (h *DocumentHandler) GetByID(c *gin.Context) {
	tenantID, kind, id, ok := h.scopeWithID(c)
	if !ok {
		return
	}

	doc, err := h.service.Get(c.Request.Context(), tenantID, kind, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// Update replaces the editable fields of a draft document
// PUT /finance/documents/:kind/:id
func (h *DocumentHandler) Update(c *gin.Context) {
	tenantID, kind, id, ok := h.scopeWithID(c)
	if !ok {
		return
	}

	var req docapp.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	doc, err := h.service.Update(c.Request.Context(), tenantID, kind, id, req)
	if err != nil {
		h.handleMutationError(c, err, kind, posting.OperationUpdate)
		return
	}
	h.Success(c, doc)
}

// Delete removes a draft document
// DELETE /finance/documents/:kind/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	tenantID, kind, id, ok := h.scopeWithID(c)
	if !ok {
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authenticated user required")
		return
	}

	if err := h.service.Delete(c.Request.Context(), tenantID, kind, id, userID); err != nil {
		h.handleMutationError(c, err, kind, posting.OperationDelete)
		return
	}
	h.NoContent(c)
}

// Post moves a draft document into posted status
// POST /finance/documents/:kind/:id/post
func (h *DocumentHandler) Post(c *gin.Context) {
	tenantID, kind, id, ok := h.scopeWithID(c)
	if !ok {
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authenticated user required")
		return
	}

	doc, err := h.service.Post(c.Request.Context(), tenantID, kind, id, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// Permissions returns the allowed-operations vector of a document
// GET /finance/documents/:kind/:id/permissions
func (h *DocumentHandler) Permissions(c *gin.Context) {
	tenantID, kind, id, ok := h.scopeWithID(c)
	if !ok {
		return
	}

	ops, err := h.service.Permissions(c.Request.Context(), tenantID, kind, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ops)
}

// Validate returns the posting decision for one document.
// The request itself succeeds whatever the decision; the decision carries its own status code.
// POST /finance/documents/:kind/validate
func (h *DocumentHandler) Validate(c *gin.Context) {
	tenantID, kind, ok := h.scope(c)
	if !ok {
		return
	}

	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	op, err := posting.ParseOperation(req.Operation)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	h.Success(c, h.service.Validate(c.Request.Context(), tenantID, kind, req.ID, op))
}

// ValidateBulk returns one decision per id, in request order
// POST /finance/documents/:kind/validate/bulk
func (h *DocumentHandler) ValidateBulk(c *gin.Context) {
	tenantID, kind, ok := h.scope(c)
	if !ok {
		return
	}

	var req ValidateBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	op, err := posting.ParseOperation(req.Operation)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ValidateBulk(c.Request.Context(), tenantID, kind, req.IDs, op)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// handleMutationError answers a posting violation with the same payload the guard uses
func (h *DocumentHandler) handleMutationError(c *gin.Context, err error, kind document.Kind, op posting.Operation) {
	if v, ok := posting.AsViolation(err); ok {
		middleware.AbortWithViolation(c, v, kind.Label(), op)
		return
	}
	h.HandleError(c, err)
}

// scope resolves the tenant and kind, writing the error response itself on failure
func (h *DocumentHandler) scope(c *gin.Context) (uuid.UUID, document.Kind, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant context required")
		return uuid.Nil, "", false
	}
	kind, err := parseKind(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return uuid.Nil, "", false
	}
	return tenantID, kind, true
}

func (h *DocumentHandler) scopeWithID(c *gin.Context) (uuid.UUID, document.Kind, uuid.UUID, bool) {
	tenantID, kind, ok := h.scope(c)
	if !ok {
		return uuid.Nil, "", uuid.Nil, false
	}
	id, err := parseID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return uuid.Nil, "", uuid.Nil, false
	}
	return tenantID, kind, id, true
}

func parseKind(c *gin.Context) (document.Kind, error) {
	raw := c.Param("kind")
	kind, ok := document.ParseKind(raw)
	if !ok {
		return "", fmt.Errorf("unsupported document kind: %s", raw)
	}
	return kind, nil
}

func parseID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, errors.New("invalid document ID format")
	}
	return id, nil
}
