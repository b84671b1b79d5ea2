package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	docapp "github.com/smberp/backend/internal/application/document"
	"github.com/smberp/backend/internal/domain/document"
	"github.com/smberp/backend/internal/domain/posting"
	"github.com/smberp/backend/internal/domain/shared"
	"github.com/smberp/backend/internal/infrastructure/config"
	"github.com/smberp/backend/internal/interfaces/http/dto"
	"github.com/smberp/backend/internal/interfaces/http/middleware"
	"github.com/smberp/backend/internal/interfaces/http/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockDocumentRepository is a mock implementation of document.Repository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*document.Document, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter document.Filter) ([]document.Document, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]document.Document), args.Error(1)
}

func (m *MockDocumentRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter document.Filter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDocumentRepository) Save(ctx context.Context, doc *document.Document) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *MockDocumentRepository) SaveWithLock(ctx context.Context, doc *document.Document) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *MockDocumentRepository) DeleteWithLock(ctx context.Context, doc *document.Document) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *MockDocumentRepository) GenerateNumber(ctx context.Context, tenantID uuid.UUID, kind document.Kind) (string, error) {
	args := m.Called(ctx, tenantID, kind)
	return args.String(0), args.Error(1)
}

type documentTestEnv struct {
	engine   *gin.Engine
	repo     *MockDocumentRepository
	tenantID uuid.UUID
	userID   uuid.UUID
}

func setupDocumentTest(t *testing.T, cfg config.PostingConfig, opts ...DocumentHandlerOption) *documentTestEnv {
	t.Helper()
	middleware.SetupValidator()

	env := &documentTestEnv{
		repo:     new(MockDocumentRepository),
		tenantID: uuid.New(),
		userID:   uuid.New(),
	}
	h := NewDocumentHandler(docapp.NewService(env.repo, nil, nil, zap.NewNop(), cfg), opts...)

	env.engine = gin.New()
	env.engine.Use(middleware.RequestID())
	authenticated := func(c *gin.Context) {
		setJWTContext(c, env.tenantID, env.userID)
		c.Next()
	}
	router.NewRouter(env.engine, router.WithMiddleware(authenticated)).Register(h.Routes()).Setup()
	return env
}

func (env *documentTestEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1/finance/documents"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	return w
}

func (env *documentTestEnv) draft(t *testing.T, kind document.Kind) *document.Document {
	t.Helper()
	doc, err := document.NewDocument(env.tenantID, kind, kind.NumberPrefix()+"-202610-00001", document.Input{
		Counterparty: "Acme Ltd",
		Amount:       decimal.NewFromInt(500),
		DocumentDate: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	doc.ClearDomainEvents()
	env.repo.On("FindByIDForTenant", mock.Anything, env.tenantID, doc.ID).Return(doc, nil)
	return doc
}

func (env *documentTestEnv) posted(t *testing.T, kind document.Kind) *document.Document {
	t.Helper()
	doc := env.draft(t, kind)
	require.NoError(t, doc.Post(uuid.New()))
	doc.ClearDomainEvents()
	return doc
}

func (env *documentTestEnv) missing() uuid.UUID {
	id := uuid.New()
	env.repo.On("FindByIDForTenant", mock.Anything, env.tenantID, id).Return(nil, shared.ErrNotFound)
	return id
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success, w.Body.String())
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	return data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error, w.Body.String())
	return resp.Error
}

func decodeImmutability(t *testing.T, w *httptest.ResponseRecorder) posting.ResponseBody {
	t.Helper()
	var body posting.ResponseBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func updateBody() map[string]any {
	return map[string]any{
		"counterparty":  "Globex",
		"description":   "revised",
		"amount":        "750.00",
		"document_date": "2026-10-02T00:00:00Z",
	}
}

func TestDocumentHandler_Create(t *testing.T) {
	t.Run("creates a draft", func(t *testing.T) {
		env := setupDocumentTest(t, config.PostingConfig{})
		env.repo.On("GenerateNumber", mock.Anything, env.tenantID, document.KindPurchaseBill).Return("PB-202610-00001", nil)
		env.repo.On("Save", mock.Anything, mock.AnythingOfType("*document.Document")).Return(nil)

		w := env.do(t, http.MethodPost, "/purchase-bill", map[string]any{
			"counterparty":  "Initech",
			"amount":        "1200.50",
			"document_date": "2026-10-01T00:00:00Z",
		})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		data := decodeData(t, w)
		assert.Equal(t, "PB-202610-00001", data["number"])
		assert.Equal(t, "purchase_bill", data["kind"])
		assert.Equal(t, "draft", data["status"])
		assert.Equal(t, env.userID.String(), data["created_by"])
		ops := data["allowed_operations"].(map[string]any)
		assert.Equal(t, true, ops["can_update"])
	})

	t.Run("unknown kind", func(t *testing.T) {
		env := setupDocumentTest(t, config.PostingConfig{})

		w := env.do(t, http.MethodPost, "/payslip", map[string]any{"counterparty": "x"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, decodeError(t, w).Code)
		env.repo.AssertNotCalled(t, "GenerateNumber", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("validation failure", func(t *testing.T) {
		env := setupDocumentTest(t, config.PostingConfig{})

		w := env.do(t, http.MethodPost, "/invoice", map[string]any{"amount": "10"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		errInfo := decodeError(t, w)
		assert.Equal(t, dto.ErrCodeValidation, errInfo.Code)
		var fields []string
		for _, d := range errInfo.Details {
			fields = append(fields, d.Field)
		}
		assert.Contains(t, fields, "counterparty")
	})
}

func TestDocumentHandler_List(t *testing.T) {
	env := setupDocumentTest(t, config.PostingConfig{})
	doc := env.draft(t, document.KindBudget)
	env.repo.On("FindAllForTenant", mock.Anything, env.tenantID, mock.AnythingOfType("document.Filter")).
		Return([]document.Document{*doc}, nil)
	env.repo.On("CountForTenant", mock.Anything, env.tenantID, mock.AnythingOfType("document.Filter")).
		Return(int64(21), nil)

	w := env.do(t, http.MethodGet, "/budget?page=2&page_size=10&status=draft", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(21), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 3, resp.Meta.TotalPages)
	assert.Len(t, resp.Data, 1)

	filter := env.repo.Calls[0].Arguments.Get(2).(document.Filter)
	assert.Equal(t, document.KindBudget, filter.Kind)
	require.NotNil(t, filter.Status)
	assert.Equal(t, posting.StatusDraft, *filter.Status)

	t.Run("invalid status", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/budget?status=archived", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, decodeError(t, w).Code)
	})
}

func TestDocumentHandler_GetByID(t *testing.T) {
	env := setupDocumentTest(t, config.PostingConfig{})
	posted := env.posted(t, document.KindInvoice)

	w := env.do(t, http.MethodGet, "/invoice/"+posted.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "posted", data["status"])
	assert.Equal(t, map[string]any{
		"can_read": true, "can_update": false, "can_delete": false, "can_post": false,
	}, data["allowed_operations"])

	t.Run("other kind is not found", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/budget/"+posted.ID.String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Budget not found", decodeError(t, w).Message)
	})

	t.Run("malformed id", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/invoice/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDocumentHandler_Update(t *testing.T) {
	t.Run("draft is updated", func(t *testing.T) {
		env := setupDocumentTest(t, config.PostingConfig{})
		doc := env.draft(t, document.KindInvoice)
		env.repo.On("SaveWithLock", mock.Anything, doc).Return(nil)

		w := env.do(t, http.MethodPut, "/invoice/"+doc.ID.String(), updateBody())

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := decodeData(t, w)
		assert.Equal(t, "Globex", data["counterparty"])
		env.repo.AssertCalled(t, "SaveWithLock", mock.Anything, doc)
	})

	t.Run("posted is rejected by the guard", func(t *testing.T) {
		env := setupDocumentTest(t, config.PostingConfig{})
		doc := env.posted(t, document.KindInvoice)

		w := env.do(t, http.MethodPut, "/invoice/"+doc.ID.String(), updateBody())

		require.Equal(t, http.StatusForbidden, w.Code)
		body := decodeImmutability(t, w)
		assert.False(t, body.Success)
		assert.Equal(t, "Cannot update posted Invoice", body.Error)
		assert.Equal(t, "update", body.Details.Operation)
		env.repo.AssertNumberOfCalls(t, "FindByIDForTenant", 1)
		env.repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("missing document", func(t *testing.T) {
		env := setupDocumentTest(t, config.PostingConfig{})
		id := env.missing()

		w := env.do(t, http.MethodPut, "/invoice/"+id.String(), updateBody())

		assert.Equal(t, http.StatusNotFound, w.Code)
		errInfo := decodeError(t, w)
		assert.Equal(t, dto.ErrCodeNotFound, errInfo.Code)
		assert.Equal(t, "Invoice not found", errInfo.Message)
	})

	t.Run("load failure", func(t *testing.T) {
		env := setupDocumentTest(t, config.PostingConfig{})
		id := uuid.New()
		env.repo.On("FindByIDForTenant", mock.Anything, env.tenantID, id).Return(nil, errors.New("connection refused"))

		w := env.do(t, http.MethodPut, "/sales-order/"+id.String(), updateBody())

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		errInfo := decodeError(t, w)
		assert.Equal(t, dto.ErrCodeInternal, errInfo.Code)
		assert.Equal(t, "Failed to retrieve sales order for validation", errInfo.Message)
	})

	t.Run("version conflict", func(t *testing.T) {
		env := setupDocumentTest(t, config.PostingConfig{})
		doc := env.draft(t, document.KindInvoice)
		env.repo.On("SaveWithLock", mock.Anything, doc).Return(shared.ErrConcurrencyConflict)

		w := env.do(t, http.MethodPut, "/invoice/"+doc.ID.String(), updateBody())

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeConcurrencyConflict, decodeError(t, w).Code)
	})
}

func TestDocumentHandler_Delete(t *testing.T) {
	t.Run("draft is deleted", func(t *testing.T) {
		env := setupDocumentTest(t, config.PostingConfig{})
		doc := env.draft(t, document.KindBudget)
		env.repo.On("DeleteWithLock", mock.Anything, mock.MatchedBy(func(d *document.Document) bool { return d.ID == doc.ID })).Return(nil)

		w := env.do(t, http.MethodDelete, "/budget/"+doc.ID.String(), nil)

		assert.Equal(t, http.StatusNoContent, w.Code)
		env.repo.AssertNumberOfCalls(t, "DeleteWithLock", 1)
	})

	t.Run("posted is rejected", func(t *testing.T) {
		env := setupDocumentTest(t, config.PostingConfig{})
		doc := env.posted(t, document.KindBudget)

		w := env.do(t, http.MethodDelete, "/budget/"+doc.ID.String(), nil)

		require.Equal(t, http.StatusForbidden, w.Code)
		body := decodeImmutability(t, w)
		assert.Equal(t, "Cannot delete posted Budget", body.Error)
		assert.Equal(t, posting.ReasonPosted, body.Details.Reason)
		env.repo.AssertNotCalled(t, "DeleteWithLock", mock.Anything, mock.Anything)
	})
}

func TestDocumentHandler_Post(t *testing.T) {
	env := setupDocumentTest(t, config.PostingConfig{})
	doc := env.draft(t, document.KindInvoice)
	env.repo.On("SaveWithLock", mock.Anything, doc).Return(nil)

	w := env.do(t, http.MethodPost, "/invoice/"+doc.ID.String()+"/post", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeData(t, w)
	assert.Equal(t, "posted", data["status"])
	assert.Equal(t, env.userID.String(), data["posted_by"])

	t.Run("posting twice is immutable", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/invoice/"+doc.ID.String()+"/post", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
		errInfo := decodeError(t, w)
		assert.Equal(t, dto.ErrCodeImmutable, errInfo.Code)
		assert.Equal(t, posting.MsgPostedImmutable, errInfo.Message)
	})
}

func TestDocumentHandler_Permissions(t *testing.T) {
	env := setupDocumentTest(t, config.PostingConfig{})
	doc := env.draft(t, document.KindProductionExpense)

	w := env.do(t, http.MethodGet, "/production_expense/"+doc.ID.String()+"/permissions", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{
		"can_read": true, "can_update": true, "can_delete": true, "can_post": true,
	}, decodeData(t, w))
}

func TestDocumentHandler_Validate(t *testing.T) {
	env := setupDocumentTest(t, config.PostingConfig{})
	posted := env.posted(t, document.KindInvoice)
	draft := env.draft(t, document.KindInvoice)

	t.Run("posted update is denied", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/invoice/validate", map[string]any{"id": posted.ID, "operation": "update"})

		require.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, false, data["allowed"])
		assert.Equal(t, false, data["can_update"])
		assert.InDelta(t, 403, data["status_code"], 0)
		assert.Equal(t, posting.MsgPostedImmutable, data["error"])
	})

	t.Run("draft delete is allowed", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/invoice/validate", map[string]any{"id": draft.ID, "operation": "DELETE"})

		require.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, true, data["can_delete"])
		assert.Equal(t, "Invoice can be deleted", data["message"])
	})

	t.Run("unsupported operation", func(t *testing.T) {
		calls := len(env.repo.Calls)
		w := env.do(t, http.MethodPost, "/invoice/validate", map[string]any{"id": draft.ID, "operation": "archive"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Len(t, env.repo.Calls, calls)
	})
}

func TestDocumentHandler_ValidateBulk(t *testing.T) {
	env := setupDocumentTest(t, config.PostingConfig{BulkMaxIDs: 3})
	draft := env.draft(t, document.KindPurchaseOrder)
	posted := env.posted(t, document.KindPurchaseOrder)
	missing := env.missing()

	w := env.do(t, http.MethodPost, "/purchase_order/validate/bulk", map[string]any{
		"ids":       []uuid.UUID{draft.ID, posted.ID, missing},
		"operation": "delete",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeData(t, w)
	assert.Equal(t, false, data["success"])
	assert.Equal(t, map[string]any{"total": 3.0, "allowed": 1.0, "blocked": 2.0}, data["summary"])

	results := data["results"].([]any)
	require.Len(t, results, 3)
	var statuses []float64
	for i, want := range []uuid.UUID{draft.ID, posted.ID, missing} {
		item := results[i].(map[string]any)
		assert.Equal(t, want.String(), item["record_id"])
		statuses = append(statuses, item["status_code"].(float64))
	}
	assert.Equal(t, []float64{200, 403, 404}, statuses)

	t.Run("too many ids", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/purchase_order/validate/bulk", map[string]any{
			"ids":       []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()},
			"operation": "update",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidInput, decodeError(t, w).Code)
	})

	t.Run("empty ids", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/purchase_order/validate/bulk", map[string]any{
			"ids":       []uuid.UUID{},
			"operation": "update",
		})
		require.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, true, data["success"])
		assert.Empty(t, data["results"])
	})
}

func TestDocumentHandler_ValidateBulk_RateLimited(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, time.Minute)
	env := setupDocumentTest(t, config.PostingConfig{BulkMaxIDs: 10},
		WithBulkMiddleware(middleware.RateLimit(limiter)))
	body := map[string]any{"ids": []uuid.UUID{}, "operation": "delete"}

	w := env.do(t, http.MethodPost, "/invoice/validate/bulk", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, "/invoice/validate/bulk", body)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, dto.ErrCodeRateLimited, decodeError(t, w).Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	t.Run("single-record routes are not limited", func(t *testing.T) {
		doc := env.draft(t, document.KindInvoice)
		w := env.do(t, http.MethodPost, "/invoice/validate", map[string]any{"id": doc.ID, "operation": "delete"})
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})
}

func TestDocumentHandler_RequiresTenant(t *testing.T) {
	h := NewDocumentHandler(docapp.NewService(new(MockDocumentRepository), nil, nil, zap.NewNop(), config.PostingConfig{}))
	engine := gin.New()
	router.NewRouter(engine).Register(h.Routes()).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/finance/documents/invoice", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
