package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gstledger/internal/common"
	"gstledger/internal/models"
	"gstledger/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, buyerID uuid.UUID, lines []models.OrderLineInput) (*models.Order, error) {
	args := m.Called(ctx, buyerID, lines)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderService) UpdateOrder(ctx context.Context, orderID uuid.UUID, lines []models.OrderLineInput) (*models.Order, error) {
	args := m.Called(ctx, orderID, lines)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderService) DeleteOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, limit, offset int) ([]*models.Order, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Order), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) InitiatePayment(ctx context.Context, orderID uuid.UUID, externalTxnID string) (*models.Transaction, error) {
	args := m.Called(ctx, orderID, externalTxnID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockPaymentService) RecordPaymentCallback(ctx context.Context, externalTxnID, status string) (*services.PaymentOutcome, error) {
	args := m.Called(ctx, externalTxnID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PaymentOutcome), args.Error(1)
}

func newJSONContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withCaller(c echo.Context, userID uuid.UUID) {
	c.SetRequest(c.Request().WithContext(context.WithValue(c.Request().Context(), common.UserIDKey, userID)))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body common.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestCreateOrder_WrapsOrderInEnvelope(t *testing.T) {
	svc := new(MockOrderService)
	h := NewOrderHandlers(svc, zap.NewNop())

	buyerID, itemID := uuid.New(), uuid.New()
	order := &models.Order{ID: uuid.New(), BuyerID: buyerID, GrandTotal: decimal.NewFromInt(1180)}
	svc.On("CreateOrder", mock.Anything, buyerID, mock.MatchedBy(func(lines []models.OrderLineInput) bool {
		return len(lines) == 1 && lines[0].ItemID == itemID && lines[0].Quantity != nil && lines[0].Quantity.Equal(decimal.NewFromInt(2))
	})).Return(order, nil)

	body := `{"buyer_id":"` + buyerID.String() + `","items":[{"item_id":"` + itemID.String() + `","qty":2}]}`
	c, rec := newJSONContext(http.MethodPost, "/v1/orders", body)

	require.NoError(t, h.CreateOrder(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp, "order")
	svc.AssertExpectations(t)
}

func TestCreateOrder_DefaultsBuyerToCaller(t *testing.T) {
	svc := new(MockOrderService)
	h := NewOrderHandlers(svc, zap.NewNop())

	callerID, itemID := uuid.New(), uuid.New()
	svc.On("CreateOrder", mock.Anything, callerID, mock.Anything).Return(&models.Order{ID: uuid.New()}, nil)

	c, rec := newJSONContext(http.MethodPost, "/v1/orders", `{"items":[{"item_id":"`+itemID.String()+`"}]}`)
	withCaller(c, callerID)

	require.NoError(t, h.CreateOrder(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestCreateOrder_EmptyItemsIsExpectationFailed(t *testing.T) {
	svc := new(MockOrderService)
	h := NewOrderHandlers(svc, zap.NewNop())

	buyerID := uuid.New()
	svc.On("CreateOrder", mock.Anything, buyerID, []models.OrderLineInput{}).
		Return(nil, common.NewValidationError("items", "no items found in the order"))

	c, rec := newJSONContext(http.MethodPost, "/v1/orders", `{"buyer_id":"`+buyerID.String()+`","items":[]}`)

	require.NoError(t, h.CreateOrder(c))
	assert.Equal(t, http.StatusExpectationFailed, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
}

func TestCreateOrder_InvalidItemID(t *testing.T) {
	svc := new(MockOrderService)
	h := NewOrderHandlers(svc, zap.NewNop())

	c, rec := newJSONContext(http.MethodPost, "/v1/orders", `{"buyer_id":"`+uuid.NewString()+`","items":[{"item_id":"rice"}]}`)

	require.NoError(t, h.CreateOrder(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetOrder_NotFound(t *testing.T) {
	svc := new(MockOrderService)
	h := NewOrderHandlers(svc, zap.NewNop())

	orderID := uuid.New()
	svc.On("GetOrder", mock.Anything, orderID).Return(nil, common.NewNotFoundError("order", orderID.String()))

	c, rec := newJSONContext(http.MethodGet, "/v1/orders/"+orderID.String(), "")
	c.SetParamNames("id")
	c.SetParamValues(orderID.String())

	require.NoError(t, h.GetOrder(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))
}

func TestInitiatePayment_DuplicateIsForbidden(t *testing.T) {
	svc := new(MockPaymentService)
	h := NewPaymentHandlers(svc, "", zap.NewNop())

	orderID := uuid.New()
	svc.On("InitiatePayment", mock.Anything, orderID, "TXN-1").
		Return(nil, common.NewConflictError(common.ConflictDuplicateTransaction, "already in progress"))

	c, rec := newJSONContext(http.MethodPost, "/v1/payments", `{"txn_id":"TXN-1","order_id":"`+orderID.String()+`"}`)

	require.NoError(t, h.InitiatePayment(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "DUPLICATE_TRANSACTION", errorCode(t, rec))
}

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPaymentCallback_RedirectsOnOutcome(t *testing.T) {
	svc := new(MockPaymentService)
	h := NewPaymentHandlers(svc, "s3cret", zap.NewNop())

	body := `{"txn_id":"TXN-1","txn_status":"SUCCESS"}`
	svc.On("RecordPaymentCallback", mock.Anything, "TXN-1", "SUCCESS").
		Return(&services.PaymentOutcome{RedirectURL: "https://shop.example/ok"}, nil)

	c, rec := newJSONContext(http.MethodPost, "/v1/payments/callback", body)
	c.Request().Header.Set(callbackSignatureHeader, sign("s3cret", body))

	require.NoError(t, h.PaymentCallback(c))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://shop.example/ok", rec.Header().Get(echo.HeaderLocation))
}

func TestPaymentCallback_RejectsBadSignature(t *testing.T) {
	svc := new(MockPaymentService)
	h := NewPaymentHandlers(svc, "s3cret", zap.NewNop())

	body := `{"txn_id":"TXN-1","txn_status":"SUCCESS"}`
	c, rec := newJSONContext(http.MethodPost, "/v1/payments/callback", body)
	c.Request().Header.Set(callbackSignatureHeader, sign("wrong", body))

	require.NoError(t, h.PaymentCallback(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	svc.AssertNotCalled(t, "RecordPaymentCallback", mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentCallback_TerminalTransaction(t *testing.T) {
	svc := new(MockPaymentService)
	h := NewPaymentHandlers(svc, "", zap.NewNop())

	svc.On("RecordPaymentCallback", mock.Anything, "TXN-1", "FAILED").
		Return(nil, common.NewConflictError(common.ConflictTransactionTerminated, "already marked as SUCCESS"))

	c, rec := newJSONContext(http.MethodPost, "/v1/payments/callback", `{"txn_id":"TXN-1","txn_status":"FAILED"}`)
	withCaller(c, uuid.New())

	require.NoError(t, h.PaymentCallback(c))
	assert.Equal(t, http.StatusExpectationFailed, rec.Code)
	assert.Equal(t, "TRANSACTION_TERMINAL", errorCode(t, rec))
}

func TestPaymentCallback_WithoutSecretRequiresCaller(t *testing.T) {
	svc := new(MockPaymentService)
	h := NewPaymentHandlers(svc, "", zap.NewNop())
	assert.True(t, h.CallbackRequiresJWT())

	c, rec := newJSONContext(http.MethodPost, "/v1/payments/callback", `{"txn_id":"TXN-1","txn_status":"SUCCESS"}`)

	require.NoError(t, h.PaymentCallback(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))
	svc.AssertNotCalled(t, "RecordPaymentCallback", mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentCallback_WithoutSecretAcceptsAuthenticatedCaller(t *testing.T) {
	svc := new(MockPaymentService)
	h := NewPaymentHandlers(svc, "", zap.NewNop())

	svc.On("RecordPaymentCallback", mock.Anything, "TXN-1", "SUCCESS").
		Return(&services.PaymentOutcome{RedirectURL: "https://shop.example/ok"}, nil)

	c, rec := newJSONContext(http.MethodPost, "/v1/payments/callback", `{"txn_id":"TXN-1","txn_status":"SUCCESS"}`)
	withCaller(c, uuid.New())

	require.NoError(t, h.PaymentCallback(c))
	assert.Equal(t, http.StatusFound, rec.Code)
	svc.AssertExpectations(t)
}

func TestPaymentCallback_MissingSignature(t *testing.T) {
	svc := new(MockPaymentService)
	h := NewPaymentHandlers(svc, "s3cret", zap.NewNop())
	assert.False(t, h.CallbackRequiresJWT())

	c, rec := newJSONContext(http.MethodPost, "/v1/payments/callback", `{"txn_id":"TXN-1","txn_status":"SUCCESS"}`)
	withCaller(c, uuid.New())

	require.NoError(t, h.PaymentCallback(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	svc.AssertNotCalled(t, "RecordPaymentCallback", mock.Anything, mock.Anything, mock.Anything)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthCheck_DegradedWhenCacheDown(t *testing.T) {
	h := NewHealthHandlers(stubPinger{}, stubPinger{err: errors.New("dial tcp: refused")}, nil, nil, "1.0.0")

	c, rec := newJSONContext(http.MethodGet, "/health", "")
	require.NoError(t, h.HealthCheck(c))

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "healthy", status.Services["database"])
	assert.Equal(t, "unhealthy", status.Services["redis"])
	assert.Equal(t, "disabled", status.Services["storage"])
}

func TestReadinessCheck_DatabaseDown(t *testing.T) {
	h := NewHealthHandlers(stubPinger{err: errors.New("down")}, nil, nil, nil, "1.0.0")

	c, rec := newJSONContext(http.MethodGet, "/health/ready", "")
	require.NoError(t, h.ReadinessCheck(c))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
