package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"gstledger/internal/common"
	"gstledger/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const callbackSignatureHeader = "X-Payment-Signature"

// PaymentHandlers handles payment initiation and the gateway callback
type PaymentHandlers struct {
	paymentService services.PaymentServiceInterface
	callbackSecret string
	logger         *zap.Logger
}

// NewPaymentHandlers creates payment handlers. With an empty callbackSecret the callback
// is authenticated by bearer token instead of a signature.
func NewPaymentHandlers(paymentService services.PaymentServiceInterface, callbackSecret string, logger *zap.Logger) *PaymentHandlers {
	return &PaymentHandlers{
		paymentService: paymentService,
		callbackSecret: callbackSecret,
		logger:         logger,
	}
}

type initiatePaymentRequest struct {
	TxnID   string `json:"txn_id"`
	OrderID string `json:"order_id"`
}

type paymentCallbackRequest struct {
	TxnID     string `json:"txn_id" form:"txn_id"`
	TxnStatus string `json:"txn_status" form:"txn_status"`
}

// InitiatePayment handles POST /payments
//
//	@Summary	Start a payment for an order
//	@Tags		payments
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		initiatePaymentRequest	true	"Gateway transaction id and order"
//	@Success	200	{object}	map[string]interface{}
//	@Failure	400	{object}	common.ErrorResponse
//	@Failure	403	{object}	common.ErrorResponse
//	@Failure	404	{object}	common.ErrorResponse
//	@Failure	417	{object}	common.ErrorResponse
//	@Failure	500	{object}	common.ErrorResponse
//	@Router		/payments [post]
func (h *PaymentHandlers) InitiatePayment(c echo.Context) error {
	var req initiatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	orderID, err := common.ValidateUUID(req.OrderID, "order_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	txn, err := h.paymentService.InitiatePayment(c.Request().Context(), orderID, req.TxnID)
	if err != nil {
		return common.SendDomainError(c, h.logger, "initiate payment", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"transaction": txn})
}

// PaymentCallback handles POST /payments/callback and redirects the payer to the
// success or failure page.
//
//	@Summary	Record the gateway's outcome for a transaction
//	@Tags		payments
//	@Accept		json
//	@Security	BearerAuth
//	@Param		X-Payment-Signature	header		string	false	"Hex HMAC-SHA256 of the body, required when a callback secret is configured"
//	@Param		request	body		paymentCallbackRequest	true	"Gateway outcome"
//	@Success	302	"Redirect to the success or failure page"
//	@Failure	400	{object}	common.ErrorResponse
//	@Failure	401	{object}	common.ErrorResponse
//	@Failure	404	{object}	common.ErrorResponse
//	@Failure	417	{object}	common.ErrorResponse
//	@Failure	500	{object}	common.ErrorResponse
//	@Router		/payments/callback [post]
func (h *PaymentHandlers) PaymentCallback(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read request body")
	}

	if !h.callbackAuthorized(c, body) {
		h.logger.Warn("payment callback rejected", zap.String("request_id", common.RequestID(c)))
		return common.SendUnauthorizedError(c)
	}

	// Restore the body so Bind can read it.
	c.Request().Body = io.NopCloser(bytes.NewReader(body))
	var req paymentCallbackRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.TxnID == "" {
		return common.SendValidationError(c, "txn_id", "txn_id is required")
	}

	outcome, err := h.paymentService.RecordPaymentCallback(c.Request().Context(), req.TxnID, req.TxnStatus)
	if err != nil {
		return common.SendDomainError(c, h.logger, "record payment callback", err)
	}
	return c.Redirect(http.StatusFound, outcome.RedirectURL)
}

// callbackAuthorized accepts a valid signature when a secret is configured. Without a
// secret the route sits behind the JWT middleware and an authenticated caller is required.
func (h *PaymentHandlers) callbackAuthorized(c echo.Context, body []byte) bool {
	if h.callbackSecret == "" {
		_, ok := common.GetUserIDFromContext(c.Request().Context())
		return ok
	}
	signature := c.Request().Header.Get(callbackSignatureHeader)
	return signature != "" && h.verifyCallbackSignature(signature, body)
}

// CallbackRequiresJWT reports whether the callback route must be mounted behind the JWT middleware.
func (h *PaymentHandlers) CallbackRequiresJWT() bool {
	return h.callbackSecret == ""
}

func (h *PaymentHandlers) verifyCallbackSignature(signature string, body []byte) bool {
	mac := hmac.New(sha256.New, []byte(h.callbackSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
