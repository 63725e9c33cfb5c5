package services

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"strings"
	"time"

	"gstledger/internal/caching"
	"gstledger/internal/common"
	"gstledger/internal/models"
	"gstledger/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentServiceInterface guards payment initiation and gateway callbacks.
type PaymentServiceInterface interface {
	InitiatePayment(ctx context.Context, orderID uuid.UUID, externalTxnID string) (*models.Transaction, error)
	RecordPaymentCallback(ctx context.Context, externalTxnID, status string) (*PaymentOutcome, error)
}

// GatewayConfig holds merchant credentials and the pages the gateway callback redirects to.
type GatewayConfig struct {
	MerchantKey  string
	MerchantSalt string
	SuccessURL   string
	FailureURL   string
}

// PaymentOutcome is the result of a recorded callback.
type PaymentOutcome struct {
	Transaction *models.Transaction
	RedirectURL string
}

type paymentService struct {
	transactor repositories.Transactor
	cache      caching.CacheService
	gateway    GatewayConfig
	logger     *zap.Logger
}

// NewPaymentService wires the payment service. cache may be nil.
func NewPaymentService(transactor repositories.Transactor, cache caching.CacheService, gateway GatewayConfig, logger *zap.Logger) PaymentServiceInterface {
	return &paymentService{
		transactor: transactor,
		cache:      cache,
		gateway:    gateway,
		logger:     logger,
	}
}

// TransactionHash binds the payment parameters in the gateway's
// key|txnid|amount|name|email|||||||||||salt layout.
func TransactionHash(merchantKey, txnID string, amount decimal.Decimal, name, email, merchantSalt string) string {
	payload := strings.Join([]string{merchantKey, txnID, amount.StringFixed(2), name, email}, "|") +
		"|" + strings.Repeat("|", 10) + merchantSalt
	sum := sha512.Sum512([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// InitiatePayment moves the order to IN_PROCESS and records an INITIATED transaction.
// The order row stays locked for the whole check-then-write sequence.
func (s *paymentService) InitiatePayment(ctx context.Context, orderID uuid.UUID, externalTxnID string) (*models.Transaction, error) {
	externalTxnID = strings.TrimSpace(externalTxnID)
	if externalTxnID == "" {
		return nil, common.NewValidationError("txn_id", "txn_id is required")
	}

	var txn *models.Transaction
	err := s.transactor.WithinTx(ctx, func(store *repositories.Store) error {
		order, err := store.Orders.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.IsDeleted {
			return common.NewNotFoundError("order", orderID.String())
		}

		switch order.PaymentStatus {
		case models.PaymentStatusPaid:
			return common.NewConflictError(common.ConflictOrderAlreadyPaid,
				"cannot process request as order payment status is already PAID")
		case models.PaymentStatusPending, models.PaymentStatusInProcess, models.PaymentStatusCOD:
		}

		existing, err := store.Transactions.FindByExternalID(ctx, externalTxnID)
		if err != nil {
			return err
		}
		if err := checkExistingTransaction(existing, orderID); err != nil {
			return err
		}

		buyer, err := store.Parties.GetByID(ctx, order.BuyerID)
		if err != nil {
			return err
		}

		if err := store.Orders.UpdatePaymentStatus(ctx, orderID, models.PaymentStatusInProcess); err != nil {
			return err
		}

		now := time.Now().UTC()
		txn = &models.Transaction{
			ID:                    uuid.New(),
			OrderID:               orderID,
			UserID:                buyer.ID,
			ExternalTransactionID: externalTxnID,
			TransactionHash:       TransactionHash(s.gateway.MerchantKey, externalTxnID, order.GrandTotal, buyer.Name, buyer.Email, s.gateway.MerchantSalt),
			Status:                models.TransactionStatusInitiated,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		return store.Transactions.Create(ctx, txn)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateOrder(ctx, orderID)
	s.logger.Info("payment initiated",
		zap.String("order_id", orderID.String()),
		zap.String("txn_id", externalTxnID),
	)
	return txn, nil
}

// checkExistingTransaction rejects reuse of an external id. An INITIATED or SUCCESS
// transaction for the same order is a duplicate attempt; any other holder of the id
// blocks it as well since external ids are unique.
func checkExistingTransaction(existing *models.Transaction, orderID uuid.UUID) error {
	if existing == nil {
		return nil
	}
	if existing.OrderID == orderID && existing.Status != models.TransactionStatusFailure {
		return common.NewConflictError(common.ConflictDuplicateTransaction,
			"transaction cannot be processed as an existing transaction for this order is already in progress or completed")
	}
	return common.NewConflictError(common.ConflictDuplicateTransaction,
		"transaction id has already been used, initiate a new transaction")
}

// RecordPaymentCallback applies the gateway's outcome to an INITIATED transaction.
// A transaction that already reached SUCCESS or FAILURE rejects every further callback.
func (s *paymentService) RecordPaymentCallback(ctx context.Context, externalTxnID, status string) (*PaymentOutcome, error) {
	outcome, err := models.ParseCallbackStatus(status)
	if err != nil {
		return nil, common.NewValidationError("txn_status", err.Error())
	}

	var txn *models.Transaction
	err = s.transactor.WithinTx(ctx, func(store *repositories.Store) error {
		var err error
		txn, err = store.Transactions.GetByExternalIDForUpdate(ctx, externalTxnID)
		if err != nil {
			return err
		}
		if txn.Status.IsTerminal() {
			return common.NewConflictError(common.ConflictTransactionTerminated,
				"cannot process request as transaction is already marked as "+string(txn.Status))
		}

		if err := store.Transactions.UpdateStatus(ctx, txn.ID, outcome); err != nil {
			return err
		}
		txn.Status = outcome

		switch outcome {
		case models.TransactionStatusSuccess:
			return store.Orders.UpdatePaymentStatus(ctx, txn.OrderID, models.PaymentStatusPaid)
		case models.TransactionStatusFailure, models.TransactionStatusInitiated:
			// The order stays IN_PROCESS so the buyer can retry with a new transaction.
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateOrder(ctx, txn.OrderID)
	s.logger.Info("payment callback recorded",
		zap.String("txn_id", externalTxnID),
		zap.String("order_id", txn.OrderID.String()),
		zap.String("status", string(txn.Status)),
	)

	redirect := s.gateway.FailureURL
	if txn.Status == models.TransactionStatusSuccess {
		redirect = s.gateway.SuccessURL
	}
	return &PaymentOutcome{Transaction: txn, RedirectURL: redirect}, nil
}

func (s *paymentService) invalidateOrder(ctx context.Context, orderID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteOrder(ctx, orderID); err != nil {
		s.logger.Warn("order cache invalidation failed", zap.String("order_id", orderID.String()), zap.Error(err))
	}
}
