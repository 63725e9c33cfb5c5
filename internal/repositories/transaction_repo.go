package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gstledger/internal/common"
	"gstledger/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type TransactionRepository interface {
	Create(ctx context.Context, txn *models.Transaction) error
	// FindByExternalID returns nil, nil when no transaction uses the id.
	FindByExternalID(ctx context.Context, externalID string) (*models.Transaction, error)
	GetByExternalIDForUpdate(ctx context.Context, externalID string) (*models.Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus) error
	CountInitiatedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

type transactionRepo struct {
	db DBTX
}

func NewTransactionRepo(db DBTX) TransactionRepository {
	return &transactionRepo{db: db}
}

const transactionColumns = `id, order_id, user_id, external_transaction_id, transaction_hash, status, created_at, updated_at`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	txn := &models.Transaction{}
	err := row.Scan(&txn.ID, &txn.OrderID, &txn.UserID, &txn.ExternalTransactionID, &txn.TransactionHash, &txn.Status, &txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (r *transactionRepo) Create(ctx context.Context, txn *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, order_id, user_id, external_transaction_id, transaction_hash, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, txn.ID, txn.OrderID, txn.UserID, txn.ExternalTransactionID, txn.TransactionHash, txn.Status)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *transactionRepo) FindByExternalID(ctx context.Context, externalID string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE external_transaction_id = $1`
	txn, err := scanTransaction(r.db.QueryRow(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return txn, nil
}

func (r *transactionRepo) GetByExternalIDForUpdate(ctx context.Context, externalID string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE external_transaction_id = $1 FOR UPDATE`
	txn, err := scanTransaction(r.db.QueryRow(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("transaction", externalID)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

func (r *transactionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus) error {
	query := `UPDATE transactions SET status = $1, updated_at = NOW() WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewNotFoundError("transaction", id.String())
	}
	return nil
}

func (r *transactionRepo) CountInitiatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM transactions WHERE status = $1 AND created_at < $2`
	if err := r.db.QueryRow(ctx, query, models.TransactionStatusInitiated, cutoff).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count stale transactions: %w", err)
	}
	return count, nil
}
