package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Database is a DBTX that can open transactions.
type Database interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store groups every repository over a single connection or transaction.
type Store struct {
	Parties      PartyRepository
	Items        ItemRepository
	Orders       OrderRepository
	Invoices     InvoiceRepository
	Transactions TransactionRepository
}

func NewStore(db DBTX) *Store {
	return &Store{
		Parties:      NewPartyRepo(db),
		Items:        NewItemRepo(db),
		Orders:       NewOrderRepo(db),
		Invoices:     NewInvoiceRepo(db),
		Transactions: NewTransactionRepo(db),
	}
}

// Transactor runs a unit of work against repositories bound to one database transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(store *Store) error) error
}

type pgxTransactor struct {
	db Database
}

func NewTransactor(db Database) Transactor {
	return &pgxTransactor{db: db}
}

// WithinTx commits when fn returns nil and rolls back otherwise.
func (t *pgxTransactor) WithinTx(ctx context.Context, fn func(store *Store) error) error {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback after a successful Commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewStore(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
