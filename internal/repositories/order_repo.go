package repositories

import (
	"context"
	"errors"
	"fmt"

	"gstledger/internal/common"
	"gstledger/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// GetByIDForUpdate locks the order row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateTotals(ctx context.Context, order *models.Order) error
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*models.Order, error)
	ReplaceLines(ctx context.Context, orderID uuid.UUID, lines []models.OrderLine) error
	ListLines(ctx context.Context, orderID uuid.UUID) ([]models.OrderLine, error)
}

type orderRepo struct {
	db DBTX
}

func NewOrderRepo(db DBTX) OrderRepository {
	return &orderRepo{db: db}
}

const orderColumns = `id, buyer_id, order_date, total_price, total_tax, grand_total, payment_status, is_deleted, created_at, updated_at`

func scanOrder(row pgx.Row) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(&order.ID, &order.BuyerID, &order.OrderDate, &order.TotalPrice, &order.TotalTax, &order.GrandTotal, &order.PaymentStatus, &order.IsDeleted, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepo) Create(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (id, buyer_id, order_date, total_price, total_tax, grand_total, payment_status, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, order.ID, order.BuyerID, order.OrderDate, order.TotalPrice, order.TotalTax, order.GrandTotal, order.PaymentStatus)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *orderRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

func (r *orderRepo) getOne(ctx context.Context, query string, id uuid.UUID) (*models.Order, error) {
	order, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("order", id.String())
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

func (r *orderRepo) UpdateTotals(ctx context.Context, order *models.Order) error {
	query := `
		UPDATE orders
		SET total_price = $1, total_tax = $2, grand_total = $3, updated_at = NOW()
		WHERE id = $4
	`
	tag, err := r.db.Exec(ctx, query, order.TotalPrice, order.TotalTax, order.GrandTotal, order.ID)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewNotFoundError("order", order.ID.String())
	}
	return nil
}

func (r *orderRepo) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) error {
	query := `UPDATE orders SET payment_status = $1, updated_at = NOW() WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update order payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewNotFoundError("order", id.String())
	}
	return nil
}

func (r *orderRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE orders SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewNotFoundError("order", id.String())
	}
	return nil
}

func (r *orderRepo) List(ctx context.Context, limit, offset int) ([]*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE is_deleted = FALSE
		ORDER BY order_date DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// ReplaceLines clears the order's line set and inserts lines in its place.
func (r *orderRepo) ReplaceLines(ctx context.Context, orderID uuid.UUID, lines []models.OrderLine) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM order_lines WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("failed to clear order lines: %w", err)
	}

	query := `
		INSERT INTO order_lines (id, order_id, position, item_id, quantity, unit_price, line_amount, tax_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, line := range lines {
		_, err := r.db.Exec(ctx, query, line.ID, orderID, line.Position, line.ItemID, line.Quantity, line.UnitPrice, line.LineAmount, line.TaxAmount)
		if err != nil {
			return fmt.Errorf("failed to insert order line: %w", err)
		}
	}
	return nil
}

func (r *orderRepo) ListLines(ctx context.Context, orderID uuid.UUID) ([]models.OrderLine, error) {
	query := `
		SELECT id, order_id, position, item_id, quantity, unit_price, line_amount, tax_amount
		FROM order_lines
		WHERE order_id = $1
		ORDER BY position
	`
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order lines: %w", err)
	}
	defer rows.Close()

	var lines []models.OrderLine
	for rows.Next() {
		var line models.OrderLine
		if err := rows.Scan(&line.ID, &line.OrderID, &line.Position, &line.ItemID, &line.Quantity, &line.UnitPrice, &line.LineAmount, &line.TaxAmount); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
