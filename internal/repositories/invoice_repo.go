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

type InvoiceRepository interface {
	// Create writes the invoice, one tax breakdown per line and the lines themselves.
	Create(ctx context.Context, invoice *models.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, limit, offset int) ([]*models.Invoice, error)
	ListLines(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoiceLine, error)
	// Supersede soft-deletes every live invoice of the order, detaches their lines
	// and returns the ids it retired.
	Supersede(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	SetPDFObjectKey(ctx context.Context, id uuid.UUID, key string) error
}

type invoiceRepo struct {
	db DBTX
}

func NewInvoiceRepo(db DBTX) InvoiceRepository {
	return &invoiceRepo{db: db}
}

const invoiceColumns = `id, order_id, tax_type, total_tax, total_price, grand_total, is_deleted, pdf_object_key, created_at, updated_at`

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	invoice := &models.Invoice{}
	err := row.Scan(&invoice.ID, &invoice.OrderID, &invoice.TaxType, &invoice.TotalTax, &invoice.TotalPrice, &invoice.GrandTotal, &invoice.IsDeleted, &invoice.PDFObjectKey, &invoice.CreatedAt, &invoice.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (r *invoiceRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	query := `
		INSERT INTO invoices (id, order_id, tax_type, total_tax, total_price, grand_total, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, invoice.ID, invoice.OrderID, invoice.TaxType, invoice.TotalTax, invoice.TotalPrice, invoice.GrandTotal)
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	taxQuery := `
		INSERT INTO tax_breakdowns (id, kind, igst_percent, igst_amount, cgst_percent, cgst_amount, sgst_percent, sgst_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	lineQuery := `
		INSERT INTO invoice_lines (id, invoice_id, position, item_id, quantity, unit_price, line_amount, tax_breakdown_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, line := range invoice.Lines {
		tax := line.Tax
		_, err := r.db.Exec(ctx, taxQuery, tax.ID, tax.Kind, tax.IGSTPercent, tax.IGSTAmount, tax.CGSTPercent, tax.CGSTAmount, tax.SGSTPercent, tax.SGSTAmount)
		if err != nil {
			return fmt.Errorf("failed to create tax breakdown: %w", err)
		}
		_, err = r.db.Exec(ctx, lineQuery, line.ID, invoice.ID, line.Position, line.ItemID, line.Quantity, line.UnitPrice, line.LineAmount, tax.ID)
		if err != nil {
			return fmt.Errorf("failed to create invoice line: %w", err)
		}
	}
	return nil
}

func (r *invoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	invoice, err := scanInvoice(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("invoice", id.String())
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return invoice, nil
}

func (r *invoiceRepo) List(ctx context.Context, limit, offset int) ([]*models.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE is_deleted = FALSE
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

func (r *invoiceRepo) ListLines(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoiceLine, error) {
	query := `
		SELECT l.id, l.invoice_id, l.position, l.item_id, i.name, l.quantity, l.unit_price, l.line_amount,
		       t.id, t.kind, t.igst_percent, t.igst_amount, t.cgst_percent, t.cgst_amount, t.sgst_percent, t.sgst_amount
		FROM invoice_lines l
		JOIN items i ON i.id = l.item_id
		JOIN tax_breakdowns t ON t.id = l.tax_breakdown_id
		WHERE l.invoice_id = $1
		ORDER BY l.position
	`
	rows, err := r.db.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice lines: %w", err)
	}
	defer rows.Close()

	var lines []models.InvoiceLine
	for rows.Next() {
		var line models.InvoiceLine
		t := &line.Tax
		err := rows.Scan(&line.ID, &line.InvoiceID, &line.Position, &line.ItemID, &line.ItemName, &line.Quantity, &line.UnitPrice, &line.LineAmount,
			&t.ID, &t.Kind, &t.IGSTPercent, &t.IGSTAmount, &t.CGSTPercent, &t.CGSTAmount, &t.SGSTPercent, &t.SGSTAmount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *invoiceRepo) Supersede(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error) {
	detach := `
		UPDATE invoice_lines
		SET invoice_id = NULL
		WHERE invoice_id IN (SELECT id FROM invoices WHERE order_id = $1 AND is_deleted = FALSE)
	`
	if _, err := r.db.Exec(ctx, detach, orderID); err != nil {
		return nil, fmt.Errorf("failed to detach invoice lines: %w", err)
	}

	retire := `
		UPDATE invoices
		SET is_deleted = TRUE, updated_at = NOW()
		WHERE order_id = $1 AND is_deleted = FALSE
		RETURNING id
	`
	rows, err := r.db.Query(ctx, retire, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to supersede invoices: %w", err)
	}
	defer rows.Close()

	var retired []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan superseded invoice: %w", err)
		}
		retired = append(retired, id)
	}
	return retired, rows.Err()
}

func (r *invoiceRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE invoices SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewNotFoundError("invoice", id.String())
	}
	return nil
}

func (r *invoiceRepo) SetPDFObjectKey(ctx context.Context, id uuid.UUID, key string) error {
	query := `UPDATE invoices SET pdf_object_key = $1, updated_at = NOW() WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, key, id)
	if err != nil {
		return fmt.Errorf("failed to store invoice pdf key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewNotFoundError("invoice", id.String())
	}
	return nil
}
