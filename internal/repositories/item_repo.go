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

type ItemRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.CatalogItem, error)
}

type itemRepo struct {
	db DBTX
}

func NewItemRepo(db DBTX) ItemRepository {
	return &itemRepo{db: db}
}

func (r *itemRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.CatalogItem, error) {
	item := &models.CatalogItem{}
	query := `
		SELECT id, name, price, quantity, tax_percentage, tax_type, seller_id, created_at, updated_at
		FROM items
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&item.ID, &item.Name, &item.Price, &item.Quantity, &item.TaxPercentage, &item.TaxType, &item.SellerID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("item", id.String())
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}
