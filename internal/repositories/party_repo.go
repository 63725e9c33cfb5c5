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

type PartyRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Party, error)
	// GetPrimaryState returns nil when the party has no address.
	GetPrimaryState(ctx context.Context, partyID uuid.UUID) (*string, error)
}

type partyRepo struct {
	db DBTX
}

func NewPartyRepo(db DBTX) PartyRepository {
	return &partyRepo{db: db}
}

func (r *partyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Party, error) {
	party := &models.Party{}
	query := `
		SELECT id, name, email, role, gstin, pan, created_at, updated_at
		FROM parties
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&party.ID, &party.Name, &party.Email, &party.Role, &party.GSTIN, &party.PAN, &party.CreatedAt, &party.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("party", id.String())
		}
		return nil, fmt.Errorf("failed to get party: %w", err)
	}
	return party, nil
}

func (r *partyRepo) GetPrimaryState(ctx context.Context, partyID uuid.UUID) (*string, error) {
	var state string
	query := `
		SELECT state
		FROM addresses
		WHERE party_id = $1
		ORDER BY is_primary DESC
		LIMIT 1
	`
	err := r.db.QueryRow(ctx, query, partyID).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get party state: %w", err)
	}
	return &state, nil
}
