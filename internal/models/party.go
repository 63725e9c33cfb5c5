package models

import (
	"time"

	"github.com/google/uuid"
)

// PartyRole is the role a party plays in a sale.
type PartyRole string

const (
	PartyRoleBuyer  PartyRole = "BUYER"
	PartyRoleSeller PartyRole = "SELLER"
	PartyRoleBroker PartyRole = "BROKER"
	PartyRoleGuest  PartyRole = "GUEST"
)

// Valid reports whether r is one of the known roles.
func (r PartyRole) Valid() bool {
	switch r {
	case PartyRoleBuyer, PartyRoleSeller, PartyRoleBroker, PartyRoleGuest:
		return true
	}
	return false
}

// Party is a buyer, seller, broker or guest account.
type Party struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Role      PartyRole `json:"role" db:"role"`
	GSTIN     *string   `json:"gstin" db:"gstin"`
	PAN       *string   `json:"pan" db:"pan"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type AddressType string

const (
	AddressTypeHome AddressType = "HOME"
	AddressTypeWork AddressType = "WORK"
)

// Address belongs to a single party. State is the GST jurisdiction.
type Address struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	PartyID     uuid.UUID   `json:"party_id" db:"party_id"`
	Line1       string      `json:"line1" db:"line1"`
	Line2       *string     `json:"line2" db:"line2"`
	City        string      `json:"city" db:"city"`
	State       string      `json:"state" db:"state"`
	Zip         string      `json:"zip" db:"zip"`
	Country     string      `json:"country" db:"country"`
	AddressType AddressType `json:"address_type" db:"address_type"`
	IsPrimary   bool        `json:"is_primary" db:"is_primary"`
}
