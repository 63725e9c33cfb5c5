package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransactionStatus is INITIATED until the gateway reports SUCCESS or FAILURE.
type TransactionStatus string

const (
	TransactionStatusInitiated TransactionStatus = "INITIATED"
	TransactionStatusSuccess   TransactionStatus = "SUCCESS"
	TransactionStatusFailure   TransactionStatus = "FAILURE"
)

// IsTerminal reports whether no further transition is allowed.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusSuccess, TransactionStatusFailure:
		return true
	case TransactionStatusInitiated:
		return false
	}
	return false
}

// ParseCallbackStatus maps a gateway outcome to a terminal status.
// The gateway reports failures as FAILED; FAILURE is accepted as well.
func ParseCallbackStatus(raw string) (TransactionStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SUCCESS":
		return TransactionStatusSuccess, nil
	case "FAILURE", "FAILED":
		return TransactionStatusFailure, nil
	}
	return "", fmt.Errorf("unsupported transaction status %q", raw)
}

type Transaction struct {
	ID                    uuid.UUID         `json:"id" db:"id"`
	OrderID               uuid.UUID         `json:"order_id" db:"order_id"`
	UserID                uuid.UUID         `json:"user_id" db:"user_id"`
	ExternalTransactionID string            `json:"external_transaction_id" db:"external_transaction_id"`
	TransactionHash       string            `json:"transaction_hash" db:"transaction_hash"`
	Status                TransactionStatus `json:"status" db:"status"`
	CreatedAt             time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at" db:"updated_at"`
}
