package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the closed set of ledger entry kinds. Incoming strings are
// validated once at the boundary and carried typed through the core.
type TransactionType string

const (
	TypeDeposit  TransactionType = "deposit"
	TypeWithdraw TransactionType = "withdraw"
	TypeTransfer TransactionType = "transfer"
)

// Valid reports whether t is one of the supported entry kinds.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeDeposit, TypeWithdraw, TypeTransfer:
		return true
	}
	return false
}

// Transaction is one immutable ledger entry: a single balance-affecting event
// on a single account. Entries are append-only; they are never updated or
// deleted in normal operation.
type Transaction struct {
	ID          int64           `json:"id" db:"id"`
	AccountID   int64           `json:"account_id" db:"account_id"`
	Type        TransactionType `json:"type" db:"type"`
	Amount      decimal.Decimal `json:"amount" db:"amount"` // always positive
	Category    string          `json:"category,omitempty" db:"category"`
	Description string          `json:"description,omitempty" db:"description"`
	// TransferID correlates the two entries produced by a transfer. Empty for
	// plain deposits and withdrawals.
	TransferID      string    `json:"transfer_id,omitempty" db:"transfer_id"`
	TransactionDate time.Time `json:"transaction_date" db:"transaction_date"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
