package ledger

import (
	"github.com/agentbench/finledger/internal/domain/money"
	"github.com/google/uuid"
)

// Entry is one debit or credit line of a transaction. Immutable once
// constructed; Amount must be strictly positive.
type Entry struct {
	ID          uuid.UUID   `json:"id"`
	AccountID   string      `json:"account_id"`
	Amount      money.Money `json:"amount"`
	Kind        EntryKind   `json:"kind"`
	Description string      `json:"description,omitempty"`
}

// NewEntry creates a ledger entry, rejecting non-positive amounts
func NewEntry(accountID string, amount money.Money, kind EntryKind, description string) (Entry, error) {
	if !amount.IsPositive() {
		return Entry{}, NewValidationError("entry amount must be positive, got %d for account %s",
			amount.MinorUnits, accountID)
	}
	return Entry{
		ID:          uuid.New(),
		AccountID:   accountID,
		Amount:      amount,
		Kind:        kind,
		Description: description,
	}, nil
}
