// Package ledger defines the double-entry data model: accounts, entries,
// transactions, and the fixed chart of accounts.
package ledger

import (
	"github.com/agentbench/finledger/internal/domain/money"
)

// AccountType classifies an account within the accounting equation
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// EntryKind is the direction of a ledger entry
type EntryKind string

const (
	Debit  EntryKind = "DEBIT"
	Credit EntryKind = "CREDIT"
)

// NormalBalance returns the entry direction that increases an account of
// this type: debit for assets and expenses, credit for the rest.
func (t AccountType) NormalBalance() EntryKind {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return Debit
	default:
		return Credit
	}
}

// Account is one account in the chart of accounts. Accounts are created once
// at ledger initialization and never deleted during a run; Balance is
// mutated only by posting.
type Account struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Type     AccountType `json:"type"`
	IsContra bool        `json:"is_contra,omitempty"` // Flips the normal balance
	Balance  money.Money `json:"balance"`
}

// NormalBalance returns the account's increasing direction, honoring the
// contra flag.
func (a *Account) NormalBalance() EntryKind {
	normal := a.Type.NormalBalance()
	if a.IsContra {
		if normal == Debit {
			return Credit
		}
		return Debit
	}
	return normal
}

// Apply adjusts the balance for one entry: an entry in the account's normal
// direction increases the balance, the opposite direction decreases it.
func (a *Account) Apply(kind EntryKind, amount money.Money) error {
	if amount.Currency != a.Balance.Currency {
		return NewValidationError("entry currency %s does not match account %s currency %s",
			amount.Currency, a.ID, a.Balance.Currency)
	}
	if kind == a.NormalBalance() {
		a.Balance.MinorUnits += amount.MinorUnits
	} else {
		a.Balance.MinorUnits -= amount.MinorUnits
	}
	return nil
}
