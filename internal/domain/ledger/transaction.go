package ledger

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType defines the closed set of transaction kinds
type TransactionType string

const (
	TransactionTypeSale                TransactionType = "sale"
	TransactionTypeFeePayment          TransactionType = "fee_payment"
	TransactionTypeInventoryPurchase   TransactionType = "inventory_purchase"
	TransactionTypeInventoryAdjustment TransactionType = "inventory_adjustment"
	TransactionTypeCashDeposit         TransactionType = "cash_deposit"
	TransactionTypeCashWithdrawal      TransactionType = "cash_withdrawal"
	TransactionTypeEquityInjection     TransactionType = "equity_injection"
	TransactionTypeOwnerDistribution   TransactionType = "owner_distribution"
	TransactionTypeAdjustingEntry      TransactionType = "adjusting_entry"
)

// Transaction is a balanced set of debit and credit entries. Immutable after
// construction except for the posted flag, which flips exactly once.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	Debits      []Entry         `json:"debits"`
	Credits     []Entry         `json:"credits"`
	Timestamp   time.Time       `json:"timestamp"`
	Metadata    map[string]any  `json:"metadata,omitempty"`

	posted bool
}

// NewTransaction constructs a transaction, enforcing the double-entry
// invariant at construction time: debit and credit totals must match in
// minor units, exactly, and every entry must carry the same currency.
func NewTransaction(txType TransactionType, description string, debits, credits []Entry, metadata map[string]any) (*Transaction, error) {
	if len(debits) == 0 || len(credits) == 0 {
		return nil, NewValidationError("transaction requires at least one debit and one credit entry")
	}

	for _, e := range debits {
		if e.Kind != Debit {
			return nil, NewValidationError("entry %s in debits has kind %s", e.ID, e.Kind)
		}
		if !e.Amount.IsPositive() {
			return nil, NewValidationError("debit entry for account %s has non-positive amount %d", e.AccountID, e.Amount.MinorUnits)
		}
	}
	for _, e := range credits {
		if e.Kind != Credit {
			return nil, NewValidationError("entry %s in credits has kind %s", e.ID, e.Kind)
		}
		if !e.Amount.IsPositive() {
			return nil, NewValidationError("credit entry for account %s has non-positive amount %d", e.AccountID, e.Amount.MinorUnits)
		}
	}

	currency := debits[0].Amount.Currency
	for _, e := range append(append([]Entry{}, debits...), credits...) {
		if e.Amount.Currency != currency {
			return nil, NewValidationError("mixed currencies in transaction: %s and %s", currency, e.Amount.Currency)
		}
	}

	debitTotal := entryTotal(debits)
	creditTotal := entryTotal(credits)
	if debitTotal != creditTotal {
		return nil, NewValidationError("unbalanced transaction: debits=%d credits=%d", debitTotal, creditTotal)
	}

	return &Transaction{
		ID:          uuid.New(),
		Type:        txType,
		Description: description,
		Debits:      debits,
		Credits:     credits,
		Timestamp:   time.Now().UTC(),
		Metadata:    metadata,
	}, nil
}

// Posted reports whether the transaction has been applied to account balances
func (t *Transaction) Posted() bool {
	return t.posted
}

// MarkPosted flips the posted flag. It returns a ValidationError if the
// transaction was already posted; the flag never flips back.
func (t *Transaction) MarkPosted() error {
	if t.posted {
		return NewValidationError("transaction %s already posted", t.ID)
	}
	t.posted = true
	return nil
}

// DebitTotal returns the sum of debit amounts in minor units
func (t *Transaction) DebitTotal() int64 {
	return entryTotal(t.Debits)
}

// CreditTotal returns the sum of credit amounts in minor units
func (t *Transaction) CreditTotal() int64 {
	return entryTotal(t.Credits)
}

// IsBalanced re-checks the double-entry invariant
func (t *Transaction) IsBalanced() bool {
	return t.DebitTotal() == t.CreditTotal()
}

func entryTotal(entries []Entry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Amount.MinorUnits
	}
	return total
}
