package accounting

import (
	"log/slog"

	"github.com/agentbench/finledger/internal/domain/ledger"
)

// Validator is the pre-posting gate. A transaction that fails validation is
// rejected before any balance is touched.
type Validator struct {
	logger *slog.Logger
}

func NewValidator(logger *slog.Logger) *Validator {
	return &Validator{logger: logger}
}

// ValidateTransaction rejects a transaction when debits and credits differ
// in minor units, any entry amount is non-positive, any referenced account
// is absent from the chart of accounts, or any entry currency differs from
// its account's currency. Currency is checked here so no entry can fail at
// apply time, after balances have started mutating.
func (v *Validator) ValidateTransaction(tx *ledger.Transaction, accounts map[string]*ledger.Account) error {
	if tx.DebitTotal() != tx.CreditTotal() {
		return ledger.NewValidationError("unbalanced transaction %s: debits=%d credits=%d",
			tx.ID, tx.DebitTotal(), tx.CreditTotal())
	}

	for _, e := range append(append([]ledger.Entry{}, tx.Debits...), tx.Credits...) {
		if !e.Amount.IsPositive() {
			return ledger.NewValidationError("entry %s has non-positive amount %d",
				e.ID, e.Amount.MinorUnits)
		}
		acct, ok := accounts[e.AccountID]
		if !ok {
			return ledger.NewValidationError("entry %s references unknown account %s",
				e.ID, e.AccountID)
		}
		if e.Amount.Currency != acct.Balance.Currency {
			return ledger.NewValidationError("entry %s currency %s does not match account %s currency %s",
				e.ID, e.Amount.Currency, e.AccountID, acct.Balance.Currency)
		}
	}

	return nil
}

// ValidateAccountNormalBalance warns when an entry's direction contradicts
// its account's normal balance. Advisory only: double-entry legitimately
// allows contra-entries, so this never fails the transaction.
func (v *Validator) ValidateAccountNormalBalance(tx *ledger.Transaction, accounts map[string]*ledger.Account) {
	check := func(entries []ledger.Entry, kind ledger.EntryKind) {
		for _, e := range entries {
			acct, ok := accounts[e.AccountID]
			if !ok {
				continue
			}
			if acct.NormalBalance() != kind {
				v.logger.Warn("entry direction contradicts account normal balance",
					"transaction_id", tx.ID,
					"account_id", e.AccountID,
					"entry_kind", kind,
					"normal_balance", acct.NormalBalance(),
				)
			}
		}
	}

	check(tx.Debits, ledger.Debit)
	check(tx.Credits, ledger.Credit)
}
