// Package accounting holds the ledger core, the pre-posting validator, the
// statements generator, and the event-to-transaction translation layer.
package accounting

import (
	"log/slog"
	"sync"

	"github.com/agentbench/finledger/internal/domain/ledger"
	"github.com/agentbench/finledger/internal/domain/money"
)

// PostObserver is notified after every successfully posted transaction.
// Observers are called outside the ledger lock.
type PostObserver interface {
	TransactionPosted(tx *ledger.Transaction)
}

// Ledger is the in-memory system of record: the chart of accounts with
// running balances plus the append-only transaction log. All balance
// mutation happens under a single mutex so the accounting equation holds
// even under true parallelism; no reader can observe a transaction as
// posted with only some of its entries applied.
type Ledger struct {
	logger    *slog.Logger
	currency  string
	validator *Validator

	mu        sync.RWMutex
	accounts  map[string]*ledger.Account
	history   []*ledger.Transaction
	unposted  []*ledger.Transaction
	observers []PostObserver
}

// TrialBalanceRow is one account's balance expressed in its normal-balance
// column.
type TrialBalanceRow struct {
	AccountID   string      `json:"account_id"`
	AccountName string      `json:"account_name"`
	Debit       money.Money `json:"debit"`
	Credit      money.Money `json:"credit"`
}

// TrialBalance lists all account balances with debit and credit totals
type TrialBalance struct {
	Rows        []TrialBalanceRow `json:"rows"`
	DebitTotal  money.Money       `json:"debit_total"`
	CreditTotal money.Money       `json:"credit_total"`
}

// Balanced reports whether total debits equal total credits
func (tb TrialBalance) Balanced() bool {
	return tb.DebitTotal.MinorUnits == tb.CreditTotal.MinorUnits
}

// FinancialPosition is a flattened audit snapshot of the books
type FinancialPosition struct {
	Cash                money.Money `json:"cash"`
	InventoryValue      money.Money `json:"inventory_value"`
	Receivables         money.Money `json:"receivables"`
	TotalAssets         money.Money `json:"total_assets"`
	TotalLiabilities    money.Money `json:"total_liabilities"`
	TotalEquity         money.Money `json:"total_equity"`
	CurrentPeriodProfit money.Money `json:"current_period_profit"`
	IdentityValid       bool        `json:"accounting_identity_valid"`
}

// NewLedger creates a ledger with the fixed chart of accounts initialized
// to zero balances in the given currency.
func NewLedger(currency string, logger *slog.Logger) *Ledger {
	l := &Ledger{
		logger:    logger,
		currency:  currency,
		validator: NewValidator(logger),
		accounts:  make(map[string]*ledger.Account, len(ledger.ChartOfAccounts)),
	}
	l.initializeChartOfAccounts()
	return l
}

func (l *Ledger) initializeChartOfAccounts() {
	for _, entry := range ledger.ChartOfAccounts {
		l.accounts[entry.ID] = &ledger.Account{
			ID:      entry.ID,
			Name:    entry.Name,
			Type:    entry.Type,
			Balance: money.Zero(l.currency),
		}
	}
	l.logger.Info("chart of accounts initialized", "accounts", len(l.accounts), "currency", l.currency)
}

// RegisterObserver adds a post observer. Not safe to call concurrently with
// posting; wire observers during startup.
func (l *Ledger) RegisterObserver(o PostObserver) {
	l.observers = append(l.observers, o)
}

// PostTransaction validates and atomically applies a transaction: every
// entry adjusts its account per the account's normal balance, the posted
// flag flips, and the transaction is appended to history. On any validation
// failure no state is mutated and a *ledger.ValidationError is returned.
func (l *Ledger) PostTransaction(tx *ledger.Transaction) error {
	l.mu.Lock()

	if err := l.postLocked(tx); err != nil {
		l.mu.Unlock()
		l.logger.Error("transaction rejected",
			"transaction_id", tx.ID,
			"type", tx.Type,
			"error", err,
		)
		return err
	}
	l.mu.Unlock()

	l.logger.Info("transaction posted",
		"transaction_id", tx.ID,
		"type", tx.Type,
		"debit_total", tx.DebitTotal(),
	)

	for _, o := range l.observers {
		o.TransactionPosted(tx)
	}
	return nil
}

// postLocked applies a transaction; the caller holds the write lock
func (l *Ledger) postLocked(tx *ledger.Transaction) error {
	if tx.Posted() {
		return ledger.NewValidationError("transaction %s already posted", tx.ID)
	}
	if err := l.validator.ValidateTransaction(tx, l.accounts); err != nil {
		return err
	}
	l.validator.ValidateAccountNormalBalance(tx, l.accounts)

	for _, e := range tx.Debits {
		if err := l.accounts[e.AccountID].Apply(ledger.Debit, e.Amount); err != nil {
			return err
		}
	}
	for _, e := range tx.Credits {
		if err := l.accounts[e.AccountID].Apply(ledger.Credit, e.Amount); err != nil {
			return err
		}
	}

	if err := tx.MarkPosted(); err != nil {
		return err
	}
	l.history = append(l.history, tx)
	return nil
}

// Stage queues a transaction for a later PostAllUnposted. Used for deferred
// or batched writes; order of arrival is preserved for auditability.
func (l *Ledger) Stage(tx *ledger.Transaction) {
	l.mu.Lock()
	l.unposted = append(l.unposted, tx)
	l.mu.Unlock()

	l.logger.Debug("transaction staged", "transaction_id", tx.ID, "type", tx.Type)
}

// PostAllUnposted posts staged transactions in arrival order. The first
// failure stops the batch and leaves the remaining transactions staged.
func (l *Ledger) PostAllUnposted() error {
	l.mu.Lock()
	staged := l.unposted
	l.unposted = nil
	l.mu.Unlock()

	for i, tx := range staged {
		if err := l.PostTransaction(tx); err != nil {
			l.mu.Lock()
			l.unposted = append(staged[i+1:], l.unposted...)
			l.mu.Unlock()
			return err
		}
	}
	return nil
}

// UnpostedCount returns the number of staged transactions
func (l *Ledger) UnpostedCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.unposted)
}

// AccountBalance returns the current balance of one account
func (l *Ledger) AccountBalance(id string) (money.Money, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acct, ok := l.accounts[id]
	if !ok {
		return money.Money{}, ledger.NewValidationError("unknown account: %s", id)
	}
	return acct.Balance, nil
}

// AllAccountBalances returns a snapshot of every account's balance
func (l *Ledger) AllAccountBalances() map[string]money.Money {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]money.Money, len(l.accounts))
	for id, acct := range l.accounts {
		out[id] = acct.Balance
	}
	return out
}

// Accounts returns a snapshot of all account definitions and balances
func (l *Ledger) Accounts() []ledger.Account {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]ledger.Account, 0, len(ledger.ChartOfAccounts))
	for _, entry := range ledger.ChartOfAccounts {
		out = append(out, *l.accounts[entry.ID])
	}
	return out
}

// CashBalance returns the balance of the cash account
func (l *Ledger) CashBalance() money.Money {
	balance, _ := l.AccountBalance(ledger.AccountCash)
	return balance
}

// TrialBalance lists every account in its normal-balance column. A negative
// balance shows up in the opposite column so that the two totals stay
// comparable.
func (l *Ledger) TrialBalance() TrialBalance {
	l.mu.RLock()
	defer l.mu.RUnlock()

	tb := TrialBalance{
		DebitTotal:  money.Zero(l.currency),
		CreditTotal: money.Zero(l.currency),
	}

	for _, entry := range ledger.ChartOfAccounts {
		acct := l.accounts[entry.ID]
		row := TrialBalanceRow{
			AccountID:   acct.ID,
			AccountName: acct.Name,
			Debit:       money.Zero(l.currency),
			Credit:      money.Zero(l.currency),
		}

		units := acct.Balance.MinorUnits
		column := acct.NormalBalance()
		if units < 0 {
			units = -units
			if column == ledger.Debit {
				column = ledger.Credit
			} else {
				column = ledger.Debit
			}
		}

		if column == ledger.Debit {
			row.Debit.MinorUnits = units
			tb.DebitTotal.MinorUnits += units
		} else {
			row.Credit.MinorUnits = units
			tb.CreditTotal.MinorUnits += units
		}
		tb.Rows = append(tb.Rows, row)
	}

	return tb
}

// IsTrialBalanceBalanced reports whether total debits equal total credits
func (l *Ledger) IsTrialBalanceBalanced() bool {
	return l.TrialBalance().Balanced()
}

// typeTotalsLocked sums balances per account type; caller holds a lock
func (l *Ledger) typeTotalsLocked() map[ledger.AccountType]int64 {
	totals := make(map[ledger.AccountType]int64, 5)
	for _, acct := range l.accounts {
		totals[acct.Type] += acct.Balance.MinorUnits
	}
	return totals
}

// VerifyIntegrity recomputes the accounting equation from current balances:
// Assets == Liabilities + Equity, where unclosed revenue and expense
// balances count toward equity as current-period profit. With strict set,
// a violation returns a *ledger.AccountingError that the owning simulation
// must treat as fatal; otherwise it returns (false, nil).
func (l *Ledger) VerifyIntegrity(strict bool) (bool, error) {
	l.mu.RLock()
	totals := l.typeTotalsLocked()
	l.mu.RUnlock()

	assets := totals[ledger.AccountTypeAsset]
	liabilitiesEquity := totals[ledger.AccountTypeLiability] +
		totals[ledger.AccountTypeEquity] +
		totals[ledger.AccountTypeRevenue] -
		totals[ledger.AccountTypeExpense]

	if assets == liabilitiesEquity {
		return true, nil
	}

	l.logger.Error("accounting equation violated",
		"assets", assets,
		"liabilities_plus_equity", liabilitiesEquity,
		"difference", assets-liabilitiesEquity,
	)

	if strict {
		return false, &ledger.AccountingError{
			Detail:            "assets do not equal liabilities plus equity",
			Assets:            assets,
			LiabilitiesEquity: liabilitiesEquity,
		}
	}
	return false, nil
}

// InjectEquity posts an owner capital contribution: debit Cash, credit
// Owner's Equity.
func (l *Ledger) InjectEquity(amount money.Money, description string) (*ledger.Transaction, error) {
	debit, err := ledger.NewEntry(ledger.AccountCash, amount, ledger.Debit, description)
	if err != nil {
		return nil, err
	}
	credit, err := ledger.NewEntry(ledger.AccountOwnersEquity, amount, ledger.Credit, description)
	if err != nil {
		return nil, err
	}

	tx, err := ledger.NewTransaction(
		ledger.TransactionTypeEquityInjection,
		description,
		[]ledger.Entry{debit},
		[]ledger.Entry{credit},
		nil,
	)
	if err != nil {
		return nil, err
	}

	if err := l.PostTransaction(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// InitializeCapital posts the startup equity injection when the configured
// amount is positive; zero is a no-op.
func (l *Ledger) InitializeCapital(amount money.Money) error {
	if !amount.IsPositive() {
		return nil
	}
	_, err := l.InjectEquity(amount, "initial capital")
	return err
}

// TransactionHistory returns the most recent posted transactions, oldest
// first. A non-positive limit returns the full history.
func (l *Ledger) TransactionHistory(limit int) []*ledger.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	start := 0
	if limit > 0 && len(l.history) > limit {
		start = len(l.history) - limit
	}
	out := make([]*ledger.Transaction, len(l.history)-start)
	copy(out, l.history[start:])
	return out
}

// TransactionsByType filters posted transactions by type, oldest first
func (l *Ledger) TransactionsByType(txType ledger.TransactionType) []*ledger.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*ledger.Transaction
	for _, tx := range l.history {
		if tx.Type == txType {
			out = append(out, tx)
		}
	}
	return out
}

// TransactionsByAccount filters posted transactions touching an account,
// oldest first.
func (l *Ledger) TransactionsByAccount(accountID string) []*ledger.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*ledger.Transaction
	for _, tx := range l.history {
		if txTouchesAccount(tx, accountID) {
			out = append(out, tx)
		}
	}
	return out
}

func txTouchesAccount(tx *ledger.Transaction, accountID string) bool {
	for _, e := range tx.Debits {
		if e.AccountID == accountID {
			return true
		}
	}
	for _, e := range tx.Credits {
		if e.AccountID == accountID {
			return true
		}
	}
	return false
}

// FinancialPosition returns a flattened audit snapshot of the books
func (l *Ledger) FinancialPosition() FinancialPosition {
	l.mu.RLock()
	totals := l.typeTotalsLocked()
	cash := l.accounts[ledger.AccountCash].Balance
	inventory := l.accounts[ledger.AccountInventory].Balance
	receivables := l.accounts[ledger.AccountAccountsReceivable].Balance
	l.mu.RUnlock()

	profit := totals[ledger.AccountTypeRevenue] - totals[ledger.AccountTypeExpense]
	equity := totals[ledger.AccountTypeEquity] + profit
	assets := totals[ledger.AccountTypeAsset]
	liabilities := totals[ledger.AccountTypeLiability]

	return FinancialPosition{
		Cash:                cash,
		InventoryValue:      inventory,
		Receivables:         receivables,
		TotalAssets:         money.Money{MinorUnits: assets, Currency: l.currency},
		TotalLiabilities:    money.Money{MinorUnits: liabilities, Currency: l.currency},
		TotalEquity:         money.Money{MinorUnits: equity, Currency: l.currency},
		CurrentPeriodProfit: money.Money{MinorUnits: profit, Currency: l.currency},
		IdentityValid:       assets == liabilities+equity,
	}
}

// Currency returns the ledger's base currency code
func (l *Ledger) Currency() string {
	return l.currency
}
