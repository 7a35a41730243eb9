package accounting

import (
	"log/slog"
	"sync"
	"time"

	"github.com/agentbench/finledger/internal/domain/ledger"
)

// StatementType identifies a financial statement kind
type StatementType string

const (
	StatementBalanceSheet    StatementType = "balance_sheet"
	StatementIncomeStatement StatementType = "income_statement"
)

// FinancialStatement is a derived, cached snapshot. It is never mutated,
// only replaced wholesale on regeneration.
type FinancialStatement struct {
	Type        StatementType  `json:"type"`
	PeriodStart time.Time      `json:"period_start,omitempty"`
	PeriodEnd   time.Time      `json:"period_end,omitempty"`
	Data        map[string]any `json:"data"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// Statements derives balance sheet and income statement views from current
// ledger balances. Results are cached; any successful posting invalidates
// both caches via the ledger's post-observer hook.
type Statements struct {
	ledger *Ledger
	logger *slog.Logger

	mu              sync.Mutex
	balanceSheet    *FinancialStatement
	incomeStatement *FinancialStatement
	incomeStart     time.Time
	incomeEnd       time.Time
}

// NewStatements creates a generator reading from the given ledger and hooks
// cache invalidation into its posting path.
func NewStatements(l *Ledger, logger *slog.Logger) *Statements {
	s := &Statements{ledger: l, logger: logger}
	l.RegisterObserver(s)
	return s
}

// TransactionPosted implements PostObserver
func (s *Statements) TransactionPosted(_ *ledger.Transaction) {
	s.InvalidateCache()
}

// InvalidateCache drops both cached statements
func (s *Statements) InvalidateCache() {
	s.mu.Lock()
	s.balanceSheet = nil
	s.incomeStatement = nil
	s.mu.Unlock()
}

// BalanceSheet returns the cached balance sheet, regenerating when the cache
// is empty or forceRefresh is set.
func (s *Statements) BalanceSheet(forceRefresh bool) *FinancialStatement {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.balanceSheet != nil && !forceRefresh {
		return s.balanceSheet
	}

	s.balanceSheet = s.generateBalanceSheet()
	s.logger.Debug("balance sheet regenerated")
	return s.balanceSheet
}

func (s *Statements) generateBalanceSheet() *FinancialStatement {
	accounts := s.ledger.Accounts()

	assets := make(map[string]int64)
	liabilities := make(map[string]int64)
	equity := make(map[string]int64)
	var assetTotal, liabilityTotal, equityTotal, profit int64

	for _, acct := range accounts {
		switch acct.Type {
		case ledger.AccountTypeAsset:
			assets[acct.ID] = acct.Balance.MinorUnits
			assetTotal += acct.Balance.MinorUnits
		case ledger.AccountTypeLiability:
			liabilities[acct.ID] = acct.Balance.MinorUnits
			liabilityTotal += acct.Balance.MinorUnits
		case ledger.AccountTypeEquity:
			equity[acct.ID] = acct.Balance.MinorUnits
			equityTotal += acct.Balance.MinorUnits
		case ledger.AccountTypeRevenue:
			profit += acct.Balance.MinorUnits
		case ledger.AccountTypeExpense:
			profit -= acct.Balance.MinorUnits
		}
	}

	// Unclosed revenue and expenses roll into equity as current-period profit
	equity["current_period_profit"] = profit
	equityTotal += profit

	difference := assetTotal - (liabilityTotal + equityTotal)

	return &FinancialStatement{
		Type:        StatementBalanceSheet,
		GeneratedAt: time.Now().UTC(),
		Data: map[string]any{
			"currency":                  s.ledger.Currency(),
			"assets":                    assets,
			"liabilities":               liabilities,
			"equity":                    equity,
			"total_assets":              assetTotal,
			"total_liabilities":         liabilityTotal,
			"total_equity":              equityTotal,
			"accounting_identity_valid": difference == 0,
			"difference_minor_units":    difference,
		},
	}
}

// IncomeStatement returns the cached income statement for the period,
// regenerating when the cache is empty, the period changed, or forceRefresh
// is set.
func (s *Statements) IncomeStatement(periodStart, periodEnd time.Time, forceRefresh bool) *FinancialStatement {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached := s.incomeStatement != nil &&
		s.incomeStart.Equal(periodStart) &&
		s.incomeEnd.Equal(periodEnd)
	if cached && !forceRefresh {
		return s.incomeStatement
	}

	s.incomeStatement = s.generateIncomeStatement(periodStart, periodEnd)
	s.incomeStart = periodStart
	s.incomeEnd = periodEnd
	s.logger.Debug("income statement regenerated",
		"period_start", periodStart,
		"period_end", periodEnd,
	)
	return s.incomeStatement
}

func (s *Statements) generateIncomeStatement(periodStart, periodEnd time.Time) *FinancialStatement {
	accounts := s.ledger.Accounts()

	revenue := make(map[string]int64)
	expenses := make(map[string]int64)
	var revenueTotal, expenseTotal int64

	for _, acct := range accounts {
		switch acct.Type {
		case ledger.AccountTypeRevenue:
			revenue[acct.ID] = acct.Balance.MinorUnits
			revenueTotal += acct.Balance.MinorUnits
		case ledger.AccountTypeExpense:
			expenses[acct.ID] = acct.Balance.MinorUnits
			expenseTotal += acct.Balance.MinorUnits
		}
	}

	return &FinancialStatement{
		Type:        StatementIncomeStatement,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		GeneratedAt: time.Now().UTC(),
		Data: map[string]any{
			"currency":      s.ledger.Currency(),
			"revenue":       revenue,
			"expenses":      expenses,
			"total_revenue": revenueTotal,
			"total_expense": expenseTotal,
			"net_income":    revenueTotal - expenseTotal,
		},
	}
}
