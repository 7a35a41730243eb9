package accounting

import (
	"log/slog"
	"testing"

	"github.com/agentbench/finledger/internal/domain/ledger"
	"github.com/agentbench/finledger/internal/domain/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usd(minorUnits int64) money.Money {
	return money.MustNew(minorUnits, "USD")
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	return NewLedger("USD", slog.Default())
}

func entry(t *testing.T, accountID string, amount int64, kind ledger.EntryKind) ledger.Entry {
	t.Helper()
	e, err := ledger.NewEntry(accountID, usd(amount), kind, "")
	require.NoError(t, err)
	return e
}

func depositTx(t *testing.T, amount int64) *ledger.Transaction {
	t.Helper()
	tx, err := ledger.NewTransaction(
		ledger.TransactionTypeCashDeposit,
		"deposit",
		[]ledger.Entry{entry(t, ledger.AccountCash, amount, ledger.Debit)},
		[]ledger.Entry{entry(t, ledger.AccountOwnersEquity, amount, ledger.Credit)},
		nil,
	)
	require.NoError(t, err)
	return tx
}

func TestNewLedger_InitializesChart(t *testing.T) {
	l := newTestLedger(t)

	balances := l.AllAccountBalances()
	assert.Len(t, balances, len(ledger.ChartOfAccounts))
	for id, balance := range balances {
		assert.True(t, balance.IsZero(), "account %s should start at zero", id)
		assert.Equal(t, "USD", balance.Currency)
	}

	assert.True(t, l.IsTrialBalanceBalanced())
}

func TestPostTransaction_UpdatesBalances(t *testing.T) {
	l := newTestLedger(t)
	tx := depositTx(t, 10000)

	require.NoError(t, l.PostTransaction(tx))
	assert.True(t, tx.Posted())

	cash, err := l.AccountBalance(ledger.AccountCash)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), cash.MinorUnits)

	equity, err := l.AccountBalance(ledger.AccountOwnersEquity)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), equity.MinorUnits)

	assert.True(t, l.IsTrialBalanceBalanced())
	ok, err := l.VerifyIntegrity(true)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPostTransaction_RejectsUnknownAccount(t *testing.T) {
	l := newTestLedger(t)

	tx, err := ledger.NewTransaction(
		ledger.TransactionTypeAdjustingEntry,
		"bad account",
		[]ledger.Entry{entry(t, "petty_cash", 100, ledger.Debit)},
		[]ledger.Entry{entry(t, ledger.AccountOwnersEquity, 100, ledger.Credit)},
		nil,
	)
	require.NoError(t, err)

	err = l.PostTransaction(tx)
	var vErr *ledger.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.False(t, tx.Posted())

	// No state mutated
	for id, balance := range l.AllAccountBalances() {
		assert.True(t, balance.IsZero(), "account %s mutated by rejected transaction", id)
	}
	assert.Empty(t, l.TransactionHistory(0))
}

func TestPostTransaction_RejectsForeignCurrencyWithoutMutation(t *testing.T) {
	l := newTestLedger(t)

	// Homogeneous EUR transaction against USD books: construction accepts
	// it, the posting gate must reject it before any balance is applied
	debit, err := ledger.NewEntry(ledger.AccountCash, money.MustNew(10000, "EUR"), ledger.Debit, "")
	require.NoError(t, err)
	credit, err := ledger.NewEntry(ledger.AccountOwnersEquity, money.MustNew(10000, "EUR"), ledger.Credit, "")
	require.NoError(t, err)

	tx, err := ledger.NewTransaction(
		ledger.TransactionTypeCashDeposit, "eur deposit",
		[]ledger.Entry{debit}, []ledger.Entry{credit}, nil,
	)
	require.NoError(t, err)

	err = l.PostTransaction(tx)
	var vErr *ledger.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.False(t, tx.Posted())

	assert.True(t, l.CashBalance().IsZero())
	for id, balance := range l.AllAccountBalances() {
		assert.True(t, balance.IsZero(), "account %s mutated by rejected transaction", id)
	}
	ok, err := l.VerifyIntegrity(false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, l.TransactionHistory(0))
}

func TestPostTransaction_RejectsDoublePosting(t *testing.T) {
	l := newTestLedger(t)
	tx := depositTx(t, 500)

	require.NoError(t, l.PostTransaction(tx))
	err := l.PostTransaction(tx)
	var vErr *ledger.ValidationError
	require.ErrorAs(t, err, &vErr)

	cash, _ := l.AccountBalance(ledger.AccountCash)
	assert.Equal(t, int64(500), cash.MinorUnits, "double posting must not apply twice")
}

func TestInjectEquity_CapitalScenario(t *testing.T) {
	l := newTestLedger(t)

	// Inject $10,000.00
	tx, err := l.InjectEquity(usd(1000000), "initial capital")
	require.NoError(t, err)
	assert.Equal(t, ledger.TransactionTypeEquityInjection, tx.Type)

	assert.Equal(t, int64(1000000), l.CashBalance().MinorUnits)
	assert.True(t, l.IsTrialBalanceBalanced())

	ok, err := l.VerifyIntegrity(true)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInitializeCapital_ZeroIsNoop(t *testing.T) {
	l := newTestLedger(t)

	require.NoError(t, l.InitializeCapital(money.Zero("USD")))
	assert.Empty(t, l.TransactionHistory(0))

	require.NoError(t, l.InitializeCapital(usd(5000)))
	assert.Len(t, l.TransactionHistory(0), 1)
	assert.Equal(t, int64(5000), l.CashBalance().MinorUnits)
}

func TestStageAndPostAllUnposted(t *testing.T) {
	l := newTestLedger(t)

	first := depositTx(t, 100)
	second := depositTx(t, 200)
	l.Stage(first)
	l.Stage(second)
	assert.Equal(t, 2, l.UnpostedCount())

	require.NoError(t, l.PostAllUnposted())
	assert.Equal(t, 0, l.UnpostedCount())

	history := l.TransactionHistory(0)
	require.Len(t, history, 2)
	// Arrival order preserved
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, second.ID, history[1].ID)
	assert.Equal(t, int64(300), l.CashBalance().MinorUnits)
}

func TestPostAllUnposted_StopsOnFailure(t *testing.T) {
	l := newTestLedger(t)

	bad, err := ledger.NewTransaction(
		ledger.TransactionTypeAdjustingEntry,
		"unknown account",
		[]ledger.Entry{entry(t, "nope", 100, ledger.Debit)},
		[]ledger.Entry{entry(t, ledger.AccountOwnersEquity, 100, ledger.Credit)},
		nil,
	)
	require.NoError(t, err)

	good := depositTx(t, 700)
	l.Stage(bad)
	l.Stage(good)

	err = l.PostAllUnposted()
	var vErr *ledger.ValidationError
	require.ErrorAs(t, err, &vErr)

	// The transaction behind the failure stays staged
	assert.Equal(t, 1, l.UnpostedCount())
	assert.Equal(t, int64(0), l.CashBalance().MinorUnits)

	require.NoError(t, l.PostAllUnposted())
	assert.Equal(t, int64(700), l.CashBalance().MinorUnits)
}

func TestVerifyIntegrity_ViolationModes(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.InitializeCapital(usd(10000)))

	// Corrupt a balance behind the ledger's back to simulate a translation bug
	l.mu.Lock()
	l.accounts[ledger.AccountCash].Balance.MinorUnits += 1
	l.mu.Unlock()

	ok, err := l.VerifyIntegrity(false)
	assert.False(t, ok)
	assert.NoError(t, err)

	ok, err = l.VerifyIntegrity(true)
	assert.False(t, ok)
	var aErr *ledger.AccountingError
	require.ErrorAs(t, err, &aErr)
	assert.Equal(t, int64(10001), aErr.Assets)
	assert.Equal(t, int64(10000), aErr.LiabilitiesEquity)
}

func TestTransactionHistoryAndFilters(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.InitializeCapital(usd(100000)))

	purchase, err := ledger.NewTransaction(
		ledger.TransactionTypeInventoryPurchase,
		"stock up",
		[]ledger.Entry{entry(t, ledger.AccountInventory, 40000, ledger.Debit)},
		[]ledger.Entry{entry(t, ledger.AccountCash, 40000, ledger.Credit)},
		nil,
	)
	require.NoError(t, err)
	require.NoError(t, l.PostTransaction(purchase))

	assert.Len(t, l.TransactionHistory(0), 2)
	assert.Len(t, l.TransactionHistory(1), 1)
	assert.Equal(t, purchase.ID, l.TransactionHistory(1)[0].ID)

	byType := l.TransactionsByType(ledger.TransactionTypeInventoryPurchase)
	require.Len(t, byType, 1)
	assert.Equal(t, purchase.ID, byType[0].ID)

	byCash := l.TransactionsByAccount(ledger.AccountCash)
	assert.Len(t, byCash, 2)
	byInventory := l.TransactionsByAccount(ledger.AccountInventory)
	require.Len(t, byInventory, 1)
	assert.Equal(t, purchase.ID, byInventory[0].ID)
}

func TestFinancialPosition(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.InitializeCapital(usd(100000)))

	purchase, err := ledger.NewTransaction(
		ledger.TransactionTypeInventoryPurchase,
		"stock up",
		[]ledger.Entry{entry(t, ledger.AccountInventory, 30000, ledger.Debit)},
		[]ledger.Entry{entry(t, ledger.AccountCash, 30000, ledger.Credit)},
		nil,
	)
	require.NoError(t, err)
	require.NoError(t, l.PostTransaction(purchase))

	pos := l.FinancialPosition()
	assert.Equal(t, int64(70000), pos.Cash.MinorUnits)
	assert.Equal(t, int64(30000), pos.InventoryValue.MinorUnits)
	assert.Equal(t, int64(0), pos.Receivables.MinorUnits)
	assert.Equal(t, int64(100000), pos.TotalAssets.MinorUnits)
	assert.Equal(t, int64(0), pos.TotalLiabilities.MinorUnits)
	assert.Equal(t, int64(100000), pos.TotalEquity.MinorUnits)
	assert.Equal(t, int64(0), pos.CurrentPeriodProfit.MinorUnits)
	assert.True(t, pos.IdentityValid)
}

func TestPostObserver_NotifiedAfterPosting(t *testing.T) {
	l := newTestLedger(t)

	var seen []*ledger.Transaction
	l.RegisterObserver(observerFunc(func(tx *ledger.Transaction) {
		seen = append(seen, tx)
		// Reading the ledger from an observer must not deadlock
		assert.True(t, l.IsTrialBalanceBalanced())
	}))

	tx := depositTx(t, 2500)
	require.NoError(t, l.PostTransaction(tx))
	require.Len(t, seen, 1)
	assert.Equal(t, tx.ID, seen[0].ID)
}

type observerFunc func(*ledger.Transaction)

func (f observerFunc) TransactionPosted(tx *ledger.Transaction) { f(tx) }
