package ledger

import (
	"testing"

	"github.com/agentbench/finledger/internal/domain/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountType_NormalBalance(t *testing.T) {
	tests := []struct {
		accountType AccountType
		want        EntryKind
	}{
		{AccountTypeAsset, Debit},
		{AccountTypeExpense, Debit},
		{AccountTypeLiability, Credit},
		{AccountTypeEquity, Credit},
		{AccountTypeRevenue, Credit},
	}

	for _, tt := range tests {
		t.Run(string(tt.accountType), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.accountType.NormalBalance())
		})
	}
}

func TestAccount_NormalBalance_Contra(t *testing.T) {
	contra := &Account{ID: "accumulated_depreciation", Type: AccountTypeAsset, IsContra: true}
	assert.Equal(t, Credit, contra.NormalBalance())

	contraRevenue := &Account{ID: "sales_returns", Type: AccountTypeRevenue, IsContra: true}
	assert.Equal(t, Debit, contraRevenue.NormalBalance())
}

func TestAccount_Apply(t *testing.T) {
	acct := &Account{ID: AccountCash, Type: AccountTypeAsset, Balance: money.Zero("USD")}

	// Debit increases an asset
	require.NoError(t, acct.Apply(Debit, money.MustNew(1000, "USD")))
	assert.Equal(t, int64(1000), acct.Balance.MinorUnits)

	// Credit decreases it
	require.NoError(t, acct.Apply(Credit, money.MustNew(300, "USD")))
	assert.Equal(t, int64(700), acct.Balance.MinorUnits)
}

func TestAccount_Apply_CurrencyMismatch(t *testing.T) {
	acct := &Account{ID: AccountCash, Type: AccountTypeAsset, Balance: money.Zero("USD")}

	err := acct.Apply(Debit, money.MustNew(100, "EUR"))
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, int64(0), acct.Balance.MinorUnits)
}

func TestFeeAccountID(t *testing.T) {
	assert.Equal(t, AccountReferralFees, FeeAccountID("referral"))
	assert.Equal(t, AccountFulfillmentFees, FeeAccountID("fulfillment"))
	assert.Equal(t, AccountStorageFees, FeeAccountID("storage"))
	assert.Equal(t, AccountAdvertisingFees, FeeAccountID("advertising"))
	assert.Equal(t, AccountOtherFees, FeeAccountID("surprise_fee"))
}

func TestChartOfAccounts_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool, len(ChartOfAccounts))
	for _, entry := range ChartOfAccounts {
		assert.False(t, seen[entry.ID], "duplicate chart entry %s", entry.ID)
		seen[entry.ID] = true
	}
}
