package ledger

// Well-known account IDs used by the event translation layer
const (
	AccountCash               = "cash"
	AccountAccountsReceivable = "accounts_receivable"
	AccountInventory          = "inventory"
	AccountAccountsPayable    = "accounts_payable"
	AccountOwnersEquity       = "owners_equity"
	AccountRetainedEarnings   = "retained_earnings"
	AccountSalesRevenue       = "sales_revenue"
	AccountCOGS               = "cogs"
	AccountReferralFees       = "referral_fees"
	AccountFulfillmentFees    = "fulfillment_fees"
	AccountStorageFees        = "storage_fees"
	AccountAdvertisingFees    = "advertising_fees"
	AccountOtherFees          = "other_fees" // Catch-all for untyped fees and rounding residuals
	AccountInventoryWritedown = "inventory_writedowns"
)

// ChartEntry is one predefined entry in the chart of accounts
type ChartEntry struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	Type AccountType `json:"type"`
}

// ChartOfAccounts is the fixed chart used for every simulation run
var ChartOfAccounts = []ChartEntry{
	// Assets
	{ID: AccountCash, Name: "Cash", Type: AccountTypeAsset},
	{ID: AccountAccountsReceivable, Name: "Accounts Receivable", Type: AccountTypeAsset},
	{ID: AccountInventory, Name: "Inventory", Type: AccountTypeAsset},

	// Liabilities
	{ID: AccountAccountsPayable, Name: "Accounts Payable", Type: AccountTypeLiability},

	// Equity
	{ID: AccountOwnersEquity, Name: "Owner's Equity", Type: AccountTypeEquity},
	{ID: AccountRetainedEarnings, Name: "Retained Earnings", Type: AccountTypeEquity},

	// Revenue
	{ID: AccountSalesRevenue, Name: "Sales Revenue", Type: AccountTypeRevenue},

	// Expenses
	{ID: AccountCOGS, Name: "Cost of Goods Sold", Type: AccountTypeExpense},
	{ID: AccountReferralFees, Name: "Referral Fees", Type: AccountTypeExpense},
	{ID: AccountFulfillmentFees, Name: "Fulfillment Fees", Type: AccountTypeExpense},
	{ID: AccountStorageFees, Name: "Storage Fees", Type: AccountTypeExpense},
	{ID: AccountAdvertisingFees, Name: "Advertising Fees", Type: AccountTypeExpense},
	{ID: AccountOtherFees, Name: "Other Fees", Type: AccountTypeExpense},
	{ID: AccountInventoryWritedown, Name: "Inventory Write-downs", Type: AccountTypeExpense},
}

// FeeAccountID maps a fee-breakdown key from a sale event to its expense
// account. Unknown fee types land in the catch-all.
func FeeAccountID(feeType string) string {
	switch feeType {
	case "referral":
		return AccountReferralFees
	case "fulfillment":
		return AccountFulfillmentFees
	case "storage":
		return AccountStorageFees
	case "advertising":
		return AccountAdvertisingFees
	default:
		return AccountOtherFees
	}
}
