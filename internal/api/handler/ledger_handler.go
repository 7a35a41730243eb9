package handler

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/agentbench/finledger/internal/accounting"
	"github.com/agentbench/finledger/internal/domain/ledger"
	"github.com/agentbench/finledger/internal/domain/money"
	"github.com/gin-gonic/gin"
)

// LedgerHandler handles HTTP requests for ledger operations
type LedgerHandler struct {
	ledger     *accounting.Ledger
	statements *accounting.Statements
	logger     *slog.Logger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(logger *slog.Logger, l *accounting.Ledger, statements *accounting.Statements) *LedgerHandler {
	return &LedgerHandler{
		ledger:     l,
		statements: statements,
		logger:     logger,
	}
}

// ListAccounts returns the chart of accounts with current balances
func (h *LedgerHandler) ListAccounts(c *gin.Context) {
	accounts := h.ledger.Accounts()
	out := make([]AccountResponse, 0, len(accounts))
	for _, acct := range accounts {
		out = append(out, mapAccountToResponse(acct))
	}
	RespondOK(c, out)
}

// GetAccountBalance returns one account's balance, 404 for unknown accounts
func (h *LedgerHandler) GetAccountBalance(c *gin.Context) {
	id := c.Param("id")
	balance, err := h.ledger.AccountBalance(id)
	if err != nil {
		RespondNotFound(c, "Account not found: "+id)
		return
	}
	RespondOK(c, gin.H{"account_id": id, "minor_units": balance.MinorUnits, "currency": balance.Currency})
}

// GetTrialBalance returns all account balances with debit/credit totals
func (h *LedgerHandler) GetTrialBalance(c *gin.Context) {
	tb := h.ledger.TrialBalance()
	RespondOK(c, gin.H{"trial_balance": tb, "balanced": tb.Balanced()})
}

// GetFinancialPosition returns the flattened audit snapshot
func (h *LedgerHandler) GetFinancialPosition(c *gin.Context) {
	RespondOK(c, h.ledger.FinancialPosition())
}

// VerifyIntegrity recomputes the accounting equation. The check never halts
// the server; a violation is reported in the response body.
func (h *LedgerHandler) VerifyIntegrity(c *gin.Context) {
	ok, err := h.ledger.VerifyIntegrity(true)
	if err != nil {
		var aErr *ledger.AccountingError
		if errors.As(err, &aErr) {
			RespondOK(c, gin.H{
				"valid":                   false,
				"assets":                  aErr.Assets,
				"liabilities_plus_equity": aErr.LiabilitiesEquity,
			})
			return
		}
		h.logger.Error("integrity check failed", "error", err)
		RespondInternalError(c)
		return
	}
	RespondOK(c, gin.H{"valid": ok})
}

// GetBalanceSheet returns the (cached) balance sheet
func (h *LedgerHandler) GetBalanceSheet(c *gin.Context) {
	force := c.Query("refresh") == "true"
	RespondOK(c, h.statements.BalanceSheet(force))
}

// GetIncomeStatement returns the (cached) income statement for a period.
// Period bounds default to the epoch and now.
func (h *LedgerHandler) GetIncomeStatement(c *gin.Context) {
	force := c.Query("refresh") == "true"

	start, err := parseTimeQuery(c, "period_start", time.Time{})
	if err != nil {
		RespondBadRequest(c, "Invalid period_start: "+err.Error())
		return
	}
	end, err := parseTimeQuery(c, "period_end", time.Now().UTC())
	if err != nil {
		RespondBadRequest(c, "Invalid period_end: "+err.Error())
		return
	}

	RespondOK(c, h.statements.IncomeStatement(start, end, force))
}

// ListTransactions returns posted transactions, optionally limited or
// filtered by type or account.
func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	if txType := c.Query("type"); txType != "" {
		RespondOK(c, mapTransactionList(h.ledger.TransactionsByType(ledger.TransactionType(txType))))
		return
	}
	if accountID := c.Query("account_id"); accountID != "" {
		RespondOK(c, mapTransactionList(h.ledger.TransactionsByAccount(accountID)))
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			RespondBadRequest(c, "Invalid limit")
			return
		}
		limit = parsed
	}
	RespondOK(c, mapTransactionList(h.ledger.TransactionHistory(limit)))
}

// PostTransaction validates and posts a balanced transaction
func (h *LedgerHandler) PostTransaction(c *gin.Context) {
	var req PostTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	debits, err := buildEntries(req.Debits, ledger.Debit)
	if err != nil {
		RespondUnprocessable(c, err.Error())
		return
	}
	credits, err := buildEntries(req.Credits, ledger.Credit)
	if err != nil {
		RespondUnprocessable(c, err.Error())
		return
	}

	tx, err := ledger.NewTransaction(ledger.TransactionType(req.Type), req.Description, debits, credits, req.Metadata)
	if err != nil {
		RespondUnprocessable(c, err.Error())
		return
	}

	if err := h.ledger.PostTransaction(tx); err != nil {
		var vErr *ledger.ValidationError
		if errors.As(err, &vErr) {
			RespondUnprocessable(c, vErr.Reason)
			return
		}
		h.logger.Error("Failed to post transaction", "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapTransactionToResponse(tx))
}

// InjectEquity posts an owner capital contribution
func (h *LedgerHandler) InjectEquity(c *gin.Context) {
	var req InjectEquityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	amount, err := money.New(req.MinorUnits, req.Currency)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	description := req.Description
	if description == "" {
		description = "equity injection"
	}

	tx, err := h.ledger.InjectEquity(amount, description)
	if err != nil {
		var vErr *ledger.ValidationError
		if errors.As(err, &vErr) {
			RespondUnprocessable(c, vErr.Reason)
			return
		}
		h.logger.Error("Failed to inject equity", "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapTransactionToResponse(tx))
}

func buildEntries(reqs []EntryRequest, kind ledger.EntryKind) ([]ledger.Entry, error) {
	entries := make([]ledger.Entry, 0, len(reqs))
	for _, r := range reqs {
		amount, err := money.New(r.MinorUnits, r.Currency)
		if err != nil {
			return nil, err
		}
		e, err := ledger.NewEntry(r.AccountID, amount, kind, r.Description)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func parseTimeQuery(c *gin.Context, key string, fallback time.Time) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return time.Parse(time.RFC3339, raw)
}
