package handler

import (
	"time"

	"github.com/agentbench/finledger/internal/domain/ledger"
)

// PostTransactionRequest represents a request to post a balanced transaction
type PostTransactionRequest struct {
	Type        string             `json:"type" binding:"required"`
	Description string             `json:"description"`
	Debits      []EntryRequest     `json:"debits" binding:"required,min=1,dive"`
	Credits     []EntryRequest     `json:"credits" binding:"required,min=1,dive"`
	Metadata    map[string]any     `json:"metadata,omitempty"`
}

// EntryRequest is one debit or credit line in a posting request
type EntryRequest struct {
	AccountID   string `json:"account_id" binding:"required"`
	MinorUnits  int64  `json:"minor_units" binding:"required,gt=0"`
	Currency    string `json:"currency" binding:"required,len=3"`
	Description string `json:"description,omitempty"`
}

// EntryResponse represents a ledger entry in API responses
type EntryResponse struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	MinorUnits  int64  `json:"minor_units"`
	Currency    string `json:"currency"`
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Debits      []EntryResponse `json:"debits"`
	Credits     []EntryResponse `json:"credits"`
	Timestamp   string          `json:"timestamp"`
	Posted      bool            `json:"posted"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
}

// TransactionListResponse represents a list of transactions in API responses
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	MinorUnits int64  `json:"minor_units"`
	Currency   string `json:"currency"`
}

// InjectEquityRequest represents an owner capital contribution
type InjectEquityRequest struct {
	MinorUnits  int64  `json:"minor_units" binding:"required,gt=0"`
	Currency    string `json:"currency" binding:"required,len=3"`
	Description string `json:"description"`
}

func mapEntries(entries []ledger.Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryResponse{
			ID:          e.ID.String(),
			AccountID:   e.AccountID,
			MinorUnits:  e.Amount.MinorUnits,
			Currency:    e.Amount.Currency,
			Kind:        string(e.Kind),
			Description: e.Description,
		})
	}
	return out
}

// mapTransactionToResponse maps a transaction to its response DTO
func mapTransactionToResponse(tx *ledger.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          tx.ID.String(),
		Type:        string(tx.Type),
		Description: tx.Description,
		Debits:      mapEntries(tx.Debits),
		Credits:     mapEntries(tx.Credits),
		Timestamp:   tx.Timestamp.Format(time.RFC3339),
		Posted:      tx.Posted(),
		Metadata:    tx.Metadata,
	}
}

func mapTransactionList(txs []*ledger.Transaction) TransactionListResponse {
	out := TransactionListResponse{Transactions: make([]TransactionResponse, 0, len(txs))}
	for _, tx := range txs {
		out.Transactions = append(out.Transactions, mapTransactionToResponse(tx))
	}
	return out
}

// mapAccountToResponse maps an account entity to an account response DTO
func mapAccountToResponse(acct ledger.Account) AccountResponse {
	return AccountResponse{
		ID:         acct.ID,
		Name:       acct.Name,
		Type:       string(acct.Type),
		MinorUnits: acct.Balance.MinorUnits,
		Currency:   acct.Balance.Currency,
	}
}
