// Package events defines the closed set of domain events carried by the
// event bus. Each event implements Event with a stable name used for
// name-based subscriptions and recording.
package events

import (
	"github.com/agentbench/finledger/internal/domain/money"
)

// Event is implemented by every domain event kind
type Event interface {
	EventName() string
}

// Stable event names
const (
	NameSaleOccurred      = "sale.occurred"
	NameInventoryAdjusted = "inventory.adjusted"
)

// SaleOccurred is emitted by the market simulation when a listing sells
type SaleOccurred struct {
	ASIN          string                 `json:"asin"`
	UnitsSold     int                    `json:"units_sold"`
	UnitsDemanded int                    `json:"units_demanded"`
	UnitPrice     money.Money            `json:"unit_price"`
	TotalRevenue  money.Money            `json:"total_revenue"`
	TotalFees     money.Money            `json:"total_fees"`
	TotalProfit   money.Money            `json:"total_profit"`
	CostBasis     money.Money            `json:"cost_basis"`
	FeeBreakdown  map[string]money.Money `json:"fee_breakdown,omitempty"`
}

func (SaleOccurred) EventName() string { return NameSaleOccurred }

// InventoryAdjusted is emitted when stock is purchased or written down.
// A positive CostDelta is a purchase; a negative one is a write-down.
type InventoryAdjusted struct {
	ASIN       string      `json:"asin"`
	UnitsDelta int         `json:"units_delta"`
	CostDelta  money.Money `json:"cost_delta"`
	Reason     string      `json:"reason,omitempty"`
}

func (InventoryAdjusted) EventName() string { return NameInventoryAdjusted }
