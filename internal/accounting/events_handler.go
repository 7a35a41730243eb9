package accounting

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/agentbench/finledger/internal/domain/events"
	"github.com/agentbench/finledger/internal/domain/ledger"
	"github.com/agentbench/finledger/internal/domain/money"
	"github.com/agentbench/finledger/internal/eventbus"
)

// EventsHandler is the ledger's only event-bus subscriber. It translates
// domain events into balanced transactions and posts them. A malformed
// event is logged and its error returned to the dispatcher; it is never
// silently absorbed into the books.
type EventsHandler struct {
	ledger *Ledger
	logger *slog.Logger
	subs   []*eventbus.Subscription
}

func NewEventsHandler(l *Ledger, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{ledger: l, logger: logger}
}

// Register subscribes the handler on the bus for every event kind it
// translates.
func (h *EventsHandler) Register(bus *eventbus.Bus) {
	h.subs = append(h.subs,
		bus.Subscribe(events.SaleOccurred{}, h.HandleEvent),
		bus.Subscribe(events.InventoryAdjusted{}, h.HandleEvent),
	)
	h.logger.Info("events handler registered", "subscriptions", len(h.subs))
}

// Unregister removes the handler's subscriptions
func (h *EventsHandler) Unregister(bus *eventbus.Bus) {
	for _, sub := range h.subs {
		bus.Unsubscribe(sub)
	}
	h.subs = nil
}

// HandleEvent dispatches on the concrete event kind
func (h *EventsHandler) HandleEvent(_ context.Context, evt events.Event) error {
	var err error
	switch e := evt.(type) {
	case events.SaleOccurred:
		err = h.handleSale(e)
	case events.InventoryAdjusted:
		err = h.handleInventoryAdjusted(e)
	default:
		err = fmt.Errorf("unexpected event kind %T", evt)
	}

	if err != nil {
		h.logger.Error("event translation failed", "event", evt.EventName(), "error", err)
		return err
	}
	return nil
}

// handleSale builds and posts one balanced transaction per sale:
//
//	debit  accounts_receivable  revenue - fees
//	debit  cogs                 cost basis (if nonzero)
//	debit  <fee account>        per fee-breakdown entry
//	debit  other_fees           rounding residual or untyped fee total
//	credit sales_revenue        gross revenue
//	credit inventory            cost basis (if nonzero)
func (h *EventsHandler) handleSale(sale events.SaleOccurred) error {
	net, err := sale.TotalRevenue.Sub(sale.TotalFees)
	if err != nil {
		return fmt.Errorf("sale %s: %w", sale.ASIN, err)
	}
	if net.IsNegative() {
		return fmt.Errorf("sale %s: fees %d exceed revenue %d", sale.ASIN,
			sale.TotalFees.MinorUnits, sale.TotalRevenue.MinorUnits)
	}

	var debits []ledger.Entry

	if net.IsPositive() {
		e, err := ledger.NewEntry(ledger.AccountAccountsReceivable, net, ledger.Debit,
			fmt.Sprintf("net receivable for %s", sale.ASIN))
		if err != nil {
			return err
		}
		debits = append(debits, e)
	}

	if sale.CostBasis.IsPositive() {
		e, err := ledger.NewEntry(ledger.AccountCOGS, sale.CostBasis, ledger.Debit,
			fmt.Sprintf("cost of goods for %s", sale.ASIN))
		if err != nil {
			return err
		}
		debits = append(debits, e)
	}

	feeDebits, err := h.feeEntries(sale)
	if err != nil {
		return err
	}
	debits = append(debits, feeDebits...)

	var credits []ledger.Entry

	if sale.TotalRevenue.IsPositive() {
		e, err := ledger.NewEntry(ledger.AccountSalesRevenue, sale.TotalRevenue, ledger.Credit,
			fmt.Sprintf("gross revenue for %s", sale.ASIN))
		if err != nil {
			return err
		}
		credits = append(credits, e)
	}

	if sale.CostBasis.IsPositive() {
		e, err := ledger.NewEntry(ledger.AccountInventory, sale.CostBasis, ledger.Credit,
			fmt.Sprintf("inventory relieved for %s", sale.ASIN))
		if err != nil {
			return err
		}
		credits = append(credits, e)
	}

	tx, err := ledger.NewTransaction(
		ledger.TransactionTypeSale,
		fmt.Sprintf("sale of %d x %s", sale.UnitsSold, sale.ASIN),
		debits, credits,
		map[string]any{
			"asin":           sale.ASIN,
			"units_sold":     sale.UnitsSold,
			"units_demanded": sale.UnitsDemanded,
			"unit_price":     sale.UnitPrice.MinorUnits,
		},
	)
	if err != nil {
		return fmt.Errorf("sale %s: %w", sale.ASIN, err)
	}

	return h.ledger.PostTransaction(tx)
}

// feeEntries expands the fee breakdown into expense debits. When the typed
// fees do not sum to the event's fee total, the residual goes to the
// catch-all account so the transaction still balances exactly; with no
// breakdown at all, the full fee amount goes to the catch-all.
func (h *EventsHandler) feeEntries(sale events.SaleOccurred) ([]ledger.Entry, error) {
	if len(sale.FeeBreakdown) == 0 {
		if !sale.TotalFees.IsPositive() {
			return nil, nil
		}
		e, err := ledger.NewEntry(ledger.AccountOtherFees, sale.TotalFees, ledger.Debit,
			fmt.Sprintf("fees for %s", sale.ASIN))
		if err != nil {
			return nil, err
		}
		return []ledger.Entry{e}, nil
	}

	// Deterministic entry order regardless of map iteration
	feeTypes := make([]string, 0, len(sale.FeeBreakdown))
	for feeType := range sale.FeeBreakdown {
		feeTypes = append(feeTypes, feeType)
	}
	sort.Strings(feeTypes)

	var entries []ledger.Entry
	typedTotal := money.Zero(sale.TotalFees.Currency)

	for _, feeType := range feeTypes {
		amount := sale.FeeBreakdown[feeType]
		if !amount.IsPositive() {
			continue
		}

		sum, err := typedTotal.Add(amount)
		if err != nil {
			return nil, fmt.Errorf("fee %s for %s: %w", feeType, sale.ASIN, err)
		}
		typedTotal = sum

		e, err := ledger.NewEntry(ledger.FeeAccountID(feeType), amount, ledger.Debit,
			fmt.Sprintf("%s fee for %s", feeType, sale.ASIN))
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	residual, err := sale.TotalFees.Sub(typedTotal)
	if err != nil {
		return nil, err
	}
	if residual.IsNegative() {
		return nil, fmt.Errorf("sale %s: fee breakdown %d exceeds total fees %d",
			sale.ASIN, typedTotal.MinorUnits, sale.TotalFees.MinorUnits)
	}
	if residual.IsPositive() {
		e, err := ledger.NewEntry(ledger.AccountOtherFees, residual, ledger.Debit,
			fmt.Sprintf("fee rounding residual for %s", sale.ASIN))
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, nil
}

// handleInventoryAdjusted posts stock movements: a positive cost delta is a
// purchase (debit Inventory, credit Cash), a negative one a write-down
// (debit Inventory Write-downs, credit Inventory). A zero delta carries no
// monetary effect and is skipped.
func (h *EventsHandler) handleInventoryAdjusted(adj events.InventoryAdjusted) error {
	if adj.CostDelta.IsZero() {
		h.logger.Debug("inventory adjustment with zero cost delta, skipping",
			"asin", adj.ASIN, "units_delta", adj.UnitsDelta)
		return nil
	}

	metadata := map[string]any{
		"asin":        adj.ASIN,
		"units_delta": adj.UnitsDelta,
		"reason":      adj.Reason,
	}

	var tx *ledger.Transaction
	var err error

	if adj.CostDelta.IsPositive() {
		tx, err = twoLeggedTransaction(
			ledger.TransactionTypeInventoryPurchase,
			fmt.Sprintf("inventory purchase of %d x %s", adj.UnitsDelta, adj.ASIN),
			ledger.AccountInventory, ledger.AccountCash,
			adj.CostDelta, metadata,
		)
	} else {
		tx, err = twoLeggedTransaction(
			ledger.TransactionTypeInventoryAdjustment,
			fmt.Sprintf("inventory write-down of %s: %s", adj.ASIN, adj.Reason),
			ledger.AccountInventoryWritedown, ledger.AccountInventory,
			adj.CostDelta.Neg(), metadata,
		)
	}
	if err != nil {
		return fmt.Errorf("inventory adjustment %s: %w", adj.ASIN, err)
	}

	return h.ledger.PostTransaction(tx)
}

// twoLeggedTransaction builds the common one-debit one-credit shape
func twoLeggedTransaction(txType ledger.TransactionType, description, debitAccount, creditAccount string, amount money.Money, metadata map[string]any) (*ledger.Transaction, error) {
	debit, err := ledger.NewEntry(debitAccount, amount, ledger.Debit, description)
	if err != nil {
		return nil, err
	}
	credit, err := ledger.NewEntry(creditAccount, amount, ledger.Credit, description)
	if err != nil {
		return nil, err
	}
	return ledger.NewTransaction(txType, description, []ledger.Entry{debit}, []ledger.Entry{credit}, metadata)
}
