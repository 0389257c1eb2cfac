package dto

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/serpops/plancore/pkg/domain/services/ledger"
)

// LedgerView is the per-line quantity reconciliation for one order, ordered
// by line id for stable display.
type LedgerView struct {
	OrderID           int64
	CurrentShipmentID int64
	Lines             []ledger.LineLedger
	TotalOrdered      decimal.Decimal
	TotalRemaining    decimal.Decimal
}

// NewLedgerView flattens a ledger into its display form.
func NewLedgerView(orderID, currentShipmentID int64, led ledger.Ledger) LedgerView {
	lines := make([]ledger.LineLedger, 0, len(led))
	for _, entry := range led {
		lines = append(lines, entry)
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].OrderLineID < lines[j].OrderLineID
	})

	return LedgerView{
		OrderID:           orderID,
		CurrentShipmentID: currentShipmentID,
		Lines:             lines,
		TotalOrdered:      led.TotalOrdered(),
		TotalRemaining:    led.TotalRemaining(),
	}
}
