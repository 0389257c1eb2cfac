// Package ledger computes, for one order and its allocation documents, the
// ordered/used/remaining quantity per order line, and validates proposed
// allocations against it. Everything here is a pure function of a snapshot;
// fetching a fresh snapshot before trusting the result is the caller's job.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/serpops/plancore/pkg/domain/apperrors"
	"github.com/serpops/plancore/pkg/domain/entities"
)

// LineLedger is the reconciled quantity view for a single order line.
// Remaining deliberately excludes the current document's own contribution,
// so that editing a line does not penalize the document for its prior value.
type LineLedger struct {
	OrderLineID   string
	ProductID     string
	Ordered       decimal.Decimal
	UsedByOthers  decimal.Decimal
	UsedByCurrent decimal.Decimal
	Remaining     decimal.Decimal
}

// MaxAllowed is the ceiling the current document may legally hold on the
// line: what is left after other documents' claims, plus whatever this
// document already holds.
func (l LineLedger) MaxAllowed() decimal.Decimal {
	return l.Remaining.Add(l.UsedByCurrent)
}

// Ledger maps order line ids to their reconciled quantity views.
type Ledger map[string]LineLedger

// Compute builds the ledger with no document treated as current; every
// shipment's quantities count toward UsedByOthers.
func Compute(order *entities.Order, shipments []*entities.Shipment) Ledger {
	return ComputeExcluding(order, shipments, 0)
}

// ComputeExcluding builds the ledger treating currentShipmentID as the
// document being edited: its own quantities are reported in UsedByCurrent
// and excluded from UsedByOthers. A zero id means no current document.
//
// Deterministic, no side effects. Returns an empty ledger when the order has
// no lines. A shipment not yet containing a line for a product contributes
// UsedByCurrent = 0 for that line.
func ComputeExcluding(order *entities.Order, shipments []*entities.Shipment, currentShipmentID int64) Ledger {
	result := make(Ledger, len(order.Lines))

	for _, line := range order.Lines {
		usedByOthers := decimal.Zero
		usedByCurrent := decimal.Zero

		for _, shipment := range shipments {
			qty := shipment.QuantityForLine(line.ID)
			if currentShipmentID != 0 && shipment.ID == currentShipmentID {
				usedByCurrent = usedByCurrent.Add(qty)
			} else {
				usedByOthers = usedByOthers.Add(qty)
			}
		}

		result[line.ID] = LineLedger{
			OrderLineID:   line.ID,
			ProductID:     line.ProductID,
			Ordered:       line.Ordered,
			UsedByOthers:  usedByOthers,
			UsedByCurrent: usedByCurrent,
			Remaining:     line.Ordered.Sub(usedByOthers),
		}
	}

	return result
}

// Line returns the ledger entry for the given order line.
func (l Ledger) Line(orderLineID string) (LineLedger, bool) {
	entry, ok := l[orderLineID]
	return entry, ok
}

// TotalOrdered sums the ordered quantity across all lines.
func (l Ledger) TotalOrdered() decimal.Decimal {
	total := decimal.Zero
	for _, entry := range l {
		total = total.Add(entry.Ordered)
	}
	return total
}

// TotalRemaining sums the remaining quantity across all lines.
func (l Ledger) TotalRemaining() decimal.Decimal {
	total := decimal.Zero
	for _, entry := range l {
		total = total.Add(entry.Remaining)
	}
	return total
}

// FullyAllocated reports whether no line has quantity left for any document,
// current one included.
func (l Ledger) FullyAllocated() bool {
	for _, entry := range l {
		if entry.MaxAllowed().Sign() > 0 {
			return false
		}
	}
	return true
}

// ValidateQuantity checks a proposed allocation of requested against the
// line's ceiling. It rejects rather than clamps: the caller receives the
// computed ceiling inside the error and decides how to report it. It must be
// re-evaluated on every quantity-changing input, not only at submit time.
func ValidateQuantity(l Ledger, orderLineID string, requested decimal.Decimal) error {
	entry, ok := l[orderLineID]
	if !ok {
		return apperrors.NewValidation("orderLineId", "order has no line %s", orderLineID)
	}
	if requested.Sign() <= 0 {
		return apperrors.NewValidation("quantity", "must be positive, got %s", requested)
	}

	maxAllowed := entry.MaxAllowed()
	if requested.GreaterThan(maxAllowed) {
		return &apperrors.QuantityExceededError{
			LineID:     orderLineID,
			Requested:  requested.String(),
			MaxAllowed: maxAllowed.String(),
		}
	}
	return nil
}
