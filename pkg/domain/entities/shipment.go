package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ShipmentItem is one allocation line of a shipment, claiming quantity
// against a single order line.
type ShipmentItem struct {
	ID          string
	OrderLineID string
	Quantity    decimal.Decimal
	LotID       string
	FacilityID  string
	Note        string
}

// Shipment is a receiving/dispatch document referencing an order. Multiple
// shipments may allocate against the same order line; the ledger guarantees
// their combined claims never exceed the ordered quantity.
type Shipment struct {
	ID        int64
	OrderID   int64
	Code      string
	Items     []ShipmentItem
	CreatedAt time.Time
}

// NewShipment creates a validated, initially empty allocation document.
func NewShipment(id, orderID int64, code string) (*Shipment, error) {
	if orderID <= 0 {
		return nil, fmt.Errorf("order id must be positive, got %d", orderID)
	}

	return &Shipment{
		ID:        id,
		OrderID:   orderID,
		Code:      code,
		Items:     []ShipmentItem{},
		CreatedAt: time.Now(),
	}, nil
}

// ItemByID returns the allocation line with the given id, or nil.
func (s *Shipment) ItemByID(itemID string) *ShipmentItem {
	for i := range s.Items {
		if s.Items[i].ID == itemID {
			return &s.Items[i]
		}
	}
	return nil
}

// ItemForLine returns this shipment's allocation against the given order
// line, or nil when the shipment does not yet contain one.
func (s *Shipment) ItemForLine(orderLineID string) *ShipmentItem {
	for i := range s.Items {
		if s.Items[i].OrderLineID == orderLineID {
			return &s.Items[i]
		}
	}
	return nil
}

// QuantityForLine sums this shipment's claims against the given order line.
func (s *Shipment) QuantityForLine(orderLineID string) decimal.Decimal {
	total := decimal.Zero
	for i := range s.Items {
		if s.Items[i].OrderLineID == orderLineID {
			total = total.Add(s.Items[i].Quantity)
		}
	}
	return total
}

// UpsertItem adds the allocation line or replaces an existing line with the
// same id. Quantity validation happens in the allocation service, against a
// fresh ledger, before this is called.
func (s *Shipment) UpsertItem(item ShipmentItem) error {
	if item.ID == "" {
		return fmt.Errorf("shipment item id cannot be empty")
	}
	if item.OrderLineID == "" {
		return fmt.Errorf("shipment item must reference an order line")
	}
	if item.Quantity.Sign() <= 0 {
		return fmt.Errorf("shipment item quantity must be positive, got %s", item.Quantity)
	}

	for i := range s.Items {
		if s.Items[i].ID == item.ID {
			s.Items[i] = item
			return nil
		}
	}
	s.Items = append(s.Items, item)
	return nil
}

// RemoveItem deletes the allocation line with the given id.
func (s *Shipment) RemoveItem(itemID string) error {
	for i := range s.Items {
		if s.Items[i].ID == itemID {
			s.Items = append(s.Items[:i], s.Items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("shipment item %s not found", itemID)
}
