package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the approval state of an order
type OrderStatus int

const (
	OrderCreated OrderStatus = iota
	OrderApproved
	OrderCancelled
	OrderFullyDelivered
)

// String method for OrderStatus enum
func (s OrderStatus) String() string {
	switch s {
	case OrderCreated:
		return "CREATED"
	case OrderApproved:
		return "APPROVED"
	case OrderCancelled:
		return "CANCELLED"
	case OrderFullyDelivered:
		return "FULLY_DELIVERED"
	default:
		return "Unknown"
	}
}

// ParseOrderStatus converts a status label into an OrderStatus
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch s {
	case "CREATED":
		return OrderCreated, nil
	case "APPROVED":
		return OrderApproved, nil
	case "CANCELLED":
		return OrderCancelled, nil
	case "FULLY_DELIVERED":
		return OrderFullyDelivered, nil
	default:
		return 0, fmt.Errorf("unknown order status %q", s)
	}
}

// OrderLine is one line item of an order, the source of truth for the
// ordered quantity the ledger reconciles allocations against.
type OrderLine struct {
	ID        string
	ProductID string
	Ordered   decimal.Decimal
	Unit      string
}

// Order is a purchase or sales order. Lines are immutable once the order is
// approved; only status transitions remain.
type Order struct {
	ID        int64
	TenantID  int64
	Status    OrderStatus
	Lines     []OrderLine
	CreatedAt time.Time
}

// NewOrder creates a validated order with its line items.
func NewOrder(id, tenantID int64, lines []OrderLine) (*Order, error) {
	if tenantID <= 0 {
		return nil, fmt.Errorf("tenant id must be positive, got %d", tenantID)
	}
	seen := make(map[string]bool, len(lines))
	for _, line := range lines {
		if line.ID == "" {
			return nil, fmt.Errorf("order line id cannot be empty")
		}
		if seen[line.ID] {
			return nil, fmt.Errorf("duplicate order line id %s", line.ID)
		}
		seen[line.ID] = true
		if line.Ordered.Sign() <= 0 {
			return nil, fmt.Errorf("line %s: ordered quantity must be positive, got %s", line.ID, line.Ordered)
		}
	}

	return &Order{
		ID:        id,
		TenantID:  tenantID,
		Status:    OrderCreated,
		Lines:     lines,
		CreatedAt: time.Now(),
	}, nil
}

// LineByID returns the line with the given id, or nil.
func (o *Order) LineByID(lineID string) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return &o.Lines[i]
		}
	}
	return nil
}

// Approve freezes the order's lines and opens it for allocation.
func (o *Order) Approve() error {
	if o.Status != OrderCreated {
		return fmt.Errorf("cannot approve order in status %s", o.Status)
	}
	o.Status = OrderApproved
	return nil
}

// Cancel closes the order; no further allocations may reference it.
func (o *Order) Cancel() error {
	if o.Status != OrderCreated && o.Status != OrderApproved {
		return fmt.Errorf("cannot cancel order in status %s", o.Status)
	}
	o.Status = OrderCancelled
	return nil
}

// MarkFullyDelivered records that every line has been fully allocated and
// received.
func (o *Order) MarkFullyDelivered() error {
	if o.Status != OrderApproved {
		return fmt.Errorf("cannot mark order delivered in status %s", o.Status)
	}
	o.Status = OrderFullyDelivered
	return nil
}
