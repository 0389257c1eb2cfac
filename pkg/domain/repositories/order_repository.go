package repositories

import (
	"context"

	"github.com/serpops/plancore/pkg/domain/entities"
)

// OrderRepository is the read-side gateway to orders. Orders are mutated
// elsewhere; the reconciliation core only needs a consistent snapshot.
type OrderRepository interface {
	GetOrderByID(ctx context.Context, id int64) (*entities.Order, error)
}

// ShipmentRepository is the gateway to allocation documents.
type ShipmentRepository interface {
	GetShipmentByID(ctx context.Context, id int64) (*entities.Shipment, error)

	// ListShipmentsByOrder returns every allocation document referencing the
	// order. Together with the order it forms the snapshot the ledger is
	// computed from.
	ListShipmentsByOrder(ctx context.Context, orderID int64) ([]*entities.Shipment, error)

	CreateShipment(ctx context.Context, shipment *entities.Shipment) (*entities.Shipment, error)

	// UpsertShipmentItem adds or replaces one allocation line.
	UpsertShipmentItem(ctx context.Context, shipmentID int64, item entities.ShipmentItem) error

	DeleteShipmentItem(ctx context.Context, shipmentID int64, itemID string) error
}
