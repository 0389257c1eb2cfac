package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/serpops/plancore/pkg/domain/apperrors"
	"github.com/serpops/plancore/pkg/domain/entities"
	"github.com/serpops/plancore/pkg/domain/repositories"
)

// OrderRepository provides in-memory read-only order storage.
type OrderRepository struct {
	mutex  sync.RWMutex
	orders map[int64]*entities.Order
}

// NewOrderRepository creates an empty in-memory order repository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[int64]*entities.Order),
	}
}

// Verify interface compliance
var _ repositories.OrderRepository = (*OrderRepository)(nil)

// SeedOrders loads orders into the repository.
func (r *OrderRepository) SeedOrders(orders []*entities.Order) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, order := range orders {
		r.orders[order.ID] = copyOrder(order)
	}
}

// GetOrderByID returns the order with the given id.
func (r *OrderRepository) GetOrderByID(ctx context.Context, id int64) (*entities.Order, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	order, exists := r.orders[id]
	if !exists {
		return nil, apperrors.ErrOrderNotFound
	}
	return copyOrder(order), nil
}

func copyOrder(order *entities.Order) *entities.Order {
	copied := *order
	copied.Lines = make([]entities.OrderLine, len(order.Lines))
	copy(copied.Lines, order.Lines)
	return &copied
}

// ShipmentRepository provides in-memory allocation document storage.
type ShipmentRepository struct {
	mutex     sync.RWMutex
	shipments map[int64]*entities.Shipment
	nextID    int64
}

// NewShipmentRepository creates an empty in-memory shipment repository.
func NewShipmentRepository() *ShipmentRepository {
	return &ShipmentRepository{
		shipments: make(map[int64]*entities.Shipment),
		nextID:    1,
	}
}

// Verify interface compliance
var _ repositories.ShipmentRepository = (*ShipmentRepository)(nil)

// GetShipmentByID returns the shipment with the given id.
func (r *ShipmentRepository) GetShipmentByID(ctx context.Context, id int64) (*entities.Shipment, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	shipment, exists := r.shipments[id]
	if !exists {
		return nil, apperrors.ErrShipmentNotFound
	}
	return copyShipment(shipment), nil
}

// ListShipmentsByOrder returns every shipment referencing the order, oldest
// first.
func (r *ShipmentRepository) ListShipmentsByOrder(ctx context.Context, orderID int64) ([]*entities.Shipment, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []*entities.Shipment
	for _, shipment := range r.shipments {
		if shipment.OrderID == orderID {
			result = append(result, copyShipment(shipment))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// CreateShipment stores the shipment, assigning an id when the caller left
// it zero.
func (r *ShipmentRepository) CreateShipment(ctx context.Context, shipment *entities.Shipment) (*entities.Shipment, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	copied := copyShipment(shipment)
	if copied.ID == 0 {
		copied.ID = r.nextID
	}
	if copied.ID >= r.nextID {
		r.nextID = copied.ID + 1
	}
	r.shipments[copied.ID] = copied

	return copyShipment(copied), nil
}

// UpsertShipmentItem adds or replaces one allocation line of the shipment.
func (r *ShipmentRepository) UpsertShipmentItem(ctx context.Context, shipmentID int64, item entities.ShipmentItem) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	shipment, exists := r.shipments[shipmentID]
	if !exists {
		return apperrors.ErrShipmentNotFound
	}
	return shipment.UpsertItem(item)
}

// DeleteShipmentItem removes one allocation line of the shipment.
func (r *ShipmentRepository) DeleteShipmentItem(ctx context.Context, shipmentID int64, itemID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	shipment, exists := r.shipments[shipmentID]
	if !exists {
		return apperrors.ErrShipmentNotFound
	}
	return shipment.RemoveItem(itemID)
}

func copyShipment(shipment *entities.Shipment) *entities.Shipment {
	copied := *shipment
	copied.Items = make([]entities.ShipmentItem, len(shipment.Items))
	copy(copied.Items, shipment.Items)
	return &copied
}
