// Package allocation guards shipment quantity edits against the order's
// ledger. Every mutation recomputes the ledger from a fresh snapshot and
// validates the request against the line's ceiling before anything is
// written; quantities above the ceiling are rejected, never clamped.
package allocation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/serpops/plancore/pkg/application/dto"
	"github.com/serpops/plancore/pkg/domain/apperrors"
	"github.com/serpops/plancore/pkg/domain/entities"
	"github.com/serpops/plancore/pkg/domain/repositories"
	"github.com/serpops/plancore/pkg/domain/services/ledger"
	"github.com/serpops/plancore/pkg/infrastructure/events"
)

// Recorder receives guard instrumentation. *metrics.Collector satisfies it.
type Recorder interface {
	RecordGuardRejection()
}

// Service coordinates allocation edits for shipments against their orders.
type Service struct {
	orders    repositories.OrderRepository
	shipments repositories.ShipmentRepository
	store     events.EventStore
	recorder  Recorder
	logger    *slog.Logger
}

// NewService creates the allocation guard service.
func NewService(
	orders repositories.OrderRepository,
	shipments repositories.ShipmentRepository,
	store events.EventStore,
	recorder Recorder,
	logger *slog.Logger,
) *Service {
	return &Service{
		orders:    orders,
		shipments: shipments,
		store:     store,
		recorder:  recorder,
		logger:    logger,
	}
}

// Ledger computes the order's reconciled quantity view. currentShipmentID
// marks the document being edited; zero means none.
func (s *Service) Ledger(ctx context.Context, orderID, currentShipmentID int64) (*dto.LedgerView, error) {
	led, err := s.snapshot(ctx, orderID, currentShipmentID)
	if err != nil {
		return nil, err
	}
	view := dto.NewLedgerView(orderID, currentShipmentID, led)
	return &view, nil
}

// ValidateQuantity checks a proposed claim against a fresh ledger without
// writing anything. Consoles call this on every quantity change, not only
// at submit time.
func (s *Service) ValidateQuantity(ctx context.Context, orderID, currentShipmentID int64, orderLineID string, quantity decimal.Decimal) error {
	led, err := s.snapshot(ctx, orderID, currentShipmentID)
	if err != nil {
		return err
	}
	return s.checkQuantity(ctx, led, orderID, currentShipmentID, orderLineID, quantity)
}

// CreateShipment opens a new, empty allocation document for the order.
// Cancelled orders accept no new documents.
func (s *Service) CreateShipment(ctx context.Context, orderID int64, code string) (*entities.Shipment, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == entities.OrderCancelled {
		return nil, apperrors.NewValidation("order", "order %d is cancelled", orderID)
	}

	shipment, err := entities.NewShipment(0, orderID, code)
	if err != nil {
		return nil, apperrors.NewValidation("shipment", "%v", err)
	}
	created, err := s.shipments.CreateShipment(ctx, shipment)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "shipment created",
		"order_id", orderID, "shipment_id", created.ID, "code", code)
	return created, nil
}

// UpsertItem adds or replaces one allocation line of the shipment, guarded
// against the freshly computed ledger.
func (s *Service) UpsertItem(ctx context.Context, shipmentID int64, item entities.ShipmentItem) error {
	shipment, err := s.shipments.GetShipmentByID(ctx, shipmentID)
	if err != nil {
		return err
	}

	led, err := s.snapshot(ctx, shipment.OrderID, shipmentID)
	if err != nil {
		return err
	}

	// The ceiling already covers this document's current holding on the
	// line, so replacing an item is judged against ordered minus everyone
	// else's claims. That only stays sound with one item per line, hence a
	// second item targeting an already-allocated line is rejected.
	if other := shipment.ItemForLine(item.OrderLineID); other != nil && other.ID != item.ID {
		return apperrors.NewValidation("orderLineId",
			"shipment %d already allocates line %s in item %s", shipmentID, item.OrderLineID, other.ID)
	}

	if err := s.checkQuantity(ctx, led, shipment.OrderID, shipmentID, item.OrderLineID, item.Quantity); err != nil {
		return err
	}

	if err := s.shipments.UpsertShipmentItem(ctx, shipmentID, item); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "allocation changed",
		"order_id", shipment.OrderID, "shipment_id", shipmentID,
		"order_line_id", item.OrderLineID, "quantity", item.Quantity.String())
	s.append(ctx, events.NewAllocationChangedEvent(shipment.OrderID, shipmentID, item))
	return nil
}

// DeleteItem removes one allocation line, returning its quantity to the
// order's remaining pool.
func (s *Service) DeleteItem(ctx context.Context, shipmentID int64, itemID string) error {
	shipment, err := s.shipments.GetShipmentByID(ctx, shipmentID)
	if err != nil {
		return err
	}
	item := shipment.ItemByID(itemID)
	if item == nil {
		return apperrors.NewValidation("itemId", "shipment %d has no item %s", shipmentID, itemID)
	}

	if err := s.shipments.DeleteShipmentItem(ctx, shipmentID, itemID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "allocation removed",
		"order_id", shipment.OrderID, "shipment_id", shipmentID, "order_line_id", item.OrderLineID)
	return nil
}

// snapshot fetches the order and its shipments and computes the ledger.
func (s *Service) snapshot(ctx context.Context, orderID, currentShipmentID int64) (ledger.Ledger, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	shipments, err := s.shipments.ListShipmentsByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ledger.ComputeExcluding(order, shipments, currentShipmentID), nil
}

// checkQuantity runs the guard and records rejections.
func (s *Service) checkQuantity(ctx context.Context, led ledger.Ledger, orderID, shipmentID int64, orderLineID string, quantity decimal.Decimal) error {
	err := ledger.ValidateQuantity(led, orderLineID, quantity)
	if err == nil {
		return nil
	}

	var exceeded *apperrors.QuantityExceededError
	if errors.As(err, &exceeded) {
		s.recorder.RecordGuardRejection()
		s.logger.WarnContext(ctx, "allocation rejected",
			"order_id", orderID, "shipment_id", shipmentID,
			"order_line_id", orderLineID,
			"requested", exceeded.Requested, "max_allowed", exceeded.MaxAllowed)
		s.append(ctx, events.NewAllocationRejectedEvent(
			orderID, shipmentID, orderLineID, exceeded.Requested, exceeded.MaxAllowed))
	}
	return err
}

// append stores an allocation fact. Append failures are logged, never
// propagated.
func (s *Service) append(ctx context.Context, event events.Event) {
	if err := s.store.AppendEvent(event.StreamID(), event); err != nil {
		s.logger.ErrorContext(ctx, "failed to append allocation event",
			"event_type", event.Type(), "stream", event.StreamID(), "error", err)
	}
}
