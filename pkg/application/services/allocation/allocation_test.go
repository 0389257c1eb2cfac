package allocation

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serpops/plancore/pkg/domain/apperrors"
	"github.com/serpops/plancore/pkg/domain/entities"
	infraevents "github.com/serpops/plancore/pkg/infrastructure/events"
	"github.com/serpops/plancore/pkg/infrastructure/metrics"
	"github.com/serpops/plancore/pkg/infrastructure/repositories/memory"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	service   *Service
	orders    *memory.OrderRepository
	shipments *memory.ShipmentRepository
	store     *infraevents.InMemoryEventStore
	orderID   int64
}

// newFixture seeds an approved order with one line of 110 units.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	orders := memory.NewOrderRepository()
	shipments := memory.NewShipmentRepository()
	store := infraevents.NewInMemoryEventStore()
	recorder := metrics.NewCollectorWith(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	order, err := entities.NewOrder(1, 1, []entities.OrderLine{
		{ID: "line-1", ProductID: "prod-1", Ordered: dec("110"), Unit: "kg"},
	})
	require.NoError(t, err)
	require.NoError(t, order.Approve())
	orders.SeedOrders([]*entities.Order{order})

	return &fixture{
		service:   NewService(orders, shipments, store, recorder, logger),
		orders:    orders,
		shipments: shipments,
		store:     store,
		orderID:   order.ID,
	}
}

func (f *fixture) createShipment(t *testing.T, code string) *entities.Shipment {
	t.Helper()
	shipment, err := f.service.CreateShipment(context.Background(), f.orderID, code)
	require.NoError(t, err)
	return shipment
}

func TestUpsertItem_GuardCeiling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Two other shipments already claim 40 and 10, leaving 60 for the new
	// document.
	s1 := f.createShipment(t, "SH-1")
	require.NoError(t, f.service.UpsertItem(ctx, s1.ID, entities.ShipmentItem{
		ID: "i1", OrderLineID: "line-1", Quantity: dec("40"),
	}))
	s2 := f.createShipment(t, "SH-2")
	require.NoError(t, f.service.UpsertItem(ctx, s2.ID, entities.ShipmentItem{
		ID: "i2", OrderLineID: "line-1", Quantity: dec("10"),
	}))

	s3 := f.createShipment(t, "SH-3")
	err := f.service.UpsertItem(ctx, s3.ID, entities.ShipmentItem{
		ID: "i3", OrderLineID: "line-1", Quantity: dec("60.01"),
	})
	var exceeded *apperrors.QuantityExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, "60", exceeded.MaxAllowed)

	// The boundary itself is accepted.
	require.NoError(t, f.service.UpsertItem(ctx, s3.ID, entities.ShipmentItem{
		ID: "i3", OrderLineID: "line-1", Quantity: dec("60"),
	}))
}

func TestUpsertItem_ReplaceDoesNotPenalizeOwnQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	shipment := f.createShipment(t, "SH-1")
	require.NoError(t, f.service.UpsertItem(ctx, shipment.ID, entities.ShipmentItem{
		ID: "i1", OrderLineID: "line-1", Quantity: dec("100"),
	}))

	// Raising its own claim to the full ordered quantity stays legal: the
	// ceiling is remaining plus the document's current holding.
	require.NoError(t, f.service.UpsertItem(ctx, shipment.ID, entities.ShipmentItem{
		ID: "i1", OrderLineID: "line-1", Quantity: dec("110"),
	}))

	err := f.service.UpsertItem(ctx, shipment.ID, entities.ShipmentItem{
		ID: "i1", OrderLineID: "line-1", Quantity: dec("110.01"),
	})
	var exceeded *apperrors.QuantityExceededError
	assert.ErrorAs(t, err, &exceeded)
}

func TestUpsertItem_SecondItemOnSameLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	shipment := f.createShipment(t, "SH-1")
	require.NoError(t, f.service.UpsertItem(ctx, shipment.ID, entities.ShipmentItem{
		ID: "i1", OrderLineID: "line-1", Quantity: dec("50"),
	}))

	err := f.service.UpsertItem(ctx, shipment.ID, entities.ShipmentItem{
		ID: "i2", OrderLineID: "line-1", Quantity: dec("10"),
	})
	assert.True(t, apperrors.IsValidation(err), "expected validation, got %v", err)
}

func TestUpsertItem_UnknownLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	shipment := f.createShipment(t, "SH-1")
	err := f.service.UpsertItem(ctx, shipment.ID, entities.ShipmentItem{
		ID: "i1", OrderLineID: "line-99", Quantity: dec("1"),
	})
	assert.True(t, apperrors.IsValidation(err), "expected validation, got %v", err)
}

func TestUpsertItem_RejectionEmitsFact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	shipment := f.createShipment(t, "SH-1")
	err := f.service.UpsertItem(ctx, shipment.ID, entities.ShipmentItem{
		ID: "i1", OrderLineID: "line-1", Quantity: dec("111"),
	})
	require.Error(t, err)

	stored, err := f.store.ReadEvents(infraevents.OrderStream(f.orderID), 1)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, infraevents.AllocationRejectedEvent, stored[0].Type())
}

func TestDeleteItem_ReturnsQuantityToPool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s1 := f.createShipment(t, "SH-1")
	require.NoError(t, f.service.UpsertItem(ctx, s1.ID, entities.ShipmentItem{
		ID: "i1", OrderLineID: "line-1", Quantity: dec("110"),
	}))

	s2 := f.createShipment(t, "SH-2")
	err := f.service.UpsertItem(ctx, s2.ID, entities.ShipmentItem{
		ID: "i2", OrderLineID: "line-1", Quantity: dec("1"),
	})
	require.Error(t, err)

	require.NoError(t, f.service.DeleteItem(ctx, s1.ID, "i1"))
	require.NoError(t, f.service.UpsertItem(ctx, s2.ID, entities.ShipmentItem{
		ID: "i2", OrderLineID: "line-1", Quantity: dec("110"),
	}))
}

func TestLedgerView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s1 := f.createShipment(t, "SH-1")
	require.NoError(t, f.service.UpsertItem(ctx, s1.ID, entities.ShipmentItem{
		ID: "i1", OrderLineID: "line-1", Quantity: dec("40"),
	}))

	view, err := f.service.Ledger(ctx, f.orderID, s1.ID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	line := view.Lines[0]
	assert.True(t, line.UsedByCurrent.Equal(dec("40")), "used by current: %s", line.UsedByCurrent)
	assert.True(t, line.Remaining.Equal(dec("110")), "remaining excludes the current document: %s", line.Remaining)

	outside, err := f.service.Ledger(ctx, f.orderID, 0)
	require.NoError(t, err)
	assert.True(t, outside.Lines[0].Remaining.Equal(dec("70")), "remaining: %s", outside.Lines[0].Remaining)
}

func TestValidateQuantity_NoWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.service.ValidateQuantity(ctx, f.orderID, 0, "line-1", dec("200"))
	var exceeded *apperrors.QuantityExceededError
	require.ErrorAs(t, err, &exceeded)

	shipments, err := f.shipments.ListShipmentsByOrder(ctx, f.orderID)
	require.NoError(t, err)
	assert.Empty(t, shipments)
}

func TestCreateShipment_CancelledOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.orders.GetOrderByID(ctx, f.orderID)
	require.NoError(t, err)
	require.NoError(t, order.Cancel())
	f.orders.SeedOrders([]*entities.Order{order})

	_, err = f.service.CreateShipment(ctx, f.orderID, "SH-X")
	assert.True(t, apperrors.IsValidation(err), "expected validation, got %v", err)
}

func TestOrderNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Ledger(context.Background(), 999, 0)
	assert.ErrorIs(t, err, apperrors.ErrOrderNotFound)
}
