package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serpops/plancore/pkg/domain/apperrors"
	"github.com/serpops/plancore/pkg/domain/entities"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func buildOrder(t *testing.T) *entities.Order {
	t.Helper()
	order, err := entities.NewOrder(100, 1, []entities.OrderLine{
		{ID: "L1", ProductID: "steel", Ordered: dec("100"), Unit: "kg"},
		{ID: "L2", ProductID: "copper", Ordered: dec("30"), Unit: "kg"},
	})
	require.NoError(t, err)
	return order
}

func buildShipment(t *testing.T, id int64, allocations map[string]string) *entities.Shipment {
	t.Helper()
	shipment, err := entities.NewShipment(id, 100, "")
	require.NoError(t, err)
	i := 0
	for lineID, qty := range allocations {
		i++
		require.NoError(t, shipment.UpsertItem(entities.ShipmentItem{
			ID:          string(rune('a'+i)) + lineID,
			OrderLineID: lineID,
			Quantity:    dec(qty),
		}))
	}
	return shipment
}

func TestLedger_Compute_ExcludesCurrent(t *testing.T) {
	order := buildOrder(t)
	shipA := buildShipment(t, 1, map[string]string{"L1": "40"})
	shipB := buildShipment(t, 2, map[string]string{"L1": "50", "L2": "10"})
	shipments := []*entities.Shipment{shipA, shipB}

	// Ledger for shipment B: A's 40 counts as others, B's own 50 is current.
	led := ComputeExcluding(order, shipments, 2)

	l1, ok := led.Line("L1")
	require.True(t, ok)
	assert.True(t, l1.UsedByOthers.Equal(dec("40")), "usedByOthers=%s", l1.UsedByOthers)
	assert.True(t, l1.UsedByCurrent.Equal(dec("50")), "usedByCurrent=%s", l1.UsedByCurrent)
	assert.True(t, l1.Remaining.Equal(dec("60")), "remaining=%s", l1.Remaining)
	assert.True(t, l1.MaxAllowed().Equal(dec("110")))

	l2, ok := led.Line("L2")
	require.True(t, ok)
	assert.True(t, l2.UsedByOthers.IsZero())
	assert.True(t, l2.UsedByCurrent.Equal(dec("10")))
	assert.True(t, l2.Remaining.Equal(dec("30")))
}

func TestLedger_Compute_NoCurrentDocument(t *testing.T) {
	order := buildOrder(t)
	shipA := buildShipment(t, 1, map[string]string{"L1": "40"})
	shipB := buildShipment(t, 2, map[string]string{"L1": "50"})

	led := Compute(order, []*entities.Shipment{shipA, shipB})

	l1, _ := led.Line("L1")
	assert.True(t, l1.UsedByOthers.Equal(dec("90")))
	assert.True(t, l1.UsedByCurrent.IsZero())
	assert.True(t, l1.Remaining.Equal(dec("10")))
}

func TestLedger_Invariant_RemainingPlusOthersEqualsOrdered(t *testing.T) {
	order := buildOrder(t)
	shipments := []*entities.Shipment{
		buildShipment(t, 1, map[string]string{"L1": "12.5", "L2": "3"}),
		buildShipment(t, 2, map[string]string{"L1": "7.25"}),
		buildShipment(t, 3, map[string]string{"L2": "19.75"}),
	}

	for _, current := range []int64{0, 1, 2, 3} {
		led := ComputeExcluding(order, shipments, current)
		for lineID, entry := range led {
			sum := entry.Remaining.Add(entry.UsedByOthers)
			assert.True(t, sum.Equal(entry.Ordered),
				"current=%d line=%s: remaining+usedByOthers=%s, ordered=%s",
				current, lineID, sum, entry.Ordered)
		}
	}
}

func TestLedger_EmptyOrder(t *testing.T) {
	order := &entities.Order{ID: 100, TenantID: 1}
	led := Compute(order, nil)
	assert.Empty(t, led)
	assert.True(t, led.FullyAllocated())
}

func TestLedger_ShipmentWithoutLine(t *testing.T) {
	order := buildOrder(t)
	// Shipment 1 never touched L2.
	shipA := buildShipment(t, 1, map[string]string{"L1": "40"})

	led := ComputeExcluding(order, []*entities.Shipment{shipA}, 1)
	l2, ok := led.Line("L2")
	require.True(t, ok)
	assert.True(t, l2.UsedByCurrent.IsZero())
	assert.True(t, l2.Remaining.Equal(dec("30")))
}

func TestLedger_Totals(t *testing.T) {
	order := buildOrder(t)
	shipA := buildShipment(t, 1, map[string]string{"L1": "100", "L2": "30"})

	led := Compute(order, []*entities.Shipment{shipA})
	assert.True(t, led.TotalOrdered().Equal(dec("130")))
	assert.True(t, led.TotalRemaining().IsZero())
	assert.True(t, led.FullyAllocated())
}

func TestValidateQuantity_Boundary(t *testing.T) {
	order := buildOrder(t)
	shipA := buildShipment(t, 1, map[string]string{"L1": "40"})
	shipB := buildShipment(t, 2, map[string]string{"L1": "50"})

	// Shipment B may hold up to remaining(60) + current(50) = 110 on L1.
	led := ComputeExcluding(order, []*entities.Shipment{shipA, shipB}, 2)

	assert.NoError(t, ValidateQuantity(led, "L1", dec("110")))

	err := ValidateQuantity(led, "L1", dec("110.01"))
	require.Error(t, err)
	var qerr *apperrors.QuantityExceededError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, "110", qerr.MaxAllowed)
	assert.Equal(t, "L1", qerr.LineID)
	assert.True(t, apperrors.IsValidation(err))
}

func TestValidateQuantity_NewDocumentCeiling(t *testing.T) {
	// spec example: ordered=100, A holds 40, B holds 50; validating a brand
	// new document sees remaining=10 and no current bucket.
	order := buildOrder(t)
	shipments := []*entities.Shipment{
		buildShipment(t, 1, map[string]string{"L1": "40"}),
		buildShipment(t, 2, map[string]string{"L1": "50"}),
	}

	led := Compute(order, shipments)
	assert.NoError(t, ValidateQuantity(led, "L1", dec("10")))
	assert.Error(t, ValidateQuantity(led, "L1", dec("11")))
}

func TestValidateQuantity_GuardScenario(t *testing.T) {
	// spec example scenario 1: B excluding itself sees usedByOthers=40,
	// remaining=60; 60 passes, 61 is rejected with maxAllowed=60.
	order := buildOrder(t)
	shipA := buildShipment(t, 1, map[string]string{"L1": "40"})
	shipB := buildShipment(t, 2, map[string]string{})

	led := ComputeExcluding(order, []*entities.Shipment{shipA, shipB}, 2)
	l1, _ := led.Line("L1")
	assert.True(t, l1.UsedByOthers.Equal(dec("40")))
	assert.True(t, l1.Remaining.Equal(dec("60")))

	assert.NoError(t, ValidateQuantity(led, "L1", dec("60")))

	err := ValidateQuantity(led, "L1", dec("61"))
	var qerr *apperrors.QuantityExceededError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, "60", qerr.MaxAllowed)
}

func TestValidateQuantity_Rejections(t *testing.T) {
	order := buildOrder(t)
	led := Compute(order, nil)

	testCases := []struct {
		name      string
		lineID    string
		requested string
	}{
		{"unknown line", "L9", "5"},
		{"zero quantity", "L1", "0"},
		{"negative quantity", "L1", "-4"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateQuantity(led, tc.lineID, dec(tc.requested))
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}
