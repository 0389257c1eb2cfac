package events

import (
	"fmt"

	"github.com/serpops/plancore/pkg/domain/entities"
)

const (
	PlanAppliedEvent   = "plan.applied"
	PlanDiscardedEvent = "plan.discarded"
	PlanRevertedEvent  = "plan.reverted"

	EventSplitEvent     = "event.split"
	EventCompletedEvent = "event.completed"

	AllocationChangedEvent  = "allocation.changed"
	AllocationRejectedEvent = "allocation.rejected"
)

// PlanApplied records a proposed plan displacing the previously active one.
type PlanApplied struct {
	TenantID       int64  `json:"tenant_id"`
	AppliedPlanID  int64  `json:"applied_plan_id"`
	ArchivedPlanID *int64 `json:"archived_plan_id,omitempty"`
}

// PlanDiscarded records a proposed plan being thrown away.
type PlanDiscarded struct {
	TenantID int64 `json:"tenant_id"`
	PlanID   int64 `json:"plan_id"`
}

// PlanReverted records an archived plan promoted back to active.
type PlanReverted struct {
	TenantID       int64  `json:"tenant_id"`
	RevertedPlanID int64  `json:"reverted_plan_id"`
	ArchivedPlanID *int64 `json:"archived_plan_id,omitempty"`
}

// EventSplit records one event replaced by its two parts.
type EventSplit struct {
	PlanID   int64 `json:"plan_id"`
	SourceID int64 `json:"source_id"`
	PartAID  int64 `json:"part_a_id"`
	PartBID  int64 `json:"part_b_id"`
	CutMin   int   `json:"cut_min"`
}

// EventCompleted records an event marked done with its actual times.
type EventCompleted struct {
	PlanID         int64 `json:"plan_id"`
	EventID        int64 `json:"event_id"`
	ActualStartMin int   `json:"actual_start_min"`
	ActualEndMin   int   `json:"actual_end_min"`
}

// AllocationChanged records a shipment line claim added, raised or lowered.
type AllocationChanged struct {
	OrderID     int64  `json:"order_id"`
	ShipmentID  int64  `json:"shipment_id"`
	OrderLineID string `json:"order_line_id"`
	Quantity    string `json:"quantity"`
}

// AllocationRejected records a claim the guard refused, with the ceiling it
// reported.
type AllocationRejected struct {
	OrderID     int64  `json:"order_id"`
	ShipmentID  int64  `json:"shipment_id"`
	OrderLineID string `json:"order_line_id"`
	Requested   string `json:"requested"`
	MaxAllowed  string `json:"max_allowed"`
}

// TenantStream names the lifecycle stream for a tenant.
func TenantStream(tenantID int64) string {
	return fmt.Sprintf("tenant:%d", tenantID)
}

// OrderStream names the allocation stream for an order.
func OrderStream(orderID int64) string {
	return fmt.Sprintf("order:%d", orderID)
}

// NewPlanAppliedEvent builds the apply fact for a tenant's stream.
func NewPlanAppliedEvent(tenantID int64, applied *entities.SchedulePlan, archived *entities.SchedulePlan) Event {
	data := PlanApplied{TenantID: tenantID, AppliedPlanID: applied.ID}
	if archived != nil {
		data.ArchivedPlanID = &archived.ID
	}
	return NewEvent(PlanAppliedEvent, TenantStream(tenantID), data)
}

// NewPlanDiscardedEvent builds the discard fact for a tenant's stream.
func NewPlanDiscardedEvent(tenantID int64, plan *entities.SchedulePlan) Event {
	return NewEvent(PlanDiscardedEvent, TenantStream(tenantID), PlanDiscarded{
		TenantID: tenantID,
		PlanID:   plan.ID,
	})
}

// NewPlanRevertedEvent builds the revert fact for a tenant's stream.
func NewPlanRevertedEvent(tenantID int64, reverted *entities.SchedulePlan, archived *entities.SchedulePlan) Event {
	data := PlanReverted{TenantID: tenantID, RevertedPlanID: reverted.ID}
	if archived != nil {
		data.ArchivedPlanID = &archived.ID
	}
	return NewEvent(PlanRevertedEvent, TenantStream(tenantID), data)
}

// NewEventSplitEvent builds the split fact for a tenant's stream.
func NewEventSplitEvent(tenantID int64, partA, partB *entities.ScheduleEvent) Event {
	return NewEvent(EventSplitEvent, TenantStream(tenantID), EventSplit{
		PlanID:   partA.SchedulePlanID,
		SourceID: partA.ID,
		PartAID:  partA.ID,
		PartBID:  partB.ID,
		CutMin:   partA.EndMin,
	})
}

// NewEventCompletedEvent builds the done fact for a tenant's stream.
func NewEventCompletedEvent(tenantID int64, event *entities.ScheduleEvent) Event {
	data := EventCompleted{
		PlanID:  event.SchedulePlanID,
		EventID: event.ID,
	}
	if event.ActualStartMin != nil {
		data.ActualStartMin = *event.ActualStartMin
	}
	if event.ActualEndMin != nil {
		data.ActualEndMin = *event.ActualEndMin
	}
	return NewEvent(EventCompletedEvent, TenantStream(tenantID), data)
}

// NewAllocationChangedEvent builds the accepted-claim fact for an order's
// stream.
func NewAllocationChangedEvent(orderID, shipmentID int64, item entities.ShipmentItem) Event {
	return NewEvent(AllocationChangedEvent, OrderStream(orderID), AllocationChanged{
		OrderID:     orderID,
		ShipmentID:  shipmentID,
		OrderLineID: item.OrderLineID,
		Quantity:    item.Quantity.String(),
	})
}

// NewAllocationRejectedEvent builds the refused-claim fact for an order's
// stream.
func NewAllocationRejectedEvent(orderID, shipmentID int64, orderLineID, requested, maxAllowed string) Event {
	return NewEvent(AllocationRejectedEvent, OrderStream(orderID), AllocationRejected{
		OrderID:     orderID,
		ShipmentID:  shipmentID,
		OrderLineID: orderLineID,
		Requested:   requested,
		MaxAllowed:  maxAllowed,
	})
}
