package entities

import (
	"fmt"
	"time"
)

// EventStatus represents the execution state of a schedule event
type EventStatus int

const (
	EventPlanned EventStatus = iota
	EventDone
	EventSkipped
	EventCancelled
)

// String method for EventStatus enum
func (s EventStatus) String() string {
	switch s {
	case EventPlanned:
		return "PLANNED"
	case EventDone:
		return "DONE"
	case EventSkipped:
		return "SKIPPED"
	case EventCancelled:
		return "CANCELLED"
	default:
		return "Unknown"
	}
}

// ParseEventStatus converts a status label into an EventStatus
func ParseEventStatus(s string) (EventStatus, error) {
	switch s {
	case "PLANNED":
		return EventPlanned, nil
	case "DONE":
		return EventDone, nil
	case "SKIPPED":
		return EventSkipped, nil
	case "CANCELLED":
		return EventCancelled, nil
	default:
		return 0, fmt.Errorf("unknown event status %q", s)
	}
}

// validEventTransitions defines allowed status transitions. DONE and
// CANCELLED are terminal; a skipped event may be rescheduled.
var validEventTransitions = map[EventStatus][]EventStatus{
	EventPlanned:   {EventDone, EventSkipped, EventCancelled},
	EventDone:      {},
	EventSkipped:   {EventPlanned, EventCancelled},
	EventCancelled: {},
}

// TaskRef identifies the task an event represents. It is the unit of diff
// comparison: a moved event is the same task placed differently. Legacy
// inputs carrying either a task id or only a schedule-task id are resolved
// into a TaskRef once, at ingestion, never at comparison sites.
type TaskRef string

// NewTaskRef resolves the legacy dual-field task identity into a single key.
// taskID wins when both are present.
func NewTaskRef(taskID, scheduleTaskID int64) (TaskRef, error) {
	if taskID > 0 {
		return TaskRef(fmt.Sprintf("task:%d", taskID)), nil
	}
	if scheduleTaskID > 0 {
		return TaskRef(fmt.Sprintf("schedule-task:%d", scheduleTaskID)), nil
	}
	return "", fmt.Errorf("event has neither task id nor schedule task id")
}

// MinutesPerDay bounds start/end offsets within a day.
const MinutesPerDay = 24 * 60

// ScheduleEvent is one placed, time-boxed occurrence of a task within a plan.
type ScheduleEvent struct {
	ID             int64
	SchedulePlanID int64
	TaskRef        TaskRef

	Title    string
	DateMs   int64
	StartMin int
	EndMin   int

	Status   EventStatus
	Priority Priority

	PartIndex     int
	TotalParts    int
	LinkedEventID *int64

	IsPinned         bool
	IsDeepWork       bool
	IsManualOverride bool

	ActualStartMin *int
	ActualEndMin   *int

	UpdatedAt time.Time
}

// NewScheduleEvent creates a validated single-part planned event.
func NewScheduleEvent(id, planID int64, taskRef TaskRef, title string, dateMs int64, startMin, endMin int) (*ScheduleEvent, error) {
	if planID <= 0 {
		return nil, fmt.Errorf("plan id must be positive, got %d", planID)
	}
	if taskRef == "" {
		return nil, fmt.Errorf("task reference cannot be empty")
	}
	if startMin < 0 || endMin > MinutesPerDay || startMin >= endMin {
		return nil, fmt.Errorf("invalid time range %d-%d", startMin, endMin)
	}

	return &ScheduleEvent{
		ID:             id,
		SchedulePlanID: planID,
		TaskRef:        taskRef,
		Title:          title,
		DateMs:         dateMs,
		StartMin:       startMin,
		EndMin:         endMin,
		Status:         EventPlanned,
		Priority:       PriorityMedium,
		PartIndex:      0,
		TotalParts:     1,
		UpdatedAt:      time.Now(),
	}, nil
}

// IsValid checks the structural invariants of the event, including the
// multi-part linkage rule: partIndex < totalParts, and any event that is one
// of several parts must reference a sibling.
func (e *ScheduleEvent) IsValid() bool {
	return e.SchedulePlanID > 0 &&
		e.TaskRef != "" &&
		e.StartMin >= 0 && e.EndMin <= MinutesPerDay &&
		e.StartMin < e.EndMin &&
		e.PartIndex >= 0 &&
		e.TotalParts >= 1 &&
		e.PartIndex < e.TotalParts &&
		(e.TotalParts == 1 || e.LinkedEventID != nil)
}

// DurationMinutes returns the planned duration of the event.
func (e *ScheduleEvent) DurationMinutes() int {
	return e.EndMin - e.StartMin
}

// IsMultiPart reports whether the event is one part of a split chain.
func (e *ScheduleEvent) IsMultiPart() bool {
	return e.TotalParts > 1
}

// CanBeModified reports whether the event still accepts mutations.
func (e *ScheduleEvent) CanBeModified() bool {
	return e.Status == EventPlanned
}

// CanTransitionTo reports whether the event may move to newStatus.
func (e *ScheduleEvent) CanTransitionTo(newStatus EventStatus) bool {
	allowed, exists := validEventTransitions[e.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}

// MarkDone completes the event with the actually worked time range.
func (e *ScheduleEvent) MarkDone(actualStart, actualEnd int) error {
	if !e.CanTransitionTo(EventDone) {
		return fmt.Errorf("cannot mark done from status %s", e.Status)
	}
	if actualStart < 0 || actualEnd > MinutesPerDay || actualStart >= actualEnd {
		return fmt.Errorf("invalid actual time range %d-%d", actualStart, actualEnd)
	}

	e.Status = EventDone
	e.ActualStartMin = &actualStart
	e.ActualEndMin = &actualEnd
	e.UpdatedAt = time.Now()
	return nil
}

// MarkSkipped skips the event.
func (e *ScheduleEvent) MarkSkipped() error {
	if !e.CanTransitionTo(EventSkipped) {
		return fmt.Errorf("cannot skip from status %s", e.Status)
	}
	e.Status = EventSkipped
	e.UpdatedAt = time.Now()
	return nil
}

// MarkCancelled cancels the event permanently.
func (e *ScheduleEvent) MarkCancelled() error {
	if !e.CanTransitionTo(EventCancelled) {
		return fmt.Errorf("cannot cancel from status %s", e.Status)
	}
	e.Status = EventCancelled
	e.UpdatedAt = time.Now()
	return nil
}

// Reschedule returns a skipped event to the planned state.
func (e *ScheduleEvent) Reschedule() error {
	if e.Status != EventSkipped {
		return fmt.Errorf("can only reschedule skipped events, current status %s", e.Status)
	}
	e.Status = EventPlanned
	e.UpdatedAt = time.Now()
	return nil
}

// MoveAndPin places the event at a new slot and exempts it from rescheduling.
func (e *ScheduleEvent) MoveAndPin(newDateMs int64, newStart, newEnd int) error {
	if newStart < 0 || newEnd > MinutesPerDay || newStart >= newEnd {
		return fmt.Errorf("invalid time range %d-%d", newStart, newEnd)
	}
	if !e.CanBeModified() {
		return fmt.Errorf("cannot move event with status %s", e.Status)
	}

	e.DateMs = newDateMs
	e.StartMin = newStart
	e.EndMin = newEnd
	e.IsPinned = true
	e.UpdatedAt = time.Now()
	return nil
}

// Unpin clears the pinned flag, returning the event to the optimizer's control.
func (e *ScheduleEvent) Unpin() {
	e.IsPinned = false
	e.UpdatedAt = time.Now()
}

// OverlapsWith reports whether two events of the same plan and day share time.
func (e *ScheduleEvent) OverlapsWith(other *ScheduleEvent) bool {
	if e.DateMs != other.DateMs || e.SchedulePlanID != other.SchedulePlanID {
		return false
	}
	return max(e.StartMin, other.StartMin) < min(e.EndMin, other.EndMin)
}
