package repositories

import (
	"context"

	"github.com/serpops/plancore/pkg/domain/entities"
)

// EventRepository is the gateway to schedule event persistence.
type EventRepository interface {
	GetEventByID(ctx context.Context, id int64) (*entities.ScheduleEvent, error)

	// ListEventsByPlan returns the plan's events whose day falls inside
	// [fromDateMs, toDateMs]. Zero bounds mean unbounded.
	ListEventsByPlan(ctx context.Context, planID int64, fromDateMs, toDateMs int64) ([]*entities.ScheduleEvent, error)

	// UpdateEvent persists a mutated event (pin, skip, complete, move).
	UpdateEvent(ctx context.Context, event *entities.ScheduleEvent) error

	// SplitEvent atomically replaces the event with its two parts cut at
	// splitPointMin minutes past its start, and returns the persisted parts.
	// The original must never remain visible alongside them. Sibling parts
	// of the same task chain are re-indexed in the same operation so the
	// chain keeps unique part indices and a shared total.
	SplitEvent(ctx context.Context, eventID int64, splitPointMin int) (*entities.ScheduleEvent, *entities.ScheduleEvent, error)

	// DeleteEvent removes an event from its plan.
	DeleteEvent(ctx context.Context, id int64) error
}

// TaskRepository is the gateway to per-plan task snapshots.
type TaskRepository interface {
	// GetTaskByRef returns the plan's snapshot of the given task.
	GetTaskByRef(ctx context.Context, planID int64, taskRef entities.TaskRef) (*entities.ScheduleTask, error)

	ListTasksByPlan(ctx context.Context, planID int64) ([]*entities.ScheduleTask, error)

	// UpdateTask persists an edited task snapshot within its plan only;
	// plans never share task mutations.
	UpdateTask(ctx context.Context, task *entities.ScheduleTask) error
}
