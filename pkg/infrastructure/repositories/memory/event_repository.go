package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/serpops/plancore/pkg/domain/apperrors"
	"github.com/serpops/plancore/pkg/domain/entities"
	"github.com/serpops/plancore/pkg/domain/repositories"
	"github.com/serpops/plancore/pkg/domain/services/eventsplit"
)

// EventRepository provides in-memory schedule event storage.
type EventRepository struct {
	mutex  sync.RWMutex
	events map[int64]*entities.ScheduleEvent
	nextID int64
}

// NewEventRepository creates an empty in-memory event repository.
func NewEventRepository() *EventRepository {
	return &EventRepository{
		events: make(map[int64]*entities.ScheduleEvent),
		nextID: 1,
	}
}

// Verify interface compliance
var _ repositories.EventRepository = (*EventRepository)(nil)

// SeedEvents loads events into the repository, typically from fixtures.
func (r *EventRepository) SeedEvents(events []*entities.ScheduleEvent) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, event := range events {
		if !event.IsValid() {
			return apperrors.NewValidation("event", "event %d fails structural invariants", event.ID)
		}
		copied := *event
		if copied.ID >= r.nextID {
			r.nextID = copied.ID + 1
		}
		r.events[copied.ID] = &copied
	}
	return nil
}

// GetEventByID returns the event with the given id.
func (r *EventRepository) GetEventByID(ctx context.Context, id int64) (*entities.ScheduleEvent, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	event, exists := r.events[id]
	if !exists {
		return nil, apperrors.ErrEventNotFound
	}
	copied := *event
	return &copied, nil
}

// ListEventsByPlan returns the plan's events inside the date window, sorted
// by day then start time. Zero bounds mean unbounded.
func (r *EventRepository) ListEventsByPlan(ctx context.Context, planID int64, fromDateMs, toDateMs int64) ([]*entities.ScheduleEvent, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []*entities.ScheduleEvent
	for _, event := range r.events {
		if event.SchedulePlanID != planID {
			continue
		}
		if fromDateMs != 0 && event.DateMs < fromDateMs {
			continue
		}
		if toDateMs != 0 && event.DateMs > toDateMs {
			continue
		}
		copied := *event
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DateMs != result[j].DateMs {
			return result[i].DateMs < result[j].DateMs
		}
		if result[i].StartMin != result[j].StartMin {
			return result[i].StartMin < result[j].StartMin
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// UpdateEvent persists a mutated event.
func (r *EventRepository) UpdateEvent(ctx context.Context, event *entities.ScheduleEvent) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.events[event.ID]; !exists {
		return apperrors.ErrEventNotFound
	}
	copied := *event
	r.events[event.ID] = &copied
	return nil
}

// SplitEvent replaces the event with its two parts cut at splitPointMin.
// The replacement is atomic under the repository lock: no reader ever sees
// the original alongside the parts.
func (r *EventRepository) SplitEvent(ctx context.Context, eventID int64, splitPointMin int) (*entities.ScheduleEvent, *entities.ScheduleEvent, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	event, exists := r.events[eventID]
	if !exists {
		return nil, nil, apperrors.ErrEventNotFound
	}

	newPartID := r.nextID
	pair, err := eventsplit.Split(event, splitPointMin, newPartID)
	if err != nil {
		return nil, nil, err
	}
	r.nextID++

	// A split grows the whole task chain by one part: siblings after the cut
	// shift up one index and every sibling adopts the new part count, so the
	// chain never holds duplicate indices or stale totals.
	for _, sibling := range r.events {
		if sibling.ID == event.ID ||
			sibling.SchedulePlanID != event.SchedulePlanID ||
			sibling.TaskRef != event.TaskRef {
			continue
		}
		if sibling.PartIndex > event.PartIndex {
			sibling.PartIndex++
		}
		sibling.TotalParts = pair.PartA.TotalParts
	}

	r.events[pair.PartA.ID] = pair.PartA
	r.events[pair.PartB.ID] = pair.PartB

	partA := *pair.PartA
	partB := *pair.PartB
	return &partA, &partB, nil
}

// DeleteEvent removes the event from its plan.
func (r *EventRepository) DeleteEvent(ctx context.Context, id int64) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.events[id]; !exists {
		return apperrors.ErrEventNotFound
	}
	delete(r.events, id)
	return nil
}

// taskKey identifies a task snapshot within one plan.
type taskKey struct {
	planID  int64
	taskRef entities.TaskRef
}

// TaskRepository provides in-memory per-plan task snapshot storage.
type TaskRepository struct {
	mutex sync.RWMutex
	tasks map[taskKey]*entities.ScheduleTask
}

// NewTaskRepository creates an empty in-memory task repository.
func NewTaskRepository() *TaskRepository {
	return &TaskRepository{
		tasks: make(map[taskKey]*entities.ScheduleTask),
	}
}

// Verify interface compliance
var _ repositories.TaskRepository = (*TaskRepository)(nil)

// SeedTasks loads task snapshots into the repository.
func (r *TaskRepository) SeedTasks(tasks []*entities.ScheduleTask) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, task := range tasks {
		copied := *task
		r.tasks[taskKey{planID: task.SchedulePlanID, taskRef: task.TaskRef}] = &copied
	}
}

// GetTaskByRef returns the plan's snapshot of the given task.
func (r *TaskRepository) GetTaskByRef(ctx context.Context, planID int64, taskRef entities.TaskRef) (*entities.ScheduleTask, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	task, exists := r.tasks[taskKey{planID: planID, taskRef: taskRef}]
	if !exists {
		return nil, apperrors.ErrEventNotFound
	}
	copied := *task
	return &copied, nil
}

// ListTasksByPlan returns every task snapshot of the plan.
func (r *TaskRepository) ListTasksByPlan(ctx context.Context, planID int64) ([]*entities.ScheduleTask, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []*entities.ScheduleTask
	for key, task := range r.tasks {
		if key.planID == planID {
			copied := *task
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TaskRef < result[j].TaskRef
	})
	return result, nil
}

// UpdateTask persists an edited task snapshot within its plan.
func (r *TaskRepository) UpdateTask(ctx context.Context, task *entities.ScheduleTask) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := taskKey{planID: task.SchedulePlanID, taskRef: task.TaskRef}
	if _, exists := r.tasks[key]; !exists {
		return apperrors.ErrEventNotFound
	}
	copied := *task
	r.tasks[key] = &copied
	return nil
}
