// Package schedule exposes the event-level operations of the currently
// visible plan: splitting, completion, skipping and pinning. Identity and
// linkage invariants of multi-part events are enforced here and in the
// split engine, never left to callers.
package schedule

import (
	"context"
	"errors"
	"log/slog"

	"github.com/serpops/plancore/pkg/application/dto"
	"github.com/serpops/plancore/pkg/domain/apperrors"
	"github.com/serpops/plancore/pkg/domain/entities"
	"github.com/serpops/plancore/pkg/domain/repositories"
	"github.com/serpops/plancore/pkg/domain/services/eventsplit"
	"github.com/serpops/plancore/pkg/infrastructure/events"
)

// Recorder receives schedule instrumentation. *metrics.Collector satisfies it.
type Recorder interface {
	RecordEventSplit()
}

// Service coordinates schedule event mutations.
type Service struct {
	plans    repositories.PlanRepository
	events   repositories.EventRepository
	tasks    repositories.TaskRepository
	store    events.EventStore
	recorder Recorder
	logger   *slog.Logger
}

// NewService creates the schedule event service.
func NewService(
	plans repositories.PlanRepository,
	eventRepo repositories.EventRepository,
	tasks repositories.TaskRepository,
	store events.EventStore,
	recorder Recorder,
	logger *slog.Logger,
) *Service {
	return &Service{
		plans:    plans,
		events:   eventRepo,
		tasks:    tasks,
		store:    store,
		recorder: recorder,
		logger:   logger,
	}
}

// ListEvents returns the plan's events inside the date window.
func (s *Service) ListEvents(ctx context.Context, planID, fromDateMs, toDateMs int64) ([]*entities.ScheduleEvent, error) {
	return s.events.ListEventsByPlan(ctx, planID, fromDateMs, toDateMs)
}

// Split cuts the event at offsetMin minutes past its start, after checking
// the owning task's split policy, and persists the two parts atomically.
func (s *Service) Split(ctx context.Context, eventID int64, offsetMin int) (*entities.ScheduleEvent, *entities.ScheduleEvent, error) {
	event, err := s.events.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}

	task, err := s.taskForEvent(ctx, event)
	if err != nil {
		return nil, nil, err
	}
	if err := eventsplit.CheckPolicy(event, task, offsetMin); err != nil {
		return nil, nil, err
	}

	partA, partB, err := s.events.SplitEvent(ctx, eventID, offsetMin)
	if err != nil {
		return nil, nil, err
	}

	s.recorder.RecordEventSplit()
	s.logger.InfoContext(ctx, "event split",
		"event_id", partA.ID, "new_part_id", partB.ID, "cut_min", partA.EndMin)

	if tenantID, err := s.tenantOf(ctx, event.SchedulePlanID); err == nil {
		s.append(ctx, events.NewEventSplitEvent(tenantID, partA, partB))
	}

	return partA, partB, nil
}

// PreviewSplit computes, without persisting, the two parts a split would
// produce. The preview's second part carries no identity yet.
func (s *Service) PreviewSplit(ctx context.Context, eventID int64, offsetMin int) (*dto.SplitPreview, error) {
	event, err := s.events.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	task, err := s.taskForEvent(ctx, event)
	if err != nil {
		return nil, err
	}
	if err := eventsplit.CheckPolicy(event, task, offsetMin); err != nil {
		return nil, err
	}

	pair, err := eventsplit.Split(event, offsetMin, 0)
	if err != nil {
		return nil, err
	}
	return &dto.SplitPreview{Original: event, PartA: pair.PartA, PartB: pair.PartB}, nil
}

// taskForEvent fetches the event's task snapshot for policy checks. An event
// without a stored snapshot falls back to the default split policy.
func (s *Service) taskForEvent(ctx context.Context, event *entities.ScheduleEvent) (*entities.ScheduleTask, error) {
	task, err := s.tasks.GetTaskByRef(ctx, event.SchedulePlanID, event.TaskRef)
	if err == nil {
		return task, nil
	}
	if errors.Is(err, apperrors.ErrEventNotFound) {
		return &entities.ScheduleTask{
			SchedulePlanID: event.SchedulePlanID,
			TaskRef:        event.TaskRef,
			DurationMin:    event.DurationMinutes(),
			Split:          entities.SplitPolicy{AllowSplit: true},
		}, nil
	}
	return nil, err
}

// Complete marks the event done with the actually worked time range.
func (s *Service) Complete(ctx context.Context, eventID int64, actualStartMin, actualEndMin int) (*entities.ScheduleEvent, error) {
	event, err := s.events.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := event.MarkDone(actualStartMin, actualEndMin); err != nil {
		return nil, apperrors.NewValidation("status", "%v", err)
	}
	if err := s.events.UpdateEvent(ctx, event); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "event completed", "event_id", eventID,
		"actual_start_min", actualStartMin, "actual_end_min", actualEndMin)
	if tenantID, err := s.tenantOf(ctx, event.SchedulePlanID); err == nil {
		s.append(ctx, events.NewEventCompletedEvent(tenantID, event))
	}
	return event, nil
}

// Skip marks the event skipped; it may later return to planned.
func (s *Service) Skip(ctx context.Context, eventID int64) (*entities.ScheduleEvent, error) {
	return s.mutate(ctx, eventID, func(event *entities.ScheduleEvent) error {
		return event.MarkSkipped()
	})
}

// Reschedule returns a skipped event to the planned state.
func (s *Service) Reschedule(ctx context.Context, eventID int64) (*entities.ScheduleEvent, error) {
	return s.mutate(ctx, eventID, func(event *entities.ScheduleEvent) error {
		return event.Reschedule()
	})
}

// Pin moves the event to a new slot and exempts it from future optimization.
func (s *Service) Pin(ctx context.Context, eventID, newDateMs int64, newStartMin, newEndMin int) (*entities.ScheduleEvent, error) {
	return s.mutate(ctx, eventID, func(event *entities.ScheduleEvent) error {
		return event.MoveAndPin(newDateMs, newStartMin, newEndMin)
	})
}

// Unpin returns the event to the optimizer's control.
func (s *Service) Unpin(ctx context.Context, eventID int64) (*entities.ScheduleEvent, error) {
	return s.mutate(ctx, eventID, func(event *entities.ScheduleEvent) error {
		event.Unpin()
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, eventID int64, apply func(*entities.ScheduleEvent) error) (*entities.ScheduleEvent, error) {
	event, err := s.events.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := apply(event); err != nil {
		return nil, apperrors.NewValidation("status", "%v", err)
	}
	if err := s.events.UpdateEvent(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *Service) tenantOf(ctx context.Context, planID int64) (int64, error) {
	plan, err := s.plans.GetPlanByID(ctx, planID)
	if err != nil {
		return 0, err
	}
	return plan.TenantID, nil
}

// append stores a schedule fact. Append failures are logged, never
// propagated: the mutation has already committed.
func (s *Service) append(ctx context.Context, event events.Event) {
	if err := s.store.AppendEvent(event.StreamID(), event); err != nil {
		s.logger.ErrorContext(ctx, "failed to append schedule event",
			"event_type", event.Type(), "stream", event.StreamID(), "error", err)
	}
}
