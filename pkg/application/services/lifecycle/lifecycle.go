// Package lifecycle owns the plan status machine and the two per-tenant
// singleton slots: at most one ACTIVE and at most one PROPOSED plan. Every
// transition goes through a compare-and-swap against the expected status, so
// stale consoles fail with a conflict instead of corrupting the slots.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/serpops/plancore/pkg/application/dto"
	"github.com/serpops/plancore/pkg/domain/apperrors"
	"github.com/serpops/plancore/pkg/domain/entities"
	"github.com/serpops/plancore/pkg/domain/repositories"
	"github.com/serpops/plancore/pkg/domain/services/plandiff"
	"github.com/serpops/plancore/pkg/infrastructure/events"
)

// Recorder receives lifecycle instrumentation. *metrics.Collector satisfies it.
type Recorder interface {
	RecordApply()
	RecordDiscard()
	RecordRevert()
	RecordTransitionError(kind string)
	ObserveDiffDuration(seconds float64)
}

// Service coordinates plan lifecycle transitions for all tenants.
type Service struct {
	plans    repositories.PlanRepository
	events   repositories.EventRepository
	store    events.EventStore
	recorder Recorder
	logger   *slog.Logger

	mutex       sync.Mutex
	tenantLocks map[int64]*sync.Mutex
}

// NewService creates the lifecycle manager.
func NewService(
	plans repositories.PlanRepository,
	eventRepo repositories.EventRepository,
	store events.EventStore,
	recorder Recorder,
	logger *slog.Logger,
) *Service {
	return &Service{
		plans:       plans,
		events:      eventRepo,
		store:       store,
		recorder:    recorder,
		logger:      logger,
		tenantLocks: make(map[int64]*sync.Mutex),
	}
}

// tenantLock serializes lifecycle transitions within one tenant. Transitions
// for different tenants never contend.
func (s *Service) tenantLock(tenantID int64) *sync.Mutex {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	lock, exists := s.tenantLocks[tenantID]
	if !exists {
		lock = &sync.Mutex{}
		s.tenantLocks[tenantID] = lock
	}
	return lock
}

// Apply promotes the given proposed plan to ACTIVE, archiving the currently
// active plan first. Applying a plan that is already active is a no-op.
// When archiving succeeded but activation hits a stale status, the previous
// active plan is restored before the conflict is returned.
func (s *Service) Apply(ctx context.Context, tenantID, planID int64) (*entities.SchedulePlan, error) {
	lock := s.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	plan, err := s.plans.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, s.transitionFailed(ctx, "apply", tenantID, planID, err)
	}
	if plan.TenantID != tenantID {
		return nil, s.transitionFailed(ctx, "apply", tenantID, planID, apperrors.ErrPlanNotFound)
	}
	if plan.IsActive() {
		s.logger.InfoContext(ctx, "plan already active, apply is a no-op",
			"tenant_id", tenantID, "plan_id", planID)
		return plan, nil
	}
	if !plan.IsProposed() {
		return nil, s.transitionFailed(ctx, "apply", tenantID, planID, &apperrors.ConflictError{
			PlanID:         planID,
			ExpectedStatus: entities.PlanProposed.String(),
			ActualStatus:   plan.Status.String(),
		})
	}

	archived, err := s.archiveActive(ctx, tenantID)
	if err != nil {
		return nil, s.transitionFailed(ctx, "apply", tenantID, planID, err)
	}

	if err := s.plans.UpdatePlanStatus(ctx, planID, entities.PlanProposed, entities.PlanActive); err != nil {
		if archived != nil {
			if restoreErr := s.plans.UpdatePlanStatus(ctx, archived.ID, entities.PlanArchived, entities.PlanActive); restoreErr != nil {
				s.logger.ErrorContext(ctx, "failed to restore archived plan after aborted apply",
					"tenant_id", tenantID, "plan_id", archived.ID, "error", restoreErr)
			}
		}
		return nil, s.transitionFailed(ctx, "apply", tenantID, planID, err)
	}

	s.recorder.RecordApply()
	s.logger.InfoContext(ctx, "plan applied",
		"tenant_id", tenantID, "plan_id", planID, "archived_plan_id", planIDOrZero(archived))
	s.append(ctx, events.NewPlanAppliedEvent(tenantID, plan, archived))

	return s.plans.GetPlanByID(ctx, planID)
}

// Discard throws away the given proposed plan. The active plan is untouched.
func (s *Service) Discard(ctx context.Context, tenantID, planID int64) error {
	lock := s.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	plan, err := s.plans.GetPlanByID(ctx, planID)
	if err != nil {
		return s.transitionFailed(ctx, "discard", tenantID, planID, err)
	}
	if plan.TenantID != tenantID {
		return s.transitionFailed(ctx, "discard", tenantID, planID, apperrors.ErrPlanNotFound)
	}

	if err := s.plans.UpdatePlanStatus(ctx, planID, entities.PlanProposed, entities.PlanDiscarded); err != nil {
		return s.transitionFailed(ctx, "discard", tenantID, planID, err)
	}

	s.recorder.RecordDiscard()
	s.logger.InfoContext(ctx, "plan discarded", "tenant_id", tenantID, "plan_id", planID)
	s.append(ctx, events.NewPlanDiscardedEvent(tenantID, plan))
	return nil
}

// Revert promotes an archived or completed plan back to ACTIVE, archiving
// the currently active plan first. The plan keeps its identity and events;
// no copy is created.
func (s *Service) Revert(ctx context.Context, tenantID, planID int64) (*entities.SchedulePlan, error) {
	lock := s.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	plan, err := s.plans.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, s.transitionFailed(ctx, "revert", tenantID, planID, err)
	}
	if plan.TenantID != tenantID {
		return nil, s.transitionFailed(ctx, "revert", tenantID, planID, apperrors.ErrPlanNotFound)
	}
	if !plan.IsRevertible() {
		return nil, s.transitionFailed(ctx, "revert", tenantID, planID, apperrors.NewValidation(
			"status", "only archived or completed plans can be reverted, plan %d is %s", planID, plan.Status))
	}

	archived, err := s.archiveActive(ctx, tenantID)
	if err != nil {
		return nil, s.transitionFailed(ctx, "revert", tenantID, planID, err)
	}

	if err := s.plans.UpdatePlanStatus(ctx, planID, plan.Status, entities.PlanActive); err != nil {
		if archived != nil {
			if restoreErr := s.plans.UpdatePlanStatus(ctx, archived.ID, entities.PlanArchived, entities.PlanActive); restoreErr != nil {
				s.logger.ErrorContext(ctx, "failed to restore archived plan after aborted revert",
					"tenant_id", tenantID, "plan_id", archived.ID, "error", restoreErr)
			}
		}
		return nil, s.transitionFailed(ctx, "revert", tenantID, planID, err)
	}

	s.recorder.RecordRevert()
	s.logger.InfoContext(ctx, "plan reverted",
		"tenant_id", tenantID, "plan_id", planID, "archived_plan_id", planIDOrZero(archived))
	s.append(ctx, events.NewPlanRevertedEvent(tenantID, plan, archived))

	return s.plans.GetPlanByID(ctx, planID)
}

// archiveActive vacates the tenant's ACTIVE slot, returning the plan that
// held it, or nil when the slot was already empty.
func (s *Service) archiveActive(ctx context.Context, tenantID int64) (*entities.SchedulePlan, error) {
	active, err := s.plans.GetActivePlan(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, nil
	}
	if err := s.plans.UpdatePlanStatus(ctx, active.ID, entities.PlanActive, entities.PlanArchived); err != nil {
		return nil, err
	}
	return active, nil
}

// Compare builds the advisory diff between the tenant's active and proposed
// plans. It never blocks a transition: apply remains legal whatever the diff
// says, and an empty active side classifies every proposed event as added.
func (s *Service) Compare(ctx context.Context, tenantID int64) (*dto.PlanComparison, error) {
	proposed, err := s.plans.GetProposedPlan(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if proposed == nil {
		return nil, apperrors.ErrNoPlanProposed
	}

	active, err := s.plans.GetActivePlan(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var activeEvents []*entities.ScheduleEvent
	if active != nil {
		activeEvents, err = s.events.ListEventsByPlan(ctx, active.ID, 0, 0)
		if err != nil {
			return nil, err
		}
	}
	proposedEvents, err := s.events.ListEventsByPlan(ctx, proposed.ID, 0, 0)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	entries, err := plandiff.Diff(activeEvents, proposedEvents)
	if err != nil {
		return nil, fmt.Errorf("comparing plans for tenant %d: %w", tenantID, err)
	}
	s.recorder.ObserveDiffDuration(time.Since(started).Seconds())

	return &dto.PlanComparison{
		ActivePlan:   active,
		ProposedPlan: proposed,
		Entries:      entries,
		Summary:      plandiff.Summarize(entries),
	}, nil
}

// History returns one page of the tenant's plans, newest first.
func (s *Service) History(ctx context.Context, tenantID int64, page, pageSize int) (*dto.PlanHistoryPage, error) {
	plans, total, err := s.plans.ListPlanHistory(ctx, tenantID, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &dto.PlanHistoryPage{
		Plans:    plans,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// Stats reports a plan's stored task counters alongside duration and task
// coverage derived from its events. The counters are passed through as
// stored, never reconstructed from the event set.
func (s *Service) Stats(ctx context.Context, planID int64) (*dto.PlanStats, error) {
	plan, err := s.plans.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	planEvents, err := s.events.ListEventsByPlan(ctx, planID, 0, 0)
	if err != nil {
		return nil, err
	}

	stats := &dto.PlanStats{
		TotalTasks:     plan.TotalTasks,
		ScheduledTasks: plan.TasksScheduled,
	}
	stats.UnscheduledTasks = stats.TotalTasks - stats.ScheduledTasks

	seen := make(map[entities.TaskRef]bool, len(planEvents))
	for _, event := range planEvents {
		if event.Status == entities.EventCancelled {
			continue
		}
		seen[event.TaskRef] = true
		stats.TotalDurationMin += event.DurationMinutes()
		if event.Status == entities.EventDone {
			stats.UsedDurationMin += event.DurationMinutes()
		}
	}
	stats.EventTasks = len(seen)
	if stats.TotalDurationMin > 0 {
		stats.UtilizationPct = float64(stats.UsedDurationMin) / float64(stats.TotalDurationMin) * 100
	}
	return stats, nil
}

// transitionFailed records and returns a failed transition.
func (s *Service) transitionFailed(ctx context.Context, op string, tenantID, planID int64, err error) error {
	kind := errorKind(err)
	s.recorder.RecordTransitionError(kind)
	s.logger.WarnContext(ctx, "plan transition failed",
		"op", op, "tenant_id", tenantID, "plan_id", planID, "kind", kind, "error", err)
	return err
}

func errorKind(err error) string {
	switch {
	case apperrors.IsConflict(err):
		return "conflict"
	case apperrors.IsNotFound(err):
		return "not_found"
	case apperrors.IsTransport(err):
		return "transport"
	case apperrors.IsValidation(err):
		return "validation"
	default:
		return "internal"
	}
}

// append stores a lifecycle fact. Append failures are logged, never
// propagated: the transition has already committed.
func (s *Service) append(ctx context.Context, event events.Event) {
	if err := s.store.AppendEvent(event.StreamID(), event); err != nil {
		s.logger.ErrorContext(ctx, "failed to append lifecycle event",
			"event_type", event.Type(), "stream", event.StreamID(), "error", err)
	}
}

func planIDOrZero(plan *entities.SchedulePlan) int64 {
	if plan == nil {
		return 0
	}
	return plan.ID
}
