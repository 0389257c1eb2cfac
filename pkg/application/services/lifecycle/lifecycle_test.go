package lifecycle

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serpops/plancore/pkg/domain/apperrors"
	"github.com/serpops/plancore/pkg/domain/entities"
	"github.com/serpops/plancore/pkg/domain/services/plandiff"
	infraevents "github.com/serpops/plancore/pkg/infrastructure/events"
	"github.com/serpops/plancore/pkg/infrastructure/metrics"
	"github.com/serpops/plancore/pkg/infrastructure/repositories/memory"
)

type fixture struct {
	service *Service
	plans   *memory.PlanRepository
	events  *memory.EventRepository
	store   *infraevents.InMemoryEventStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	plans := memory.NewPlanRepository()
	eventRepo := memory.NewEventRepository()
	store := infraevents.NewInMemoryEventStore()
	recorder := metrics.NewCollectorWith(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &fixture{
		service: NewService(plans, eventRepo, store, recorder, logger),
		plans:   plans,
		events:  eventRepo,
		store:   store,
	}
}

func (f *fixture) seedPlan(t *testing.T, tenantID int64, status entities.PlanStatus) *entities.SchedulePlan {
	t.Helper()
	plan, err := entities.NewSchedulePlan(0, tenantID, "plan", 1_000, 2_000)
	require.NoError(t, err)
	plan.Status = status
	created, err := f.plans.CreatePlan(context.Background(), plan)
	require.NoError(t, err)
	return created
}

func (f *fixture) seedEvent(t *testing.T, id, planID int64, taskID int64, dateMs int64, startMin, endMin int) *entities.ScheduleEvent {
	t.Helper()
	ref, err := entities.NewTaskRef(taskID, 0)
	require.NoError(t, err)
	event, err := entities.NewScheduleEvent(id, planID, ref, "work", dateMs, startMin, endMin)
	require.NoError(t, err)
	require.NoError(t, f.events.SeedEvents([]*entities.ScheduleEvent{event}))
	return event
}

func TestApply_PromotesProposedAndArchivesActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	active := f.seedPlan(t, 1, entities.PlanActive)
	proposed := f.seedPlan(t, 1, entities.PlanProposed)

	applied, err := f.service.Apply(ctx, 1, proposed.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.PlanActive, applied.Status)

	old, err := f.plans.GetPlanByID(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.PlanArchived, old.Status)

	// Exactly one lifecycle fact on the tenant stream.
	stored, err := f.store.ReadEvents(infraevents.TenantStream(1), 1)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, infraevents.PlanAppliedEvent, stored[0].Type())
}

func TestApply_NoActivePlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	proposed := f.seedPlan(t, 1, entities.PlanProposed)

	applied, err := f.service.Apply(ctx, 1, proposed.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.PlanActive, applied.Status)
}

func TestApply_AlreadyActiveIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	active := f.seedPlan(t, 1, entities.PlanActive)

	applied, err := f.service.Apply(ctx, 1, active.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.PlanActive, applied.Status)

	// A no-op emits no lifecycle fact.
	stored, err := f.store.ReadEvents(infraevents.TenantStream(1), 1)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestApply_RejectsNonProposedPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft := f.seedPlan(t, 1, entities.PlanDraft)

	_, err := f.service.Apply(ctx, 1, draft.ID)
	assert.True(t, apperrors.IsConflict(err), "expected conflict, got %v", err)
}

func TestApply_WrongTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	proposed := f.seedPlan(t, 1, entities.PlanProposed)

	_, err := f.service.Apply(ctx, 2, proposed.ID)
	assert.ErrorIs(t, err, apperrors.ErrPlanNotFound)
}

func TestApply_ConcurrentKeepsSingletonSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedPlan(t, 1, entities.PlanActive)
	proposed := f.seedPlan(t, 1, entities.PlanProposed)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Later attempts see the plan already active; that is a no-op,
			// not an error.
			_, _ = f.service.Apply(ctx, 1, proposed.ID)
		}()
	}
	wg.Wait()

	plans, _, err := f.plans.ListPlanHistory(ctx, 1, 1, 10)
	require.NoError(t, err)
	activeCount := 0
	for _, p := range plans {
		if p.Status == entities.PlanActive {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount, "exactly one plan may hold the active slot")
}

func TestDiscard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	active := f.seedPlan(t, 1, entities.PlanActive)
	proposed := f.seedPlan(t, 1, entities.PlanProposed)

	require.NoError(t, f.service.Discard(ctx, 1, proposed.ID))

	gone, err := f.plans.GetPlanByID(ctx, proposed.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.PlanDiscarded, gone.Status)

	// Discard never touches the active plan.
	kept, err := f.plans.GetPlanByID(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.PlanActive, kept.Status)

	// Discarded is terminal: the plan can never be applied.
	_, err = f.service.Apply(ctx, 1, proposed.ID)
	assert.True(t, apperrors.IsConflict(err), "expected conflict, got %v", err)
}

func TestRevert_PromotesArchivedInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	archived := f.seedPlan(t, 1, entities.PlanArchived)
	active := f.seedPlan(t, 1, entities.PlanActive)

	reverted, err := f.service.Revert(ctx, 1, archived.ID)
	require.NoError(t, err)
	assert.Equal(t, archived.ID, reverted.ID, "revert promotes the plan itself, no copy")
	assert.Equal(t, entities.PlanActive, reverted.Status)

	displaced, err := f.plans.GetPlanByID(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.PlanArchived, displaced.Status)
}

func TestRevert_CompletedPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	completed := f.seedPlan(t, 1, entities.PlanCompleted)

	reverted, err := f.service.Revert(ctx, 1, completed.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.PlanActive, reverted.Status)
}

func TestRevert_RejectsNonRevertible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	discarded := f.seedPlan(t, 1, entities.PlanDiscarded)

	_, err := f.service.Revert(ctx, 1, discarded.ID)
	assert.True(t, apperrors.IsValidation(err), "expected validation, got %v", err)
}

func TestCompare(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	active := f.seedPlan(t, 1, entities.PlanActive)
	proposed := f.seedPlan(t, 1, entities.PlanProposed)

	// Task 1 moves, task 2 disappears, task 3 is new.
	f.seedEvent(t, 1, active.ID, 1, 1_000, 540, 600)
	f.seedEvent(t, 2, active.ID, 2, 1_000, 600, 660)
	f.seedEvent(t, 3, proposed.ID, 1, 1_000, 600, 660)
	f.seedEvent(t, 4, proposed.ID, 3, 1_000, 660, 720)

	comparison, err := f.service.Compare(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, plandiff.Summary{Added: 1, Removed: 1, Moved: 1}, comparison.Summary)
	assert.Equal(t, active.ID, comparison.ActivePlan.ID)
	assert.Equal(t, proposed.ID, comparison.ProposedPlan.ID)
}

func TestCompare_NoProposedPlan(t *testing.T) {
	f := newFixture(t)

	f.seedPlan(t, 1, entities.PlanActive)

	_, err := f.service.Compare(context.Background(), 1)
	assert.ErrorIs(t, err, apperrors.ErrNoPlanProposed)
}

func TestCompare_NoActivePlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	proposed := f.seedPlan(t, 1, entities.PlanProposed)
	f.seedEvent(t, 1, proposed.ID, 1, 1_000, 540, 600)

	comparison, err := f.service.Compare(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, comparison.ActivePlan)
	assert.Equal(t, plandiff.Summary{Added: 1}, comparison.Summary)
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.seedPlan(t, 1, entities.PlanArchived)
	}

	page, err := f.service.History(ctx, 1, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Plans, 2)
	assert.Equal(t, 1, page.Page)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seeded, err := entities.NewSchedulePlan(0, 1, "plan", 1_000, 2_000)
	require.NoError(t, err)
	seeded.Status = entities.PlanActive
	seeded.TotalTasks = 3
	seeded.TasksScheduled = 2
	plan, err := f.plans.CreatePlan(ctx, seeded)
	require.NoError(t, err)

	done := f.seedEvent(t, 1, plan.ID, 1, 1_000, 540, 600)
	require.NoError(t, done.MarkDone(540, 600))
	require.NoError(t, f.events.UpdateEvent(ctx, done))
	f.seedEvent(t, 2, plan.ID, 2, 1_000, 600, 720)

	stats, err := f.service.Stats(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalTasks)
	assert.Equal(t, 2, stats.ScheduledTasks)
	assert.Equal(t, 1, stats.UnscheduledTasks)
	assert.Equal(t, 2, stats.EventTasks)
	assert.Equal(t, 180, stats.TotalDurationMin)
	assert.Equal(t, 60, stats.UsedDurationMin)
	assert.InDelta(t, 33.3, stats.UtilizationPct, 0.1)
}

func TestStats_UnpopulatedCounters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plan := f.seedPlan(t, 1, entities.PlanActive)
	f.seedEvent(t, 1, plan.ID, 1, 1_000, 540, 600)
	f.seedEvent(t, 2, plan.ID, 2, 1_000, 600, 720)

	// Stored counters are reported as-is; the event-derived count stands
	// on its own instead of overwriting them.
	stats, err := f.service.Stats(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalTasks)
	assert.Equal(t, 0, stats.ScheduledTasks)
	assert.Equal(t, 2, stats.EventTasks)
}
