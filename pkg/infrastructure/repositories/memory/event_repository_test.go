package memory

import (
	"context"
	"testing"

	"github.com/serpops/plancore/pkg/domain/apperrors"
	"github.com/serpops/plancore/pkg/domain/entities"
)

func newTestEvent(t *testing.T, id int64, startMin, endMin int) *entities.ScheduleEvent {
	t.Helper()
	taskRef, err := entities.NewTaskRef(id, 0)
	if err != nil {
		t.Fatalf("NewTaskRef: %v", err)
	}
	event, err := entities.NewScheduleEvent(id, 1, taskRef, "work", 1_700_000_000_000, startMin, endMin)
	if err != nil {
		t.Fatalf("NewScheduleEvent: %v", err)
	}
	return event
}

func TestEventRepository_SplitEvent_ReplacesOriginal(t *testing.T) {
	repo := NewEventRepository()
	ctx := context.Background()

	original := newTestEvent(t, 10, 540, 660)
	if err := repo.SeedEvents([]*entities.ScheduleEvent{original}); err != nil {
		t.Fatalf("SeedEvents: %v", err)
	}

	partA, partB, err := repo.SplitEvent(ctx, 10, 45)
	if err != nil {
		t.Fatalf("SplitEvent: %v", err)
	}

	if partA.ID != 10 {
		t.Errorf("expected first part to keep id 10, got %d", partA.ID)
	}
	if partA.StartMin != 540 || partA.EndMin != 585 {
		t.Errorf("expected first part 540-585, got %d-%d", partA.StartMin, partA.EndMin)
	}
	if partB.StartMin != 585 || partB.EndMin != 660 {
		t.Errorf("expected second part 585-660, got %d-%d", partB.StartMin, partB.EndMin)
	}
	if partB.LinkedEventID == nil || *partB.LinkedEventID != 10 {
		t.Errorf("expected second part linked to 10, got %v", partB.LinkedEventID)
	}
	if partA.LinkedEventID == nil || *partA.LinkedEventID != partB.ID {
		t.Errorf("expected first part linked to %d, got %v", partB.ID, partA.LinkedEventID)
	}

	// The plan must now list exactly the two parts, never three rows.
	events, err := repo.ListEventsByPlan(ctx, 1, 0, 0)
	if err != nil {
		t.Fatalf("ListEventsByPlan: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events after split, got %d", len(events))
	}
	totalDuration := 0
	for _, e := range events {
		if !e.IsValid() {
			t.Errorf("event %d fails invariants after split", e.ID)
		}
		totalDuration += e.DurationMinutes()
	}
	if totalDuration != 120 {
		t.Errorf("expected combined duration 120, got %d", totalDuration)
	}
}

func TestEventRepository_SplitEvent_ReindexesChain(t *testing.T) {
	repo := NewEventRepository()
	ctx := context.Background()

	original := newTestEvent(t, 10, 540, 720)
	if err := repo.SeedEvents([]*entities.ScheduleEvent{original}); err != nil {
		t.Fatalf("SeedEvents: %v", err)
	}

	// First split: chain of two.
	if _, _, err := repo.SplitEvent(ctx, 10, 60); err != nil {
		t.Fatalf("SplitEvent: %v", err)
	}

	// Splitting the second part must bump TotalParts on the untouched
	// first part too, not only on the two new parts.
	if _, _, err := repo.SplitEvent(ctx, 11, 60); err != nil {
		t.Fatalf("SplitEvent: %v", err)
	}
	assertChain(t, repo, 3)

	// Splitting the first part inserts a new index in the middle of the
	// chain; parts after the cut shift up instead of colliding.
	if _, _, err := repo.SplitEvent(ctx, 10, 30); err != nil {
		t.Fatalf("SplitEvent: %v", err)
	}
	assertChain(t, repo, 4)
}

// assertChain checks that plan 1 holds exactly wantParts events agreeing on
// TotalParts, with part indices 0..wantParts-1 each used once.
func assertChain(t *testing.T, repo *EventRepository, wantParts int) {
	t.Helper()

	events, err := repo.ListEventsByPlan(context.Background(), 1, 0, 0)
	if err != nil {
		t.Fatalf("ListEventsByPlan: %v", err)
	}
	if len(events) != wantParts {
		t.Fatalf("expected %d parts, got %d", wantParts, len(events))
	}

	indexOwner := make(map[int]int64, wantParts)
	for _, e := range events {
		if e.TotalParts != wantParts {
			t.Errorf("event %d reports TotalParts %d, want %d", e.ID, e.TotalParts, wantParts)
		}
		if other, taken := indexOwner[e.PartIndex]; taken {
			t.Errorf("duplicate PartIndex %d shared by events %d and %d", e.PartIndex, other, e.ID)
		}
		indexOwner[e.PartIndex] = e.ID
		if !e.IsValid() {
			t.Errorf("event %d fails invariants after split", e.ID)
		}
	}
	for i := 0; i < wantParts; i++ {
		if _, ok := indexOwner[i]; !ok {
			t.Errorf("no event holds PartIndex %d", i)
		}
	}
}

func TestEventRepository_SplitEvent_Invalid(t *testing.T) {
	repo := NewEventRepository()
	ctx := context.Background()

	event := newTestEvent(t, 10, 540, 660)
	if err := repo.SeedEvents([]*entities.ScheduleEvent{event}); err != nil {
		t.Fatalf("SeedEvents: %v", err)
	}

	if _, _, err := repo.SplitEvent(ctx, 999, 45); !apperrors.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}

	if _, _, err := repo.SplitEvent(ctx, 10, 120); !apperrors.IsValidation(err) {
		t.Errorf("expected validation error for boundary offset, got %v", err)
	}

	// A failed split must leave the original untouched.
	got, err := repo.GetEventByID(ctx, 10)
	if err != nil {
		t.Fatalf("GetEventByID: %v", err)
	}
	if got.TotalParts != 1 || got.EndMin != 660 {
		t.Errorf("failed split mutated the original: %+v", got)
	}
}

func TestEventRepository_ListEventsByPlan_Window(t *testing.T) {
	repo := NewEventRepository()
	ctx := context.Background()

	day1 := newTestEvent(t, 1, 540, 600)
	day1.DateMs = 1_000
	day2 := newTestEvent(t, 2, 540, 600)
	day2.DateMs = 2_000
	day3 := newTestEvent(t, 3, 480, 540)
	day3.DateMs = 3_000
	if err := repo.SeedEvents([]*entities.ScheduleEvent{day1, day2, day3}); err != nil {
		t.Fatalf("SeedEvents: %v", err)
	}

	windowed, err := repo.ListEventsByPlan(ctx, 1, 2_000, 3_000)
	if err != nil {
		t.Fatalf("ListEventsByPlan: %v", err)
	}
	if len(windowed) != 2 {
		t.Fatalf("expected 2 events in window, got %d", len(windowed))
	}
	if windowed[0].ID != 2 || windowed[1].ID != 3 {
		t.Errorf("expected events ordered by day, got %d then %d", windowed[0].ID, windowed[1].ID)
	}

	all, err := repo.ListEventsByPlan(ctx, 1, 0, 0)
	if err != nil {
		t.Fatalf("ListEventsByPlan: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected unbounded window to return all 3 events, got %d", len(all))
	}
}

func TestEventRepository_UpdateAndDelete(t *testing.T) {
	repo := NewEventRepository()
	ctx := context.Background()

	event := newTestEvent(t, 5, 540, 600)
	if err := repo.SeedEvents([]*entities.ScheduleEvent{event}); err != nil {
		t.Fatalf("SeedEvents: %v", err)
	}

	event.IsPinned = true
	if err := repo.UpdateEvent(ctx, event); err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}
	got, _ := repo.GetEventByID(ctx, 5)
	if !got.IsPinned {
		t.Error("expected pinned flag to persist")
	}

	if err := repo.DeleteEvent(ctx, 5); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if _, err := repo.GetEventByID(ctx, 5); !apperrors.IsNotFound(err) {
		t.Errorf("expected not-found after delete, got %v", err)
	}
	if err := repo.DeleteEvent(ctx, 5); !apperrors.IsNotFound(err) {
		t.Errorf("expected not-found on double delete, got %v", err)
	}
}

func TestTaskRepository_PerPlanSnapshots(t *testing.T) {
	repo := NewTaskRepository()
	ctx := context.Background()

	ref := entities.TaskRef("task:7")
	planA, err := entities.NewScheduleTask(1, 1, ref, "write report", 90, entities.PriorityHigh)
	if err != nil {
		t.Fatalf("NewScheduleTask: %v", err)
	}
	planB, err := entities.NewScheduleTask(2, 2, ref, "write report", 90, entities.PriorityHigh)
	if err != nil {
		t.Fatalf("NewScheduleTask: %v", err)
	}
	repo.SeedTasks([]*entities.ScheduleTask{planA, planB})

	// Editing one plan's snapshot must not leak into the other plan.
	edited, err := repo.GetTaskByRef(ctx, 1, ref)
	if err != nil {
		t.Fatalf("GetTaskByRef: %v", err)
	}
	edited.DurationMin = 120
	if err := repo.UpdateTask(ctx, edited); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	other, err := repo.GetTaskByRef(ctx, 2, ref)
	if err != nil {
		t.Fatalf("GetTaskByRef: %v", err)
	}
	if other.DurationMin != 90 {
		t.Errorf("task edit leaked across plans: got duration %d", other.DurationMin)
	}
}
