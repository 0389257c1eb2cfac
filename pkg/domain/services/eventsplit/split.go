// Package eventsplit partitions one scheduled event into two linked,
// time-contiguous parts. The transform is pure; atomically replacing the
// original row with the two parts belongs to the persistence layer.
package eventsplit

import (
	"fmt"

	"github.com/serpops/plancore/pkg/domain/apperrors"
	"github.com/serpops/plancore/pkg/domain/entities"
)

// Pair is the result of a split: PartA keeps the original event's identity
// and start, PartB covers the rest. PartA.EndMin == PartB.StartMin always.
type Pair struct {
	PartA *entities.ScheduleEvent
	PartB *entities.ScheduleEvent
}

// TotalDuration returns the combined duration of both parts, which equals
// the original event's duration.
func (p Pair) TotalDuration() int {
	return p.PartA.DurationMinutes() + p.PartB.DurationMinutes()
}

// Split computes the two parts of event cut at splitOffsetMin minutes past
// its start. newPartID is the identifier the caller reserved for the second
// part; zero produces an unlinked first part, which is fine for previews but
// must be resolved before persisting.
//
// The original event is not mutated. Once the caller persists the pair, the
// original ceases to exist as a standalone row; it is not a third record.
func Split(event *entities.ScheduleEvent, splitOffsetMin int, newPartID int64) (Pair, error) {
	if !event.CanBeModified() {
		return Pair{}, apperrors.NewValidation("status", "cannot split event with status %s", event.Status)
	}

	duration := event.DurationMinutes()
	if splitOffsetMin <= 0 || splitOffsetMin >= duration {
		return Pair{}, &apperrors.SplitRangeError{
			OffsetMin:   splitOffsetMin,
			DurationMin: duration,
			Reason:      "offset must fall strictly inside the event",
		}
	}

	cutMin := event.StartMin + splitOffsetMin

	partA := *event
	partA.EndMin = cutMin
	partA.TotalParts = event.TotalParts + 1
	if newPartID != 0 {
		linked := newPartID
		partA.LinkedEventID = &linked
	}

	partB := entities.ScheduleEvent{
		ID:             newPartID,
		SchedulePlanID: event.SchedulePlanID,
		TaskRef:        event.TaskRef,
		Title:          event.Title,
		DateMs:         event.DateMs,
		StartMin:       cutMin,
		EndMin:         event.EndMin,
		Status:         entities.EventPlanned,
		Priority:       event.Priority,
		PartIndex:      event.PartIndex + 1,
		TotalParts:     event.TotalParts + 1,
		IsPinned:       event.IsPinned,
		IsDeepWork:     event.IsDeepWork,
		UpdatedAt:      event.UpdatedAt,
	}
	linkedA := event.ID
	partB.LinkedEventID = &linkedA

	return Pair{PartA: &partA, PartB: &partB}, nil
}

// CheckPolicy verifies a proposed split against the owning task's split
// policy. The pure range precondition lives in Split; this adds the task's
// constraints: splitting allowed at all, both parts at least the minimum
// duration, and the chain not exceeding its maximum part count.
func CheckPolicy(event *entities.ScheduleEvent, task *entities.ScheduleTask, splitOffsetMin int) error {
	if !task.Split.AllowSplit {
		return apperrors.NewValidation("allowSplit", "task %s does not allow splitting", task.TaskRef)
	}
	if task.Split.MaxSplitCount > 0 && event.TotalParts+1 > task.Split.MaxSplitCount {
		return apperrors.NewValidation("maxSplitCount",
			"split would create %d parts, task allows at most %d",
			event.TotalParts+1, task.Split.MaxSplitCount)
	}

	minPart := task.Split.MinPartDuration()
	duration := event.DurationMinutes()
	if splitOffsetMin < minPart || duration-splitOffsetMin < minPart {
		return &apperrors.SplitRangeError{
			OffsetMin:   splitOffsetMin,
			DurationMin: duration,
			Reason:      fmt.Sprintf("both parts must last at least %d minutes", minPart),
		}
	}
	return nil
}
