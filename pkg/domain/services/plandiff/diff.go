// Package plandiff compares the event sets of two schedule plans and
// classifies every event as added, removed, moved or unchanged. Events are
// matched by task reference, not by event id: a moved event is the same task
// placed differently.
package plandiff

import (
	"fmt"

	"github.com/serpops/plancore/pkg/domain/apperrors"
	"github.com/serpops/plancore/pkg/domain/entities"
)

// ChangeType classifies one diff entry
type ChangeType int

const (
	Added ChangeType = iota
	Removed
	Moved
	Unchanged
)

// String method for ChangeType enum
func (c ChangeType) String() string {
	switch c {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Moved:
		return "moved"
	case Unchanged:
		return "unchanged"
	default:
		return "Unknown"
	}
}

// Entry is one classified difference. For Moved and Unchanged entries
// OldEvent carries the matched active-side event (superseded for Moved,
// identically placed for Unchanged); for Removed entries Event is the active
// event that has no counterpart in the proposed plan.
type Entry struct {
	Type     ChangeType
	Event    *entities.ScheduleEvent
	OldEvent *entities.ScheduleEvent
}

// Summary counts entries per change type, as surfaced to callers that only
// display totals.
type Summary struct {
	Added     int
	Removed   int
	Moved     int
	Unchanged int
}

// Total returns the number of diff entries counted.
func (s Summary) Total() int {
	return s.Added + s.Removed + s.Moved + s.Unchanged
}

// Diff classifies proposedEvents against activeEvents. The result is stable:
// added entries first (proposed iteration order), then moved, then removed
// (active iteration order), then unchanged.
//
// A task reference appearing twice within either input set is a
// data-integrity error, never silently resolved.
func Diff(activeEvents, proposedEvents []*entities.ScheduleEvent) ([]Entry, error) {
	activeByTask, err := indexByTask(activeEvents, "active")
	if err != nil {
		return nil, err
	}
	if _, err := indexByTask(proposedEvents, "proposed"); err != nil {
		return nil, err
	}

	var added, moved, removed, unchanged []Entry

	matchedTasks := make(map[entities.TaskRef]bool, len(proposedEvents))
	for _, proposed := range proposedEvents {
		active, exists := activeByTask[proposed.TaskRef]
		if !exists {
			added = append(added, Entry{Type: Added, Event: proposed})
			continue
		}
		matchedTasks[proposed.TaskRef] = true

		if proposed.DateMs != active.DateMs ||
			proposed.StartMin != active.StartMin ||
			proposed.EndMin != active.EndMin {
			moved = append(moved, Entry{Type: Moved, Event: proposed, OldEvent: active})
		} else {
			unchanged = append(unchanged, Entry{Type: Unchanged, Event: proposed, OldEvent: active})
		}
	}

	for _, active := range activeEvents {
		if !matchedTasks[active.TaskRef] {
			removed = append(removed, Entry{Type: Removed, Event: active})
		}
	}

	entries := make([]Entry, 0, len(added)+len(moved)+len(removed)+len(unchanged))
	entries = append(entries, added...)
	entries = append(entries, moved...)
	entries = append(entries, removed...)
	entries = append(entries, unchanged...)
	return entries, nil
}

// Summarize counts the entries per change type.
func Summarize(entries []Entry) Summary {
	var s Summary
	for _, entry := range entries {
		switch entry.Type {
		case Added:
			s.Added++
		case Removed:
			s.Removed++
		case Moved:
			s.Moved++
		case Unchanged:
			s.Unchanged++
		}
	}
	return s
}

func indexByTask(events []*entities.ScheduleEvent, side string) (map[entities.TaskRef]*entities.ScheduleEvent, error) {
	index := make(map[entities.TaskRef]*entities.ScheduleEvent, len(events))
	for _, event := range events {
		if event.TaskRef == "" {
			return nil, apperrors.NewValidation("taskRef", "%s event %d has no task reference", side, event.ID)
		}
		if _, dup := index[event.TaskRef]; dup {
			return nil, fmt.Errorf("%s plan: task %s: %w", side, event.TaskRef, apperrors.ErrDuplicateTaskKey)
		}
		index[event.TaskRef] = event
	}
	return index, nil
}
