package entities

import "fmt"

// Priority represents task urgency
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

// String method for Priority enum
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityHigh:
		return "HIGH"
	default:
		return "Unknown"
	}
}

// ParsePriority converts a priority label into a Priority
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "LOW":
		return PriorityLow, nil
	case "MEDIUM":
		return PriorityMedium, nil
	case "HIGH":
		return PriorityHigh, nil
	default:
		return 0, fmt.Errorf("unknown priority %q", s)
	}
}

// DefaultMinSplitDurationMin is the fallback lower bound for split parts when
// a task does not specify its own.
const DefaultMinSplitDurationMin = 30

// SplitPolicy bundles a task's constraints on event splitting.
type SplitPolicy struct {
	AllowSplit          bool
	MinSplitDurationMin int
	MaxSplitCount       int
}

// MinPartDuration returns the effective minimum duration of a split part.
func (p SplitPolicy) MinPartDuration() int {
	if p.MinSplitDurationMin <= 0 {
		return DefaultMinSplitDurationMin
	}
	return p.MinSplitDurationMin
}

// ScheduleTask is the schedulable unit a plan places as events. Each plan
// owns its own task snapshot; edits never propagate across plans.
type ScheduleTask struct {
	ID             int64
	SchedulePlanID int64
	TaskRef        TaskRef

	Title       string
	DurationMin int
	Priority    Priority
	IsDeepWork  bool

	DeadlineMs       int64
	EarliestStartMs  int64
	PreferredStartMs int64

	Split SplitPolicy

	BufferBeforeMin int
	BufferAfterMin  int
}

// NewScheduleTask creates a validated task snapshot within a plan.
func NewScheduleTask(id, planID int64, taskRef TaskRef, title string, durationMin int, priority Priority) (*ScheduleTask, error) {
	if planID <= 0 {
		return nil, fmt.Errorf("plan id must be positive, got %d", planID)
	}
	if taskRef == "" {
		return nil, fmt.Errorf("task reference cannot be empty")
	}
	if durationMin <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %d", durationMin)
	}

	return &ScheduleTask{
		ID:             id,
		SchedulePlanID: planID,
		TaskRef:        taskRef,
		Title:          title,
		DurationMin:    durationMin,
		Priority:       priority,
	}, nil
}
