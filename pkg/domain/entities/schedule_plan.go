package entities

import (
	"fmt"
	"time"
)

// PlanStatus represents the lifecycle state of a schedule plan
type PlanStatus int

const (
	PlanDraft PlanStatus = iota
	PlanProcessing
	PlanProposed
	PlanActive
	PlanArchived
	PlanCompleted
	PlanDiscarded
	PlanFailed
)

// String method for PlanStatus enum
func (s PlanStatus) String() string {
	switch s {
	case PlanDraft:
		return "DRAFT"
	case PlanProcessing:
		return "PROCESSING"
	case PlanProposed:
		return "PROPOSED"
	case PlanActive:
		return "ACTIVE"
	case PlanArchived:
		return "ARCHIVED"
	case PlanCompleted:
		return "COMPLETED"
	case PlanDiscarded:
		return "DISCARDED"
	case PlanFailed:
		return "FAILED"
	default:
		return "Unknown"
	}
}

// ParsePlanStatus converts a status label into a PlanStatus
func ParsePlanStatus(s string) (PlanStatus, error) {
	switch s {
	case "DRAFT":
		return PlanDraft, nil
	case "PROCESSING":
		return PlanProcessing, nil
	case "PROPOSED":
		return PlanProposed, nil
	case "ACTIVE":
		return PlanActive, nil
	case "ARCHIVED":
		return PlanArchived, nil
	case "COMPLETED":
		return PlanCompleted, nil
	case "DISCARDED":
		return PlanDiscarded, nil
	case "FAILED":
		return PlanFailed, nil
	default:
		return 0, fmt.Errorf("unknown plan status %q", s)
	}
}

// validPlanTransitions defines the allowed status transitions. ARCHIVED and
// COMPLETED may return to ACTIVE via revert; DISCARDED and FAILED are dead.
var validPlanTransitions = map[PlanStatus][]PlanStatus{
	PlanDraft:      {PlanProcessing, PlanFailed},
	PlanProcessing: {PlanProposed, PlanFailed},
	PlanProposed:   {PlanActive, PlanDiscarded},
	PlanActive:     {PlanArchived, PlanCompleted},
	PlanArchived:   {PlanActive},
	PlanCompleted:  {PlanActive},
	PlanDiscarded:  {},
	PlanFailed:     {},
}

// SchedulePlan is a versioned container of scheduled work for a date range.
// At most one plan per tenant holds ACTIVE and at most one holds PROPOSED;
// the lifecycle manager owns those singleton slots.
type SchedulePlan struct {
	ID       int64
	TenantID int64

	Name        string
	StartDateMs int64
	EndDateMs   int64
	Status      PlanStatus

	TotalTasks     int
	TasksScheduled int

	OptimizationScore      float64
	OptimizationDurationMs int64
	FailureReason          string

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSchedulePlan creates a validated draft plan covering the given range.
func NewSchedulePlan(id, tenantID int64, name string, startDateMs, endDateMs int64) (*SchedulePlan, error) {
	if tenantID <= 0 {
		return nil, fmt.Errorf("tenant id must be positive, got %d", tenantID)
	}
	if endDateMs != 0 && endDateMs < startDateMs {
		return nil, fmt.Errorf("end date %d before start date %d", endDateMs, startDateMs)
	}

	now := time.Now()
	return &SchedulePlan{
		ID:          id,
		TenantID:    tenantID,
		Name:        name,
		StartDateMs: startDateMs,
		EndDateMs:   endDateMs,
		Status:      PlanDraft,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CanTransitionTo reports whether the plan may move to newStatus.
func (p *SchedulePlan) CanTransitionTo(newStatus PlanStatus) bool {
	allowed, exists := validPlanTransitions[p.Status]
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

// TransitionTo moves the plan to newStatus, rejecting transitions outside
// the lifecycle table.
func (p *SchedulePlan) TransitionTo(newStatus PlanStatus) error {
	if !p.CanTransitionTo(newStatus) {
		return fmt.Errorf("invalid plan transition %s -> %s", p.Status, newStatus)
	}
	p.Status = newStatus
	p.UpdatedAt = time.Now()
	return nil
}

// IsActive reports whether the plan holds the ACTIVE singleton slot.
func (p *SchedulePlan) IsActive() bool {
	return p.Status == PlanActive
}

// IsProposed reports whether the plan holds the PROPOSED singleton slot.
func (p *SchedulePlan) IsProposed() bool {
	return p.Status == PlanProposed
}

// IsRevertible reports whether the plan may be promoted back to ACTIVE.
func (p *SchedulePlan) IsRevertible() bool {
	return p.Status == PlanArchived || p.Status == PlanCompleted
}

// IsTerminal reports whether the plan can never occupy a singleton slot again.
func (p *SchedulePlan) IsTerminal() bool {
	return p.Status == PlanDiscarded || p.Status == PlanFailed
}

// StartOptimization marks the plan as handed to the external optimizer.
func (p *SchedulePlan) StartOptimization() error {
	return p.TransitionTo(PlanProcessing)
}

// CompleteOptimization records the optimizer's result and proposes the plan.
func (p *SchedulePlan) CompleteOptimization(score float64, durationMs int64) error {
	if err := p.TransitionTo(PlanProposed); err != nil {
		return err
	}
	p.OptimizationScore = score
	p.OptimizationDurationMs = durationMs
	return nil
}

// FailOptimization marks the plan failed with the optimizer's reason.
func (p *SchedulePlan) FailOptimization(reason string) error {
	if err := p.TransitionTo(PlanFailed); err != nil {
		return err
	}
	p.FailureReason = reason
	return nil
}
