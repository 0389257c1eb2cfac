package dto

import (
	"github.com/serpops/plancore/pkg/domain/entities"
	"github.com/serpops/plancore/pkg/domain/services/plandiff"
)

// PlanComparison is the advisory view shown before applying a proposed plan:
// the classified event diff plus per-group counts.
type PlanComparison struct {
	ActivePlan   *entities.SchedulePlan
	ProposedPlan *entities.SchedulePlan
	Entries      []plandiff.Entry
	Summary      plandiff.Summary
}

// PlanStats aggregates a plan's scheduling coverage. TotalTasks and
// ScheduledTasks report the plan's stored counters; EventTasks counts the
// distinct tasks actually placed on the calendar, which may differ when the
// counters were never populated.
type PlanStats struct {
	TotalTasks       int
	ScheduledTasks   int
	UnscheduledTasks int
	EventTasks       int
	TotalDurationMin int
	UsedDurationMin  int
	UtilizationPct   float64
}

// PlanHistoryPage is one page of a tenant's plan history.
type PlanHistoryPage struct {
	Plans    []*entities.SchedulePlan
	Total    int
	Page     int
	PageSize int
}

// SplitPreview shows the caller what a split would produce before the
// mutation is issued.
type SplitPreview struct {
	Original *entities.ScheduleEvent
	PartA    *entities.ScheduleEvent
	PartB    *entities.ScheduleEvent
}
