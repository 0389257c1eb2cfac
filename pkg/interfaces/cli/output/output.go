// Package output renders plan, event and ledger views for the console.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/serpops/plancore/pkg/application/dto"
	"github.com/serpops/plancore/pkg/domain/entities"
	"github.com/serpops/plancore/pkg/domain/services/plandiff"
)

// Format selects the rendering style.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Renderer writes views to w in the configured format.
type Renderer struct {
	w      io.Writer
	format string
}

// NewRenderer creates a renderer for the given format, text or json.
func NewRenderer(w io.Writer, format string) (*Renderer, error) {
	if format != FormatText && format != FormatJSON {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
	return &Renderer{w: w, format: format}, nil
}

// Plans renders a plan history page.
func (r *Renderer) Plans(page *dto.PlanHistoryPage) error {
	if r.format == FormatJSON {
		return r.json(page)
	}

	fmt.Fprintf(r.w, "Plans (page %d, %d total)\n\n", page.Page, page.Total)
	fmt.Fprintf(r.w, "%-6s %-24s %-11s %-12s %-12s %-7s\n",
		"ID", "Name", "Status", "Start", "End", "Tasks")
	for _, plan := range page.Plans {
		fmt.Fprintf(r.w, "%-6d %-24s %-11s %-12s %-12s %d/%d\n",
			plan.ID,
			truncate(plan.Name, 24),
			plan.Status,
			formatDay(plan.StartDateMs),
			formatDay(plan.EndDateMs),
			plan.TasksScheduled,
			plan.TotalTasks,
		)
	}
	return nil
}

// Plan renders a single plan with its stats.
func (r *Renderer) Plan(plan *entities.SchedulePlan, stats *dto.PlanStats) error {
	if r.format == FormatJSON {
		return r.json(map[string]any{"plan": plan, "stats": stats})
	}

	fmt.Fprintf(r.w, "Plan %d: %s\n", plan.ID, plan.Name)
	fmt.Fprintf(r.w, "  Status:   %s\n", plan.Status)
	fmt.Fprintf(r.w, "  Range:    %s - %s\n", formatDay(plan.StartDateMs), formatDay(plan.EndDateMs))
	if plan.FailureReason != "" {
		fmt.Fprintf(r.w, "  Failure:  %s\n", plan.FailureReason)
	}
	if stats != nil {
		fmt.Fprintf(r.w, "  Tasks:    %d scheduled, %d unscheduled, %d on calendar\n",
			stats.ScheduledTasks, stats.UnscheduledTasks, stats.EventTasks)
		fmt.Fprintf(r.w, "  Workload: %d of %d minutes done (%.1f%%)\n",
			stats.UsedDurationMin, stats.TotalDurationMin, stats.UtilizationPct)
	}
	return nil
}

// Comparison renders the advisory diff between active and proposed plans.
func (r *Renderer) Comparison(comparison *dto.PlanComparison) error {
	if r.format == FormatJSON {
		return r.json(comparison)
	}

	if comparison.ActivePlan != nil {
		fmt.Fprintf(r.w, "Active:   plan %d (%s)\n", comparison.ActivePlan.ID, comparison.ActivePlan.Name)
	} else {
		fmt.Fprintf(r.w, "Active:   none\n")
	}
	fmt.Fprintf(r.w, "Proposed: plan %d (%s)\n\n", comparison.ProposedPlan.ID, comparison.ProposedPlan.Name)

	s := comparison.Summary
	fmt.Fprintf(r.w, "%d added, %d removed, %d moved, %d unchanged\n\n",
		s.Added, s.Removed, s.Moved, s.Unchanged)

	for _, entry := range comparison.Entries {
		switch entry.Type {
		case plandiff.Moved:
			fmt.Fprintf(r.w, "  ~ %-28s %s %s -> %s %s\n",
				truncate(entry.Event.Title, 28),
				formatDay(entry.OldEvent.DateMs), formatRange(entry.OldEvent),
				formatDay(entry.Event.DateMs), formatRange(entry.Event))
		case plandiff.Added:
			fmt.Fprintf(r.w, "  + %-28s %s %s\n",
				truncate(entry.Event.Title, 28), formatDay(entry.Event.DateMs), formatRange(entry.Event))
		case plandiff.Removed:
			fmt.Fprintf(r.w, "  - %-28s %s %s\n",
				truncate(entry.Event.Title, 28), formatDay(entry.Event.DateMs), formatRange(entry.Event))
		}
	}
	return nil
}

// Events renders a plan's events.
func (r *Renderer) Events(events []*entities.ScheduleEvent) error {
	if r.format == FormatJSON {
		return r.json(events)
	}

	fmt.Fprintf(r.w, "%-6s %-28s %-12s %-13s %-9s %-6s %s\n",
		"ID", "Title", "Day", "Time", "Status", "Part", "Flags")
	for _, event := range events {
		part := "-"
		if event.IsMultiPart() {
			part = fmt.Sprintf("%d/%d", event.PartIndex+1, event.TotalParts)
		}
		fmt.Fprintf(r.w, "%-6d %-28s %-12s %-13s %-9s %-6s %s\n",
			event.ID,
			truncate(event.Title, 28),
			formatDay(event.DateMs),
			formatRange(event),
			event.Status,
			part,
			eventFlags(event),
		)
	}
	return nil
}

// SplitPreview renders the outcome a split would have.
func (r *Renderer) SplitPreview(preview *dto.SplitPreview) error {
	if r.format == FormatJSON {
		return r.json(preview)
	}

	fmt.Fprintf(r.w, "Splitting event %d (%s, %s)\n",
		preview.Original.ID, preview.Original.Title, formatRange(preview.Original))
	fmt.Fprintf(r.w, "  part 1: %s (%d min)\n", formatRange(preview.PartA), preview.PartA.DurationMinutes())
	fmt.Fprintf(r.w, "  part 2: %s (%d min)\n", formatRange(preview.PartB), preview.PartB.DurationMinutes())
	return nil
}

// Ledger renders the quantity reconciliation for one order.
func (r *Renderer) Ledger(view *dto.LedgerView) error {
	if r.format == FormatJSON {
		return r.json(view)
	}

	fmt.Fprintf(r.w, "Order %d", view.OrderID)
	if view.CurrentShipmentID != 0 {
		fmt.Fprintf(r.w, " (editing shipment %d)", view.CurrentShipmentID)
	}
	fmt.Fprintf(r.w, "\n\n%-12s %-12s %10s %10s %10s %10s\n",
		"Line", "Product", "Ordered", "Others", "Current", "Max")
	for _, line := range view.Lines {
		fmt.Fprintf(r.w, "%-12s %-12s %10s %10s %10s %10s\n",
			line.OrderLineID,
			line.ProductID,
			line.Ordered.String(),
			line.UsedByOthers.String(),
			line.UsedByCurrent.String(),
			line.MaxAllowed().String(),
		)
	}
	fmt.Fprintf(r.w, "\nTotal ordered %s, remaining %s\n",
		view.TotalOrdered.String(), view.TotalRemaining.String())
	return nil
}

func (r *Renderer) json(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width])
}

func formatDay(dateMs int64) string {
	if dateMs == 0 {
		return "-"
	}
	return time.UnixMilli(dateMs).UTC().Format("2006-01-02")
}

func formatRange(event *entities.ScheduleEvent) string {
	return fmt.Sprintf("%s-%s", formatMinute(event.StartMin), formatMinute(event.EndMin))
}

func formatMinute(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

func eventFlags(event *entities.ScheduleEvent) string {
	flags := ""
	if event.IsPinned {
		flags += "pinned "
	}
	if event.IsDeepWork {
		flags += "deep "
	}
	if event.IsManualOverride {
		flags += "manual "
	}
	if flags == "" {
		return "-"
	}
	return flags[:len(flags)-1]
}
