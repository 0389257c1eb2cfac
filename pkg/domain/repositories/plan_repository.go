package repositories

import (
	"context"

	"github.com/serpops/plancore/pkg/domain/entities"
)

// PlanRepository is the gateway to schedule plan persistence. The backing
// store is remote; implementations translate transport failures into
// apperrors.TransportError and missing rows into apperrors.ErrPlanNotFound.
type PlanRepository interface {
	GetPlanByID(ctx context.Context, id int64) (*entities.SchedulePlan, error)

	// GetActivePlan returns the tenant's ACTIVE plan, or nil when none holds
	// the slot.
	GetActivePlan(ctx context.Context, tenantID int64) (*entities.SchedulePlan, error)

	// GetProposedPlan returns the tenant's PROPOSED plan, or nil when none
	// holds the slot.
	GetProposedPlan(ctx context.Context, tenantID int64) (*entities.SchedulePlan, error)

	// ListPlanHistory returns one page of the tenant's plans ordered by
	// creation time descending, plus the total count.
	ListPlanHistory(ctx context.Context, tenantID int64, page, pageSize int) ([]*entities.SchedulePlan, int, error)

	CreatePlan(ctx context.Context, plan *entities.SchedulePlan) (*entities.SchedulePlan, error)

	// UpdatePlanStatus transitions the plan from expected to next as a
	// compare-and-swap: when the stored status no longer matches expected,
	// it fails with apperrors.ConflictError and changes nothing.
	UpdatePlanStatus(ctx context.Context, planID int64, expected, next entities.PlanStatus) error
}
