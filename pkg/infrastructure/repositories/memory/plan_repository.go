package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/serpops/plancore/pkg/domain/apperrors"
	"github.com/serpops/plancore/pkg/domain/entities"
	"github.com/serpops/plancore/pkg/domain/repositories"
)

// PlanRepository provides in-memory schedule plan storage. It returns
// copies, never aliases into its own state, so callers can mutate results
// freely before writing them back.
type PlanRepository struct {
	mutex  sync.RWMutex
	plans  map[int64]*entities.SchedulePlan
	nextID int64
}

// NewPlanRepository creates an empty in-memory plan repository.
func NewPlanRepository() *PlanRepository {
	return &PlanRepository{
		plans:  make(map[int64]*entities.SchedulePlan),
		nextID: 1,
	}
}

// Verify interface compliance
var _ repositories.PlanRepository = (*PlanRepository)(nil)

// GetPlanByID returns the plan with the given id.
func (r *PlanRepository) GetPlanByID(ctx context.Context, id int64) (*entities.SchedulePlan, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	plan, exists := r.plans[id]
	if !exists {
		return nil, apperrors.ErrPlanNotFound
	}
	copied := *plan
	return &copied, nil
}

// GetActivePlan returns the tenant's ACTIVE plan, or nil when none exists.
func (r *PlanRepository) GetActivePlan(ctx context.Context, tenantID int64) (*entities.SchedulePlan, error) {
	return r.findByStatus(tenantID, entities.PlanActive), nil
}

// GetProposedPlan returns the tenant's PROPOSED plan, or nil when none exists.
func (r *PlanRepository) GetProposedPlan(ctx context.Context, tenantID int64) (*entities.SchedulePlan, error) {
	return r.findByStatus(tenantID, entities.PlanProposed), nil
}

func (r *PlanRepository) findByStatus(tenantID int64, status entities.PlanStatus) *entities.SchedulePlan {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, plan := range r.plans {
		if plan.TenantID == tenantID && plan.Status == status {
			copied := *plan
			return &copied
		}
	}
	return nil
}

// ListPlanHistory returns one page of the tenant's plans, newest first.
func (r *PlanRepository) ListPlanHistory(ctx context.Context, tenantID int64, page, pageSize int) ([]*entities.SchedulePlan, int, error) {
	if page < 1 {
		return nil, 0, apperrors.NewValidation("page", "must be at least 1, got %d", page)
	}
	if pageSize < 1 {
		return nil, 0, apperrors.NewValidation("pageSize", "must be at least 1, got %d", pageSize)
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var all []*entities.SchedulePlan
	for _, plan := range r.plans {
		if plan.TenantID == tenantID {
			copied := *plan
			all = append(all, &copied)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	start := (page - 1) * pageSize
	if start >= total {
		return []*entities.SchedulePlan{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

// CreatePlan stores the plan, assigning an id when the caller left it zero.
func (r *PlanRepository) CreatePlan(ctx context.Context, plan *entities.SchedulePlan) (*entities.SchedulePlan, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	copied := *plan
	if copied.ID == 0 {
		copied.ID = r.nextID
	}
	if copied.ID >= r.nextID {
		r.nextID = copied.ID + 1
	}
	r.plans[copied.ID] = &copied

	result := copied
	return &result, nil
}

// UpdatePlanStatus transitions the plan from expected to next as a
// compare-and-swap. A stale expected status fails with ConflictError and
// leaves the plan untouched.
func (r *PlanRepository) UpdatePlanStatus(ctx context.Context, planID int64, expected, next entities.PlanStatus) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	plan, exists := r.plans[planID]
	if !exists {
		return apperrors.ErrPlanNotFound
	}
	if plan.Status != expected {
		return &apperrors.ConflictError{
			PlanID:         planID,
			ExpectedStatus: expected.String(),
			ActualStatus:   plan.Status.String(),
		}
	}
	return plan.TransitionTo(next)
}
