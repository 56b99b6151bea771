package catalog

import (
	"context"
	"errors"
	"fmt"
)

// Catalog serves validated, read-only plan lookups.
type Catalog struct {
	plans map[string]Plan
}

// New loads plans from the given source and validates them.
// Panics if src is nil to fail fast during initialization.
func New(ctx context.Context, src PlansSource) (*Catalog, error) {
	if src == nil {
		panic("catalog: PlansSource is required")
	}

	plans, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	if err := validatePlans(plans); err != nil {
		return nil, err
	}

	return &Catalog{plans: plans}, nil
}

// GetPlan returns the plan with the given ID, or ErrPlanNotFound.
func (c *Catalog) GetPlan(planID string) (Plan, error) {
	plan, exists := c.plans[planID]
	if !exists {
		return Plan{}, ErrPlanNotFound
	}
	return plan, nil
}

// validatePlans ensures plan configurations are internally consistent.
// Catches common configuration errors early to prevent runtime issues.
func validatePlans(plans map[string]Plan) error {
	names := make(map[string]string, len(plans))
	for planID, plan := range plans {
		if plan.ID != planID {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan ID mismatch: map key %s != plan.ID %s", planID, plan.ID))
		}
		if err := plan.validate(); err != nil {
			return err
		}
		if other, exists := names[plan.Name]; exists {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plans %s and %s share the name %q", other, planID, plan.Name))
		}
		names[plan.Name] = planID
	}
	return nil
}
