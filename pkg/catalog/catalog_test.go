package catalog_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subkit/pkg/catalog"
)

func testPlans() []catalog.Plan {
	return []catalog.Plan{
		{
			ID:       "free",
			Name:     "Free",
			Interval: catalog.IntervalMonth,
			IsFree:   true,
			Limits:   catalog.Limits{MaxUsers: 1, MaxStorageMB: 100, MaxAPICalls: 1000},
		},
		{
			ID:        "pro",
			Name:      "Pro",
			Price:     decimal.RequireFromString("29.99"),
			Currency:  "USD",
			Interval:  catalog.IntervalMonth,
			TrialDays: 14,
			Limits:    catalog.Limits{MaxUsers: 10, MaxStorageMB: 10240, MaxAPICalls: catalog.Unlimited},
		},
		{
			ID:       "lifetime",
			Name:     "Lifetime",
			Price:    decimal.RequireFromString("299"),
			Currency: "USD",
			Interval: catalog.IntervalOneTime,
			Limits:   catalog.Limits{MaxUsers: catalog.Unlimited, MaxStorageMB: catalog.Unlimited, MaxAPICalls: catalog.Unlimited},
		},
	}
}

func TestCatalog_GetPlan(t *testing.T) {
	t.Parallel()

	cat, err := catalog.New(context.Background(), catalog.NewInMemSource(testPlans()...))
	require.NoError(t, err)

	t.Run("returns existing plan", func(t *testing.T) {
		t.Parallel()

		plan, err := cat.GetPlan("pro")
		require.NoError(t, err)
		assert.Equal(t, "Pro", plan.Name)
		assert.Equal(t, 14, plan.TrialDays)
	})

	t.Run("returns ErrPlanNotFound for unknown ID", func(t *testing.T) {
		t.Parallel()

		_, err := cat.GetPlan("enterprise")
		assert.ErrorIs(t, err, catalog.ErrPlanNotFound)
	})
}

func TestCatalog_Validation(t *testing.T) {
	t.Parallel()

	t.Run("rejects free plan with non-zero price", func(t *testing.T) {
		t.Parallel()

		src := catalog.NewInMemSource(catalog.Plan{
			ID:       "bad",
			Name:     "Bad",
			Price:    decimal.RequireFromString("5"),
			Interval: catalog.IntervalMonth,
			IsFree:   true,
		})
		_, err := catalog.New(context.Background(), src)
		assert.ErrorIs(t, err, catalog.ErrInvalidPlanConfiguration)
	})

	t.Run("rejects negative price", func(t *testing.T) {
		t.Parallel()

		src := catalog.NewInMemSource(catalog.Plan{
			ID:       "bad",
			Name:     "Bad",
			Price:    decimal.RequireFromString("-1"),
			Interval: catalog.IntervalMonth,
		})
		_, err := catalog.New(context.Background(), src)
		assert.ErrorIs(t, err, catalog.ErrInvalidPlanConfiguration)
	})

	t.Run("rejects negative trial days", func(t *testing.T) {
		t.Parallel()

		src := catalog.NewInMemSource(catalog.Plan{
			ID:        "bad",
			Name:      "Bad",
			Interval:  catalog.IntervalMonth,
			TrialDays: -1,
		})
		_, err := catalog.New(context.Background(), src)
		assert.ErrorIs(t, err, catalog.ErrInvalidPlanConfiguration)
	})

	t.Run("rejects unknown interval", func(t *testing.T) {
		t.Parallel()

		src := catalog.NewInMemSource(catalog.Plan{
			ID:       "bad",
			Name:     "Bad",
			Interval: "weekly",
		})
		_, err := catalog.New(context.Background(), src)
		assert.ErrorIs(t, err, catalog.ErrInvalidPlanConfiguration)
	})

	t.Run("rejects duplicate plan names", func(t *testing.T) {
		t.Parallel()

		src := catalog.NewInMemSource(
			catalog.Plan{ID: "a", Name: "Same", Interval: catalog.IntervalMonth},
			catalog.Plan{ID: "b", Name: "Same", Interval: catalog.IntervalMonth},
		)
		_, err := catalog.New(context.Background(), src)
		assert.ErrorIs(t, err, catalog.ErrInvalidPlanConfiguration)
	})

	t.Run("rejects invalid limit below -1", func(t *testing.T) {
		t.Parallel()

		src := catalog.NewInMemSource(catalog.Plan{
			ID:       "bad",
			Name:     "Bad",
			Interval: catalog.IntervalMonth,
			Limits:   catalog.Limits{MaxUsers: -2},
		})
		_, err := catalog.New(context.Background(), src)
		assert.ErrorIs(t, err, catalog.ErrInvalidPlanConfiguration)
	})

	t.Run("panics on empty source", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() {
			catalog.NewInMemSource()
		})
	})
}
