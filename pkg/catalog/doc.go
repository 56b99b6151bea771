// Package catalog provides read-only access to subscription plan definitions.
//
// Plans are owned by an external catalog service; this package loads a
// versioned snapshot of them through a PlansSource, validates the
// configuration once at startup, and serves lookups by plan ID. Nothing in
// this package mutates plans.
//
// Key concepts:
//
//   - Plan: a priceable offering with price, billing interval, trial length
//     and usage limits
//   - Limits: per-dimension caps (users, storage, API calls) where
//     Unlimited (-1) exempts a dimension from enforcement
//   - PlansSource: pluggable loader (in-memory source included, database or
//     remote sources can implement the same interface)
//
// Basic usage:
//
//	source := catalog.NewInMemSource(
//	    catalog.Plan{
//	        ID:     "free",
//	        Name:   "Free",
//	        IsFree: true,
//	        Limits: catalog.Limits{MaxUsers: 1, MaxStorageMB: 100, MaxAPICalls: 1000},
//	    },
//	    catalog.Plan{
//	        ID:        "pro",
//	        Name:      "Pro",
//	        Price:     decimal.NewFromFloat(29.99),
//	        Currency:  "USD",
//	        Interval:  catalog.IntervalMonth,
//	        TrialDays: 14,
//	        Limits:    catalog.Limits{MaxUsers: 10, MaxStorageMB: 10240, MaxAPICalls: catalog.Unlimited},
//	    },
//	)
//
//	cat, err := catalog.New(ctx, source)
//	if err != nil {
//	    // invalid plan configuration or source failure
//	}
//
//	plan, err := cat.GetPlan("pro")
package catalog
