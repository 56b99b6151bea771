// Package usage accumulates per-subscription consumption counters and
// evaluates them against plan limits.
//
// Counters are monotonically non-decreasing within a billing period; they
// reset to zero only on renewal. Limit evaluation is a pure function so it
// can serve both as a pre-flight gate (reject the triggering request) and as
// a post-hoc compliance report.
//
// Basic usage:
//
//	updated, err := current.Add(usage.Delta{APICalls: 50})
//	if err != nil {
//	    // negative delta rejected
//	}
//
//	violations := usage.CheckLimits(updated, plan.Limits)
//	if len(violations) > 0 {
//	    // over quota on the named dimensions; caller decides whether to throttle
//	}
package usage
