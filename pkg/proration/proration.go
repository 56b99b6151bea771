package proration

import (
	"github.com/shopspring/decimal"

	"github.com/dmitrymomot/subkit/pkg/catalog"
)

// Prorate returns the net charge (positive) or credit (negative) for
// switching from oldPlan to newPlan with daysRemaining left in the current
// billing cycle. Panics if either plan is one-time: such plans have no
// recurring period to prorate against, so reaching this function with one is
// a bug in the caller.
func Prorate(oldPlan, newPlan catalog.Plan, daysRemaining int) decimal.Decimal {
	if oldPlan.IsOneTime() || newPlan.IsOneTime() {
		panic("proration: one-time plans never prorate")
	}
	if daysRemaining < 0 {
		panic("proration: daysRemaining cannot be negative")
	}

	days := decimal.NewFromInt(int64(daysRemaining))
	newRemainder := dailyRate(newPlan).Mul(days)
	oldRemainder := dailyRate(oldPlan).Mul(days)
	return newRemainder.Sub(oldRemainder)
}

// dailyRate divides the plan price over its nominal period length.
// decimal division keeps enough precision that equal plans always cancel to
// exactly zero in Prorate.
func dailyRate(p catalog.Plan) decimal.Decimal {
	return p.Price.Div(decimal.NewFromInt(int64(p.DaysInPeriod())))
}
