// Package proration computes the credit/charge delta when a subscription
// changes plan mid-cycle.
//
// The calculation is a pure numeric function over decimal amounts:
//
//	delta = newDailyRate*daysRemaining - oldDailyRate*daysRemaining
//
// where dailyRate = price / daysInPeriod (30 for monthly, 365 for annual
// plans). A negative result is a net credit owed to the customer. Prorating
// between identical plans is always exactly zero.
//
// One-time plans never prorate; passing one is a programming error and
// panics rather than returning a bogus amount.
package proration
