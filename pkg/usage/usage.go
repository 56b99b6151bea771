package usage

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/subkit/pkg/catalog"
)

var ErrNegativeDelta = errors.New("usage delta cannot be negative")

// Dimension names a metered consumption counter.
type Dimension string

const (
	DimensionAPICalls  Dimension = "apiCalls"
	DimensionStorageMB Dimension = "storageMB"
	DimensionUsers     Dimension = "users"
)

// Usage holds the current consumption counters for a subscription.
// All counters are non-negative.
type Usage struct {
	APICalls  int64
	StorageMB int64
	Users     int64
}

// Delta is an increment to apply to usage counters. Only non-negative
// values are accepted: counters never move backwards inside a billing period.
type Delta struct {
	APICalls  int64
	StorageMB int64
	Users     int64
}

// Violation reports a dimension whose usage has reached or exceeded its limit.
type Violation struct {
	Dimension Dimension
	Used      int64
	Limit     int64
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %d of %d", v.Dimension, v.Used, v.Limit)
}

// Add returns a copy of u with the delta applied.
// Fails with ErrNegativeDelta if any component is negative; u is unchanged.
func (u Usage) Add(d Delta) (Usage, error) {
	if d.APICalls < 0 || d.StorageMB < 0 || d.Users < 0 {
		return u, ErrNegativeDelta
	}
	u.APICalls += d.APICalls
	u.StorageMB += d.StorageMB
	u.Users += d.Users
	return u, nil
}

// Reset returns zeroed counters. Applied exactly on a successful renewal,
// never on an upgrade.
func Reset() Usage {
	return Usage{}
}

// CheckLimits evaluates usage against plan limits and returns one violation
// per dimension where the counter has reached or exceeded a finite limit.
// Dimensions limited with catalog.Unlimited are exempt. Pure function: no
// side effects, empty slice when compliant.
func CheckLimits(u Usage, limits catalog.Limits) []Violation {
	var violations []Violation
	if limits.MaxAPICalls != catalog.Unlimited && u.APICalls >= limits.MaxAPICalls {
		violations = append(violations, Violation{DimensionAPICalls, u.APICalls, limits.MaxAPICalls})
	}
	if limits.MaxStorageMB != catalog.Unlimited && u.StorageMB >= limits.MaxStorageMB {
		violations = append(violations, Violation{DimensionStorageMB, u.StorageMB, limits.MaxStorageMB})
	}
	if limits.MaxUsers != catalog.Unlimited && u.Users >= limits.MaxUsers {
		violations = append(violations, Violation{DimensionUsers, u.Users, limits.MaxUsers})
	}
	return violations
}
