package models

import (
	"fmt"
	"time"
)

// nearingExpiryMonths is the window before EndDate in which a cycle is flagged.
const nearingExpiryMonths = 6

// RemainingExpired is returned by RemainingTime once the cycle has ended.
const RemainingExpired = "Expired"

// IsExpired reports whether now is strictly after the cycle's end.
func IsExpired(c *Cycle, now time.Time) bool {
	return now.After(c.EndDate)
}

// IsNearingExpiry reports whether the end falls within six months of now.
// An expired cycle is not nearing expiry.
func IsNearingExpiry(c *Cycle, now time.Time) bool {
	if IsExpired(c, now) {
		return false
	}
	return !now.AddDate(0, nearingExpiryMonths, 0).Before(c.EndDate)
}

// DaysRemaining counts whole days until EndDate; negative once expired.
func DaysRemaining(c *Cycle, now time.Time) int {
	return int(c.EndDate.Sub(now).Hours() / 24)
}

// RemainingTime renders the time left in the largest sensible unit.
func RemainingTime(c *Cycle, now time.Time) string {
	if IsExpired(c, now) {
		return RemainingExpired
	}
	days := DaysRemaining(c, now)
	switch {
	case days > 365:
		return fmt.Sprintf("%dy, %dd", days/365, days%365)
	case days > 30:
		return fmt.Sprintf("%d months", days/30)
	default:
		return fmt.Sprintf("%d days", days)
	}
}

// ExpiryStatus is the evaluated, human-facing status of a cycle.
type ExpiryStatus struct {
	Remaining     string `json:"remaining"`
	DaysRemaining int    `json:"days_remaining"`
	NearingExpiry bool   `json:"nearing_expiry"`
	Expired       bool   `json:"expired"`
}

// Evaluate computes every status field for c at now.
func Evaluate(c *Cycle, now time.Time) ExpiryStatus {
	return ExpiryStatus{
		Remaining:     RemainingTime(c, now),
		DaysRemaining: DaysRemaining(c, now),
		NearingExpiry: IsNearingExpiry(c, now),
		Expired:       IsExpired(c, now),
	}
}
