package models

import (
	"time"

	dErrors "revalidation/pkg/domain-errors"
)

// maxContractedHours bounds weekly hours to the hours in a week.
const maxContractedHours = 168

// CarryForwardMetrics are the profile attributes that stay meaningful across
// cycle boundaries. Values are immutable: Advance returns a new value.
type CarryForwardMetrics struct {
	Role                   string    `json:"role"`
	ContractedHoursPerWeek float64   `json:"contracted_hours_per_week"`
	WorkSetting            string    `json:"work_setting"`
	ScopeOfPractice        string    `json:"scope_of_practice"`
	RegistrationBody       string    `json:"registration_body"`
	RegistrationNumber     string    `json:"registration_number"`
	ExpiryDate             time.Time `json:"expiry_date"`
}

// Validate checks the schema rules that make a metrics value usable as a seed.
func (m CarryForwardMetrics) Validate() error {
	if m.ExpiryDate.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "carry-forward metrics require an expiry date")
	}
	if m.ContractedHoursPerWeek < 0 || m.ContractedHoursPerWeek > maxContractedHours {
		return dErrors.New(dErrors.CodeInvalidInput, "contracted hours per week must be between 0 and 168")
	}
	return nil
}

// Advance moves the expiry date forward by exactly one renewal period and
// leaves every other field unchanged.
func (m CarryForwardMetrics) Advance() CarryForwardMetrics {
	out := m
	out.ExpiryDate = AddRenewalPeriod(m.ExpiryDate)
	return out
}

// SeedFor returns the metrics recorded on a subject's first cycle starting at
// start. A registration that lapses on or before the cycle begins is renewed
// by the cycle, so its expiry is advanced once. Later cycles carry metrics
// forward through Advance only.
func (m CarryForwardMetrics) SeedFor(start time.Time) CarryForwardMetrics {
	if !m.ExpiryDate.After(start) {
		return m.Advance()
	}
	return m
}
