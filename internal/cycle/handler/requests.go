package handler

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"revalidation/internal/cycle/models"
	dErrors "revalidation/pkg/domain-errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// InitializeCycleRequest seeds a subject's first cycle. ExpiryDate is a
// calendar date (YYYY-MM-DD) interpreted in UTC.
type InitializeCycleRequest struct {
	Role                   string  `json:"role" validate:"required,max=200"`
	ContractedHoursPerWeek float64 `json:"contracted_hours_per_week" validate:"gte=0,lte=168"`
	WorkSetting            string  `json:"work_setting" validate:"max=200"`
	ScopeOfPractice        string  `json:"scope_of_practice" validate:"max=2000"`
	RegistrationBody       string  `json:"registration_body" validate:"required,max=200"`
	RegistrationNumber     string  `json:"registration_number" validate:"required,max=64"`
	ExpiryDate             string  `json:"expiry_date" validate:"required,datetime=2006-01-02"`
}

func (r InitializeCycleRequest) Validate() error {
	return validationError(validate.Struct(r))
}

func (r InitializeCycleRequest) ToMetrics() models.CarryForwardMetrics {
	expiry, _ := time.ParseInLocation(time.DateOnly, r.ExpiryDate, time.UTC)
	return models.CarryForwardMetrics{
		Role:                   strings.TrimSpace(r.Role),
		ContractedHoursPerWeek: r.ContractedHoursPerWeek,
		WorkSetting:            strings.TrimSpace(r.WorkSetting),
		ScopeOfPractice:        strings.TrimSpace(r.ScopeOfPractice),
		RegistrationBody:       strings.TrimSpace(r.RegistrationBody),
		RegistrationNumber:     strings.TrimSpace(r.RegistrationNumber),
		ExpiryDate:             expiry,
	}
}

// CompleteCycleRequest carries the optional external submission reference.
type CompleteCycleRequest struct {
	Reference string `json:"submission_reference" validate:"max=200"`
}

func (r CompleteCycleRequest) Validate() error {
	return validationError(validate.Struct(r))
}

type ReconcileRequest struct {
	DryRun bool `json:"dry_run"`
}

// validationError reports the first failing field by its JSON name.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return dErrors.New(dErrors.CodeValidation, fieldMessage(fe))
	}
	return dErrors.Wrap(err, dErrors.CodeValidation, "invalid request")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "datetime":
		return fe.Field() + " must be a date in YYYY-MM-DD format"
	case "max":
		return fe.Field() + " is too long"
	case "gte", "lte":
		return fe.Field() + " must be between 0 and 168"
	default:
		return fe.Field() + " is invalid"
	}
}
