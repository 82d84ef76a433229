package validator

import (
	"errors"
	"fmt"
	"spacedesk/pkg/logger"
	"spacedesk/pkg/model"
	"time"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	return fmt.Sprintf("validation failed: %d error(s)", len(v))
}

// Details renders the errors as a field to message map for API responses.
func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, e := range v {
		details[e.Field] = e.Message
	}
	return details
}

type ReservationValidator struct {
	validate *validator.Validate
	maxTTL   time.Duration
}

// NewReservationValidator builds a validator that rejects TTLs above maxTTL.
func NewReservationValidator(maxTTL time.Duration, log *logger.Logger) *ReservationValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	rv := &ReservationValidator{validate: v, maxTTL: maxTTL}

	if err := v.RegisterValidation("maxttl", rv.validateMaxTTL); err != nil {
		log.Fatal("Failed to register 'maxttl' validator", "error", err)
	}

	log.Debug("Reservation validator initialized", "max_ttl", maxTTL)

	return rv
}

func (v *ReservationValidator) validateMaxTTL(fl validator.FieldLevel) bool {
	return time.Duration(fl.Field().Int())*time.Second <= v.maxTTL
}

func (v *ReservationValidator) Validate(req *model.CreateReservationRequest) error {
	if req == nil {
		return nil
	}
	if err := v.validate.Struct(req); err != nil {
		return v.translate(err)
	}
	return nil
}

func (v *ReservationValidator) ValidateFilter(filter *model.ReservationFilter) error {
	if err := v.validate.Struct(filter); err != nil {
		return v.translate(err)
	}
	return nil
}

func (v *ReservationValidator) translate(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	var out ValidationErrors
	for _, fe := range validationErrs {
		out = append(out, ValidationError{
			Field:   jsonName(fe.Field()),
			Message: v.message(fe),
		})
	}
	return out
}

func (v *ReservationValidator) message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "maxttl":
		return fmt.Sprintf("must be at most %d", int64(v.maxTTL/time.Second))
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

func jsonName(field string) string {
	switch field {
	case "TTLSeconds":
		return "ttlSeconds"
	case "Status":
		return "status"
	default:
		return field
	}
}
