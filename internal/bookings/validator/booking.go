package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"courtbook/pkg/logger"
	"courtbook/pkg/model"

	"github.com/go-playground/validator/v10"
)

var (
	phoneRegex = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)
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
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()

	if err := v.RegisterValidation("contacts_map", validateContactsMap); err != nil {
		log.Fatal("Failed to register 'contacts_map' validator",
			"error", err,
		)
	}

	log.Info("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func validateContactsMap(fl validator.FieldLevel) bool {
	value := fl.Field()

	if value.IsNil() {
		return false
	}

	contacts, ok := value.Interface().(map[string]string)
	if !ok {
		return false
	}

	n := len(contacts)
	if n < 1 || n > 200 {
		return false
	}

	for name, phone := range contacts {
		if name == "" || !phoneRegex.MatchString(phone) {
			return false
		}
	}
	return true
}

func (v *BookingValidator) Validate(booking *model.Booking) error {
	if err := v.validate.Struct(booking); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if !booking.EndTime.After(booking.StartTime) {
		return ValidationErrors{
			ValidationError{
				Field:   "EndTime",
				Message: "end_time must be after start_time",
			},
		}
	}

	return nil
}

func (v *BookingValidator) ValidateUpdate(update *model.BookingUpdate) error {
	if err := v.validate.Struct(update); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if update.StartTime != nil && update.EndTime != nil {
		if !update.EndTime.After(*update.StartTime) {
			return ValidationErrors{
				ValidationError{
					Field:   "EndTime",
					Message: "end_time must be after start_time",
				},
			}
		}
	}

	return nil
}

// ValidateRecurrence checks the recurrence fields of a booking request.
// The until date must parse as RFC 3339 or as a bare date (2026-03-31).
// Non-recurring requests are rejected; callers must branch on Recurring
// before asking for a rule.
func (v *BookingValidator) ValidateRecurrence(req *model.BookingRequest) (*model.RecurrenceRule, error) {
	if !req.Recurring {
		return nil, ValidationErrors{
			ValidationError{
				Field:   "Recurring",
				Message: "recurring must be true for a series request",
			},
		}
	}

	if req.RecurringPattern == "" {
		return nil, ValidationErrors{
			ValidationError{
				Field:   "RecurringPattern",
				Message: "recurring_pattern is required for recurring bookings",
			},
		}
	}

	if req.RecurringUntil == "" {
		return nil, ValidationErrors{
			ValidationError{
				Field:   "RecurringUntil",
				Message: "recurring_until is required for recurring bookings",
			},
		}
	}

	until, err := parseUntil(req.RecurringUntil)
	if err != nil {
		return nil, ValidationErrors{
			ValidationError{
				Field:   "RecurringUntil",
				Message: "recurring_until must be RFC3339 or YYYY-MM-DD",
			},
		}
	}

	return &model.RecurrenceRule{
		Pattern: req.RecurringPattern,
		Until:   until,
	}, nil
}

func parseUntil(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "uuid4":
			message = fmt.Sprintf("%s must be a valid UUID", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", err.Field(), err.Param())
		case "contacts_map":
			message = fmt.Sprintf("%s must map non-empty names to E.164 phone numbers (1-200 entries)", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
