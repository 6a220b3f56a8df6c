package validator

import (
	"errors"
	"fmt"

	"courtbook/pkg/logger"
	"courtbook/pkg/model"

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
	msg := "validation failed:"
	for _, e := range v {
		msg += fmt.Sprintf(" [%s]", e.Error())
	}
	return msg
}

type FacilityValidator struct {
	validate *validator.Validate
	log      *logger.Logger
}

func NewFacilityValidator(log *logger.Logger) *FacilityValidator {
	return &FacilityValidator{
		validate: validator.New(),
		log:      log,
	}
}

func (v *FacilityValidator) Validate(facility *model.Facility) error {
	if err := v.validate.Struct(facility); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	return nil
}

func (v *FacilityValidator) ValidateUpdate(updates *model.FacilityUpdate) error {
	if err := v.validate.Struct(updates); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	return nil
}

func (v *FacilityValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		var message string
		switch err.Tag() {
		case "required":
			message = "is required"
		case "min":
			message = fmt.Sprintf("must be at least %s", err.Param())
		case "max":
			message = fmt.Sprintf("must be at most %s", err.Param())
		case "mongodb":
			message = "must be a valid object ID"
		case "e164":
			message = "must be a valid E.164 phone number"
		default:
			message = fmt.Sprintf("failed validation rule '%s'", err.Tag())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
