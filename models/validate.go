package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// NewClassInput is the user-supplied part of a ClassRecord
type NewClassInput struct {
	Name string `json:"name" validate:"required"`
	Time string `json:"time" validate:"required"`
}

type goalInput struct {
	Goal int `validate:"min=0,max=100"`
}

// Normalize trims both fields and validates them. Blank values are rejected.
func (in NewClassInput) Normalize() (NewClassInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Time = strings.TrimSpace(in.Time)
	if err := validate.Struct(in); err != nil {
		return in, toValidationErrors(err)
	}
	return in, nil
}

// ValidateGoal checks that percent lies within [MinGoal, MaxGoal].
func ValidateGoal(percent int) error {
	if err := validate.Struct(goalInput{Goal: percent}); err != nil {
		return toValidationErrors(err)
	}
	return nil
}

func toValidationErrors(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := strings.ToLower(fe.Field())
		var msg string
		switch fe.Tag() {
		case "required":
			msg = "must not be blank"
		case "min":
			msg = "must be at least " + fe.Param()
		case "max":
			msg = "must be at most " + fe.Param()
		default:
			msg = "is invalid"
		}
		out = append(out, ValidationError{Field: field, Message: msg})
	}
	return out
}
