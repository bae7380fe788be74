package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		validate: validator.New(),
	}
}

// ValidateStruct validates a struct using struct tags
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.validate.Struct(s)
}

// FormatValidationErrors converts validation errors to a single
// user-friendly message
func FormatValidationErrors(err error) string {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	messages := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		case "email":
			messages = append(messages, "Invalid email format")
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of: %s", e.Field(), e.Param()))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s", e.Field(), e.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s", e.Field(), e.Param()))
		case "gte":
			messages = append(messages, fmt.Sprintf("%s must be at least %s", e.Field(), e.Param()))
		case "lte":
			messages = append(messages, fmt.Sprintf("%s must be at most %s", e.Field(), e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}

	return strings.Join(messages, "; ")
}
