package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError represents a validation failure scoped to a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	if e.Message == "" {
		return e.Field
	}
	return e.Field + ": " + e.Message
}

// Errors aggregates multiple field errors.
type Errors []FieldError

func (errs Errors) Error() string {
	parts := make([]string, len(errs))
	for i, err := range errs {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}

// Fields returns the names of the failing fields in order.
func (errs Errors) Fields() []string {
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Field
	}
	return out
}

func appendErrors(dst Errors, err error) Errors {
	if err == nil {
		return dst
	}
	var multi Errors
	if errors.As(err, &multi) {
		return append(dst, multi...)
	}
	var ferr FieldError
	if errors.As(err, &ferr) {
		return append(dst, ferr)
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return append(dst, fromValidator(verrs)...)
	}
	return append(dst, FieldError{Message: err.Error()})
}

func fromValidator(verrs validator.ValidationErrors) Errors {
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: tagMessage(fe)})
	}
	return out
}

func tagMessage(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		if isString {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		if isString {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	}
	if fe.Param() != "" {
		return fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
	}
	return "failed " + fe.Tag()
}

// Check validates v against its `validate` struct tags and reports the
// violations as Errors.
func Check(validate *validator.Validate, v any) error {
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return err
	}
	return appendErrors(nil, err)
}
