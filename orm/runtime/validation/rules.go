package validation

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// String returns a rule builder for a string column. Both string and *string
// record values are accepted; a nil pointer counts as absent.
func String(field string) *StringRule {
	return &StringRule{field: field}
}

// StringRule describes constraints on a string column.
type StringRule struct {
	field    string
	required bool
	minLen   int
	maxLen   int
}

// Required rejects absent, nil and empty values.
func (b *StringRule) Required() *StringRule {
	b.required = true
	return b
}

// MinLen enforces a minimum rune length on present values.
func (b *StringRule) MinLen(n int) *StringRule {
	b.minLen = max(n, 0)
	return b
}

// MaxLen enforces a maximum rune length on present values. Zero means no limit.
func (b *StringRule) MaxLen(n int) *StringRule {
	b.maxLen = max(n, 0)
	return b
}

// Validate implements Rule.
func (b *StringRule) Validate(_ context.Context, subject Subject) error {
	raw, ok := subject.Record[b.field]
	var value string
	present := false
	if ok {
		switch v := raw.(type) {
		case string:
			value, present = v, true
		case *string:
			if v != nil {
				value, present = *v, true
			}
		case nil:
		default:
			return FieldError{Field: b.field, Message: "must be a string"}
		}
	}
	if !present || value == "" {
		if b.required {
			return FieldError{Field: b.field, Message: "is required"}
		}
		return nil
	}
	length := utf8.RuneCountInString(value)
	if b.minLen > 0 && length < b.minLen {
		return FieldError{Field: b.field, Message: fmt.Sprintf("must be at least %d characters", b.minLen)}
	}
	if b.maxLen > 0 && length > b.maxLen {
		return FieldError{Field: b.field, Message: fmt.Sprintf("must be at most %d characters", b.maxLen)}
	}
	return nil
}

// Int returns a rule builder for an integer column.
func Int(field string) *IntRule {
	return &IntRule{field: field}
}

// IntRule describes bounds on an integer column.
type IntRule struct {
	field string
	min   *int64
	max   *int64
}

// Min sets the inclusive lower bound.
func (b *IntRule) Min(n int64) *IntRule {
	b.min = &n
	return b
}

// Max sets the inclusive upper bound.
func (b *IntRule) Max(n int64) *IntRule {
	b.max = &n
	return b
}

// Validate implements Rule. Absent values pass.
func (b *IntRule) Validate(_ context.Context, subject Subject) error {
	raw, ok := subject.Record[b.field]
	if !ok || raw == nil {
		return nil
	}
	var value int64
	switch v := raw.(type) {
	case int:
		value = int64(v)
	case int32:
		value = int64(v)
	case int64:
		value = v
	case *int64:
		if v == nil {
			return nil
		}
		value = *v
	default:
		return FieldError{Field: b.field, Message: "must be an integer"}
	}
	if b.min != nil && value < *b.min {
		return FieldError{Field: b.field, Message: fmt.Sprintf("must be at least %d", *b.min)}
	}
	if b.max != nil && value > *b.max {
		return FieldError{Field: b.field, Message: fmt.Sprintf("must be at most %d", *b.max)}
	}
	return nil
}

// Struct validates the mutation input against its `validate` struct tags.
// Inputs that are not structs are ignored.
func Struct(v *validator.Validate) Rule {
	if v == nil {
		v = validator.New(validator.WithRequiredStructEnabled())
	}
	return RuleFunc(func(_ context.Context, subject Subject) error {
		if subject.Input == nil {
			return nil
		}
		err := v.Struct(subject.Input)
		if _, ok := err.(*validator.InvalidValidationError); ok {
			return nil
		}
		return err
	})
}
