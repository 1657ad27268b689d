package core

// validation.go applies a schema's field constraints to a mapped row.
//
// Every applicable error for a row is collected before returning so the
// caller can report all problems with a row in one pass. A Record is only
// produced when no error was found.

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// FieldError represents a single validation error for a field.
type FieldError struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidateRow validates mapped values against schema. values is keyed by
// field name; missing keys are treated as empty.
func ValidateRow(schema Schema, values map[string]string) (Record, []FieldError) {
	var errs []FieldError
	rec := Record{Schema: schema.Key, Fields: make([]FieldValue, 0, len(schema.Fields))}

	for _, spec := range schema.Fields {
		raw := strings.TrimSpace(values[spec.Name])

		if raw != "" && spec.Normalizer != nil {
			raw = spec.Normalizer(raw)
		}
		if raw == "" && spec.Default != "" {
			raw = spec.Default
		}

		if raw == "" {
			if spec.Required {
				errs = append(errs, FieldError{
					Field:   spec.Name,
					Message: fmt.Sprintf("%s is required", spec.label()),
				})
			}
			rec.Fields = append(rec.Fields, FieldValue{Name: spec.Name})
			continue
		}

		cellErrs := ValidateCell(raw, spec)
		if len(cellErrs) > 0 {
			errs = append(errs, cellErrs...)
			continue
		}

		rec.Fields = append(rec.Fields, FieldValue{Name: spec.Name, Value: typedValue(raw, spec)})
	}

	if len(errs) > 0 {
		return Record{}, errs
	}
	return rec, nil
}

// ValidateCell checks a non-empty value against spec and returns every
// violated constraint.
func ValidateCell(value string, spec FieldSpec) []FieldError {
	var errs []FieldError
	fail := func(msg string) {
		errs = append(errs, FieldError{Field: spec.Name, Value: value, Message: msg})
	}

	n := utf8.RuneCountInString(value)
	if spec.MinLength > 1 && n < spec.MinLength {
		fail(fmt.Sprintf("%s must be at least %d characters", spec.label(), spec.MinLength))
	}
	if spec.MaxLength > 0 && n > spec.MaxLength {
		fail(fmt.Sprintf("%s must be less than %d characters", spec.label(), spec.MaxLength))
	}

	switch spec.Kind {
	case KindEnum:
		if !enumContains(spec.EnumValues, value) {
			fail(fmt.Sprintf("%s must be one of: %s", spec.label(), strings.Join(spec.EnumValues, ", ")))
		}
	case KindDate:
		if _, ok := ParseDate(value); !ok {
			fail("Invalid date format")
		}
	case KindEmail:
		if !IsValidEmail(value) {
			fail("Invalid email address")
		}
	}

	return errs
}

// FormatRowErrors renders errors as "Row N: field: message, field: message".
func FormatRowErrors(row int, errs []string) string {
	return fmt.Sprintf("Row %d: %s", row, strings.Join(errs, ", "))
}

func enumContains(allowed []string, value string) bool {
	for _, v := range allowed {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

// typedValue converts a validated string to the value stored on the record.
func typedValue(raw string, spec FieldSpec) any {
	switch spec.Kind {
	case KindDate:
		t, _ := ParseDate(raw)
		return t
	case KindEnum:
		for _, v := range spec.EnumValues {
			if strings.EqualFold(v, raw) {
				return v
			}
		}
	}
	return raw
}

func (f FieldSpec) label() string {
	if f.Label != "" {
		return f.Label
	}
	if f.Name == "" {
		return "Value"
	}
	words := strings.Split(strings.ReplaceAll(f.Name, "_", " "), " ")
	words[0] = strings.ToUpper(words[0][:1]) + words[0][1:]
	return strings.Join(words, " ")
}
