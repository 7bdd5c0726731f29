package entity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	apperrors "media-contacts/backend/pkg/errors"
)

// DateLayout is the external form of calendar dates
const DateLayout = "2006-01-02"

// UIDField is the identity property every node and edge carries
const UIDField = "uid"

// ParseDate converts an ISO-8601 calendar date into the store's date type
func ParseDate(field string, v any) (any, error) {
	switch d := v.(type) {
	case nil:
		return nil, nil
	case neo4j.Date:
		return d, nil
	case time.Time:
		return DateOf(d), nil
	case string:
		t, err := time.Parse(DateLayout, strings.TrimSpace(d))
		if err != nil {
			return nil, apperrors.NewValidationError(field, fmt.Sprintf("expected a date like 2006-01-02, got %q", d))
		}
		return DateOf(t), nil
	}
	return nil, apperrors.NewValidationError(field, fmt.Sprintf("expected a date string, got %T", v))
}

// DateOf truncates t to its calendar date
func DateOf(t time.Time) neo4j.Date {
	y, m, d := t.Date()
	return neo4j.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// ParseDateTime converts an RFC 3339 timestamp, or a bare date taken as
// midnight UTC, into a time the driver stores as DateTime
func ParseDateTime(field string, v any) (any, error) {
	switch d := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return d, nil
	case string:
		s := strings.TrimSpace(d)
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t, nil
		}
		if t, err := time.Parse(DateLayout, s); err == nil {
			return t.UTC(), nil
		}
		return nil, apperrors.NewValidationError(field, fmt.Sprintf("expected an RFC 3339 timestamp, got %q", d))
	}
	return nil, apperrors.NewValidationError(field, fmt.Sprintf("expected a timestamp string, got %T", v))
}

// Scalar checks that v can be stored as a property value and converts
// JSON numbers to int64 or float64
func Scalar(field string, v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool, int, int32, int64, float32, float64, time.Time, neo4j.Date, neo4j.LocalDateTime:
		return val, nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, apperrors.NewValidationError(field, fmt.Sprintf("invalid number %q", val.String()))
		}
		return f, nil
	case []string:
		return val, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			s, err := Scalar(field, item)
			if err != nil {
				return nil, err
			}
			if _, nested := s.([]any); nested {
				return nil, apperrors.NewValidationError(field, "nested lists cannot be stored")
			}
			out[i] = s
		}
		return out, nil
	}
	return nil, apperrors.NewValidationError(field, fmt.Sprintf("unsupported value of type %T", v))
}

// normalize prepares caller properties for storage. The uid and the
// creation stamp are server-assigned and stripped; values are checked and
// date fields are parsed. With create set, every required field must be
// present and non-blank.
func (s Schema) normalize(props map[string]any, create bool) (map[string]any, error) {
	out := make(map[string]any, len(props))
	for key, v := range props {
		if key == UIDField || (s.CreatedField != "" && key == s.CreatedField) {
			continue
		}
		if strings.TrimSpace(key) == "" {
			return nil, apperrors.NewValidationError(key, "property names must not be blank")
		}

		var (
			val any
			err error
		)
		switch {
		case s.isDate(key):
			val, err = ParseDate(key, v)
		case s.isDateTime(key):
			val, err = ParseDateTime(key, v)
		default:
			val, err = Scalar(key, v)
		}
		if err != nil {
			return nil, err
		}

		if s.isRequired(key) && isBlank(val) {
			return nil, apperrors.NewValidationError(key, "is required")
		}
		out[key] = val
	}

	if create {
		for _, field := range s.Required {
			if _, ok := out[field]; !ok {
				return nil, apperrors.NewValidationError(field, "is required")
			}
		}
	}
	return out, nil
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// ExportProperties renders store values in their external form:
// dates as "2006-01-02" and instants as RFC 3339.
func ExportProperties(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = exportValue(v)
	}
	return out
}

func exportValue(v any) any {
	switch val := v.(type) {
	case neo4j.Date:
		return val.Time().Format(DateLayout)
	case neo4j.LocalDateTime:
		return val.Time().Format("2006-01-02T15:04:05")
	case time.Time:
		return val.Format(time.RFC3339)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = exportValue(item)
		}
		return out
	}
	return v
}
