package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"atelier-backend/internal/metadata"
)

// ValidateFixed checks a fixed-column payload against the entity's schema
// and returns the coerced column values. On create every required column
// must be present and non-null; on update only the supplied keys are
// checked (partial semantics).
func ValidateFixed(entity *metadata.Entity, body map[string]any, isCreate bool) (map[string]any, []ErrorDetail) {
	var errs []ErrorDetail
	values := make(map[string]any, len(body))

	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		field := entity.GetField(key)
		if field == nil {
			errs = append(errs, ErrorDetail{
				Field:   key,
				Rule:    "unknown",
				Message: fmt.Sprintf("Unknown field: %s", key),
			})
			continue
		}
		if body[key] == nil {
			values[key] = nil
			continue
		}
		coerced, err := coerceFixed(field, body[key])
		if err != nil {
			errs = append(errs, ErrorDetail{
				Field:   key,
				Rule:    "type",
				Message: fmt.Sprintf("Invalid value for %s: %v", key, err),
			})
			continue
		}
		values[key] = coerced
	}

	if isCreate {
		for _, f := range entity.Fields {
			if f.Required && values[f.Name] == nil {
				errs = append(errs, ErrorDetail{
					Field:   f.Name,
					Rule:    "required",
					Message: fmt.Sprintf("%s is required", f.Name),
				})
			}
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return values, nil
}

func coerceFixed(field *metadata.Field, raw any) (any, error) {
	switch field.Type {
	case "string", "text":
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("must be a string")
		}
		if len(field.Enum) > 0 && !containsString(field.Enum, s) {
			return nil, fmt.Errorf("must be one of: %s", strings.Join(field.Enum, ", "))
		}
		return s, nil
	case "int":
		switch v := raw.(type) {
		case float64:
			if v != float64(int64(v)) {
				return nil, fmt.Errorf("must be an integer")
			}
			return int64(v), nil
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		}
		return nil, fmt.Errorf("must be an integer")
	case "decimal":
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}
		return nil, fmt.Errorf("must be a number")
	case "boolean":
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("must be a boolean")
		}
		return b, nil
	case "uuid":
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("must be a uuid string")
		}
		if _, err := uuid.Parse(s); err != nil {
			return nil, fmt.Errorf("must be a valid uuid")
		}
		return s, nil
	case "date":
		return coerceTime(raw, "2006-01-02")
	case "timestamp":
		return coerceTime(raw, time.RFC3339)
	default:
		return nil, fmt.Errorf("unsupported column type %q", field.Type)
	}
}

var fixedDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func coerceTime(raw any, layout string) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("must be a date string")
	}
	for _, l := range fixedDateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC().Format(layout), nil
		}
	}
	return nil, fmt.Errorf("must be a valid date")
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
