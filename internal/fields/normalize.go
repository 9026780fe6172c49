package fields

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/expr-lang/expr"
)

// Normalize coerces and validates a single raw value against one field
// definition. It returns the canonical value, or an error whose message is
// the human-readable reason. Pure: no I/O, no clock.
//
// A nil or empty-string input always normalizes to nil (clears the field)
// before any type-specific check runs, so an empty string is never a type
// error for a number field.
func Normalize(def *Definition, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if s, ok := raw.(string); ok && s == "" {
		return nil, nil
	}

	var value any
	var err error
	switch def.FieldType {
	case TypeText, TypeTextarea:
		value, err = normalizeText(def, raw)
	case TypeNumber, TypeCurrency:
		value, err = normalizeNumber(def, raw)
	case TypeBoolean:
		value, err = normalizeBoolean(raw)
	case TypeDate:
		value, err = normalizeDate(raw, "2006-01-02")
	case TypeDatetime:
		value, err = normalizeDate(raw, time.RFC3339)
	case TypeSelect:
		value, err = normalizeSelect(def, raw)
	case TypeMultiselect:
		value, err = normalizeMultiselect(def, raw)
	default:
		return nil, fmt.Errorf("unsupported field type %q", def.FieldType)
	}
	if err != nil {
		return nil, err
	}

	if def.Validation != nil && def.Validation.Expression != "" {
		if err := checkExpression(def.Validation.Expression, value); err != nil {
			return nil, err
		}
	}
	return value, nil
}

func normalizeText(def *Definition, raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("must be a string")
	}
	if v := def.Validation; v != nil {
		n := float64(len([]rune(s)))
		if v.Min != nil && n < *v.Min {
			return nil, fmt.Errorf("must be at least %d characters", int(*v.Min))
		}
		if v.Max != nil && n > *v.Max {
			return nil, fmt.Errorf("must be at most %d characters", int(*v.Max))
		}
		if err := checkPattern(v.Pattern, s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func normalizeNumber(def *Definition, raw any) (any, error) {
	n, err := toNumber(raw)
	if err != nil {
		return nil, err
	}
	if v := def.Validation; v != nil {
		if v.Min != nil && n < *v.Min {
			return nil, fmt.Errorf("must be at least %s", formatNumber(*v.Min))
		}
		if v.Max != nil && n > *v.Max {
			return nil, fmt.Errorf("must be at most %s", formatNumber(*v.Max))
		}
		if err := checkPattern(v.Pattern, formatNumber(n)); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func normalizeBoolean(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		// Only the literal strings are accepted; no falsy coercion.
		if v == "true" {
			return true, nil
		}
		if v == "false" {
			return false, nil
		}
	}
	return nil, fmt.Errorf("must be a boolean")
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func normalizeDate(raw any, layout string) (any, error) {
	var t time.Time
	switch v := raw.(type) {
	case time.Time:
		t = v
	case string:
		var err error
		t, err = parseDate(v)
		if err != nil {
			return nil, fmt.Errorf("must be a valid date")
		}
	default:
		return nil, fmt.Errorf("must be a valid date")
	}
	return t.UTC().Format(layout), nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func normalizeSelect(def *Definition, raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("must be a string")
	}
	if allowed := def.OptionValues(); allowed != nil && !contains(allowed, s) {
		return nil, fmt.Errorf("must be one of: %s", strings.Join(allowed, ", "))
	}
	return s, nil
}

func normalizeMultiselect(def *Definition, raw any) (any, error) {
	var elems []any
	switch v := raw.(type) {
	case []any:
		elems = v
	case []string:
		for _, s := range v {
			elems = append(elems, s)
		}
	default:
		// A scalar becomes a one-element array.
		elems = []any{raw}
	}

	allowed := def.OptionValues()
	values := make([]string, 0, len(elems))
	for _, el := range elems {
		s := stringify(el)
		if allowed != nil && !contains(allowed, s) {
			return nil, fmt.Errorf("must be one of: %s", strings.Join(allowed, ", "))
		}
		values = append(values, s)
	}
	return values, nil
}

func checkPattern(pattern, s string) error {
	if pattern == "" {
		return nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("has an invalid pattern rule")
	}
	if !re.MatchString(s) {
		return fmt.Errorf("does not match pattern %s", pattern)
	}
	return nil
}

func checkExpression(expression string, value any) error {
	program, err := expr.Compile(expression, expr.AsBool())
	if err != nil {
		return fmt.Errorf("has an invalid expression rule")
	}
	out, err := expr.Run(program, map[string]any{"value": value})
	if err != nil {
		return fmt.Errorf("does not satisfy %s", expression)
	}
	if ok, _ := out.(bool); !ok {
		return fmt.Errorf("does not satisfy %s", expression)
	}
	return nil
}

func toNumber(raw any) (float64, error) {
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("must be a valid number")
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("must be a valid number")
		}
		n = f
	default:
		return 0, fmt.Errorf("must be a valid number")
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("must be a valid number")
	}
	return n, nil
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return formatNumber(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
