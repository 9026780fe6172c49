package fields

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// FieldType is the discriminant for custom field normalization.
type FieldType string

const (
	TypeText        FieldType = "text"
	TypeTextarea    FieldType = "textarea"
	TypeNumber      FieldType = "number"
	TypeCurrency    FieldType = "currency"
	TypeBoolean     FieldType = "boolean"
	TypeDate        FieldType = "date"
	TypeDatetime    FieldType = "datetime"
	TypeSelect      FieldType = "select"
	TypeMultiselect FieldType = "multiselect"
)

var fieldTypes = map[FieldType]bool{
	TypeText: true, TypeTextarea: true, TypeNumber: true, TypeCurrency: true,
	TypeBoolean: true, TypeDate: true, TypeDatetime: true, TypeSelect: true,
	TypeMultiselect: true,
}

// IsValid reports whether t is one of the supported field types.
func (t FieldType) IsValid() bool {
	return fieldTypes[t]
}

// Definition describes one tenant-defined extra field on one object type.
// (tenantID, objectType, fieldKey) is the natural key; ID is synthetic.
type Definition struct {
	ID           string      `json:"id"`
	TenantID     string      `json:"-"`
	ObjectType   string      `json:"objectType"`
	FieldKey     string      `json:"fieldKey"`
	FieldLabel   string      `json:"fieldLabel"`
	FieldType    FieldType   `json:"fieldType"`
	Description  string      `json:"description,omitempty"`
	Required     bool        `json:"required"`
	Options      []Option    `json:"options,omitempty"`
	Validation   *Validation `json:"validation,omitempty"`
	DefaultValue any         `json:"defaultValue,omitempty"`
	OrderIndex   int         `json:"orderIndex"`
	IsActive     bool        `json:"isActive"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// Option is one selectable value for select/multiselect fields.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Validation holds the optional per-field rules. Min and Max mean character
// counts for text types and numeric bounds for number types. Expression is
// an expr-lang predicate over `value` that must evaluate to true.
type Validation struct {
	Min        *float64 `json:"min,omitempty"`
	Max        *float64 `json:"max,omitempty"`
	Pattern    string   `json:"pattern,omitempty"`
	Expression string   `json:"expression,omitempty"`
}

var fieldKeyRe = regexp.MustCompile(`^[a-z0-9_]+$`)

// ErrInvalidDefinition marks a definition payload rejected by its own shape
// checks, so callers can tell a bad request from a storage failure.
var ErrInvalidDefinition = errors.New("invalid definition")

func invalidDefinition(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidDefinition, fmt.Sprintf(format, args...))
}

// CheckDefinition validates the definition's own shape before it is stored.
func CheckDefinition(d *Definition) error {
	if !fieldKeyRe.MatchString(d.FieldKey) {
		return invalidDefinition("fieldKey must match ^[a-z0-9_]+$, got %q", d.FieldKey)
	}
	if d.FieldLabel == "" {
		return invalidDefinition("fieldLabel is required")
	}
	if !d.FieldType.IsValid() {
		return invalidDefinition("unsupported fieldType %q", d.FieldType)
	}
	if len(d.Options) > 0 && d.FieldType != TypeSelect && d.FieldType != TypeMultiselect {
		return invalidDefinition("options are only allowed for select and multiselect fields")
	}
	if d.Validation != nil && d.Validation.Pattern != "" {
		if _, err := regexp.Compile(d.Validation.Pattern); err != nil {
			return invalidDefinition("invalid pattern: %v", err)
		}
	}
	if d.DefaultValue != nil {
		if _, err := Normalize(d, d.DefaultValue); err != nil {
			return invalidDefinition("invalid defaultValue: %v", err)
		}
	}
	return nil
}

// OptionValues returns the allowed values, or nil when any value is allowed.
func (d *Definition) OptionValues() []string {
	if len(d.Options) == 0 {
		return nil
	}
	values := make([]string, len(d.Options))
	for i, o := range d.Options {
		values[i] = o.Value
	}
	return values
}
