package fields

import (
	"encoding/json"
)

// applyPatch merges a partial update payload onto a definition. Keys use
// the API's JSON names. The natural key fields (objectType, fieldKey) and
// the synthetic id are not patchable.
func applyPatch(def *Definition, patch map[string]any) error {
	for key, raw := range patch {
		switch key {
		case "fieldLabel":
			s, ok := raw.(string)
			if !ok {
				return invalidDefinition("fieldLabel must be a string")
			}
			def.FieldLabel = s
		case "fieldType":
			s, ok := raw.(string)
			if !ok {
				return invalidDefinition("fieldType must be a string")
			}
			def.FieldType = FieldType(s)
		case "description":
			s, ok := raw.(string)
			if !ok {
				return invalidDefinition("description must be a string")
			}
			def.Description = s
		case "required":
			b, ok := raw.(bool)
			if !ok {
				return invalidDefinition("required must be a boolean")
			}
			def.Required = b
		case "isActive":
			b, ok := raw.(bool)
			if !ok {
				return invalidDefinition("isActive must be a boolean")
			}
			def.IsActive = b
		case "orderIndex":
			n, ok := raw.(float64)
			if !ok {
				return invalidDefinition("orderIndex must be a number")
			}
			def.OrderIndex = int(n)
		case "options":
			if raw == nil {
				def.Options = nil
				continue
			}
			var opts []Option
			if err := reencode(raw, &opts); err != nil {
				return invalidDefinition("options must be a list of {label, value}: %v", err)
			}
			def.Options = opts
		case "validation":
			if raw == nil {
				def.Validation = nil
				continue
			}
			v := &Validation{}
			if err := reencode(raw, v); err != nil {
				return invalidDefinition("validation must be an object: %v", err)
			}
			def.Validation = v
		case "defaultValue":
			def.DefaultValue = raw
		case "objectType", "fieldKey", "id":
			return invalidDefinition("%s cannot be changed", key)
		default:
			return invalidDefinition("unknown field %q", key)
		}
	}
	return nil
}

// reencode converts a decoded JSON value into a typed struct by
// round-tripping through encoding/json.
func reencode(raw any, target any) error {
	b, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, target)
}
