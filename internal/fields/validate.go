package fields

import (
	"context"
	"fmt"
	"sort"
)

// Engine validates a whole custom-fields payload for one record against the
// tenant's active definitions.
type Engine struct {
	defs *Store
}

func NewEngine(defs *Store) *Engine {
	return &Engine{defs: defs}
}

// ValidateOptions control one validation run. EnforceRequired is true only
// on create: an existing record is never retroactively failed for a field
// that became required after it was written. Existing carries the record's
// current custom field values so partial updates merge correctly.
type ValidateOptions struct {
	EnforceRequired bool
	Existing        map[string]any
}

// Result is the outcome of a validation run. Values is the authoritative
// fully-merged map; on success it replaces whatever the caller was about to
// persist. On any error the caller must discard the attempted write.
type Result struct {
	Valid       bool
	Errors      []string
	Values      map[string]any
	Definitions []Definition
}

// Validate fetches the active definitions for (tenant, objectType) and runs
// the normalizer over every provided value. Unknown keys are rejected, not
// silently dropped. Fields absent from the payload keep their existing
// value, fall back to the definition default, or (in enforce-required mode)
// fail when required with no default.
func (e *Engine) Validate(ctx context.Context, tenantID, objectType string, provided map[string]any, opts ValidateOptions) (*Result, error) {
	defs, err := e.defs.List(ctx, tenantID, objectType, false)
	if err != nil {
		return nil, fmt.Errorf("load definitions: %w", err)
	}

	byKey := make(map[string]*Definition, len(defs))
	for i := range defs {
		byKey[defs[i].FieldKey] = &defs[i]
	}

	// Seed from existing values so partial updates keep untouched fields.
	values := make(map[string]any, len(opts.Existing)+len(provided))
	for k, v := range opts.Existing {
		values[k] = v
	}

	var errs []string

	// Sorted keys keep error messages deterministic.
	keys := make([]string, 0, len(provided))
	for k := range provided {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		def, ok := byKey[key]
		if !ok {
			errs = append(errs, fmt.Sprintf("Unknown custom field: %s", key))
			continue
		}
		value, nerr := Normalize(def, provided[key])
		if nerr != nil {
			errs = append(errs, fmt.Sprintf("Invalid value for %s: %s", def.FieldLabel, nerr))
			continue
		}
		values[key] = value
	}

	// Defaults and required-ness apply only to definitions the payload did
	// not address at all. A provided key already got its verdict above; in
	// particular an explicit null is a deliberate clear, not a gap for the
	// default to fill.
	for i := range defs {
		def := &defs[i]
		if _, addressed := provided[def.FieldKey]; addressed {
			continue
		}
		if values[def.FieldKey] != nil {
			continue
		}
		if def.DefaultValue != nil {
			value, nerr := Normalize(def, def.DefaultValue)
			if nerr != nil {
				errs = append(errs, fmt.Sprintf("Invalid value for %s: %s", def.FieldLabel, nerr))
				continue
			}
			values[def.FieldKey] = value
			continue
		}
		if opts.EnforceRequired && def.Required {
			errs = append(errs, fmt.Sprintf("%s is required", def.FieldLabel))
		}
	}

	return &Result{
		Valid:       len(errs) == 0,
		Errors:      errs,
		Values:      values,
		Definitions: defs,
	}, nil
}
