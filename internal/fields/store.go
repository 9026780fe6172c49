package fields

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"atelier-backend/internal/store"
)

const definitionCols = `id, tenant_id, object_type, field_key, field_label, field_type,
	description, required, options, validation, default_value, order_index, is_active,
	created_at, updated_at`

// Store persists custom field definitions, keyed by the
// (tenant_id, object_type, field_key) unique constraint.
type Store struct {
	db *store.Store
}

func NewStore(db *store.Store) *Store {
	return &Store{db: db}
}

// List returns a tenant's definitions for one object type, ordered by
// (order_index, field_label). Inactive definitions are filtered out after
// the fetch rather than in SQL; the read path never trusts an index for
// correctness.
func (s *Store) List(ctx context.Context, tenantID, objectType string, includeInactive bool) ([]Definition, error) {
	pb := s.db.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		`SELECT %s FROM custom_field_definitions WHERE tenant_id = %s AND object_type = %s
		 ORDER BY order_index, field_label`,
		definitionCols, pb.Add(tenantID), pb.Add(objectType))

	rows, err := store.QueryRows(ctx, s.db.DB, sqlStr, pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	if s.db.Dialect.NeedsBoolFix() {
		store.NormalizeBooleans(rows, []string{"required", "is_active"})
	}

	defs := make([]Definition, 0, len(rows))
	for _, row := range rows {
		def, err := rowToDefinition(row)
		if err != nil {
			return nil, err
		}
		if !includeInactive && !def.IsActive {
			continue
		}
		defs = append(defs, *def)
	}
	return defs, nil
}

// Get returns one definition by id, tenant-scoped.
func (s *Store) Get(ctx context.Context, tenantID, id string) (*Definition, error) {
	pb := s.db.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		`SELECT %s FROM custom_field_definitions WHERE id = %s AND tenant_id = %s`,
		definitionCols, pb.Add(id), pb.Add(tenantID))

	row, err := store.QueryRow(ctx, s.db.DB, sqlStr, pb.Params()...)
	if err != nil {
		return nil, err
	}
	if s.db.Dialect.NeedsBoolFix() {
		store.NormalizeBooleans([]map[string]any{row}, []string{"required", "is_active"})
	}
	return rowToDefinition(row)
}

// Upsert creates the definition, or updates it in place when one already
// exists for the same (tenant, objectType, fieldKey). The second return
// value is true when a new row was inserted. Idempotent, safe to re-run
// from seed scripts.
func (s *Store) Upsert(ctx context.Context, def *Definition) (*Definition, bool, error) {
	if err := CheckDefinition(def); err != nil {
		return nil, false, err
	}

	pb := s.db.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		`SELECT id FROM custom_field_definitions
		 WHERE tenant_id = %s AND object_type = %s AND field_key = %s`,
		pb.Add(def.TenantID), pb.Add(def.ObjectType), pb.Add(def.FieldKey))
	existing, err := store.QueryRow(ctx, s.db.DB, sqlStr, pb.Params()...)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("find definition by key: %w", err)
	}

	if existing != nil {
		id := fmt.Sprintf("%v", existing["id"])
		updated, err := s.writeUpdate(ctx, def.TenantID, id, def)
		return updated, false, err
	}

	def.ID = uuid.New().String()
	options, validation, defaultValue, err := encodeDefinitionJSON(def)
	if err != nil {
		return nil, false, err
	}

	pb = s.db.Dialect.NewParamBuilder()
	now := s.db.Dialect.NowExpr()
	sqlStr = fmt.Sprintf(
		`INSERT INTO custom_field_definitions
		 (id, tenant_id, object_type, field_key, field_label, field_type, description,
		  required, options, validation, default_value, order_index, is_active, created_at, updated_at)
		 VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		pb.Add(def.ID), pb.Add(def.TenantID), pb.Add(def.ObjectType), pb.Add(def.FieldKey),
		pb.Add(def.FieldLabel), pb.Add(string(def.FieldType)), pb.Add(def.Description),
		pb.Add(def.Required), pb.Add(options), pb.Add(validation), pb.Add(defaultValue),
		pb.Add(def.OrderIndex), pb.Add(def.IsActive), now, now)

	if _, err := store.Exec(ctx, s.db.DB, sqlStr, pb.Params()...); err != nil {
		return nil, false, fmt.Errorf("insert definition: %w", s.db.Dialect.MapError(err))
	}

	created, err := s.Get(ctx, def.TenantID, def.ID)
	return created, true, err
}

// Update applies a partial patch to a definition. The natural key
// (objectType, fieldKey) is immutable; everything else can change.
func (s *Store) Update(ctx context.Context, tenantID, id string, patch map[string]any) (*Definition, error) {
	def, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := applyPatch(def, patch); err != nil {
		return nil, err
	}
	if err := CheckDefinition(def); err != nil {
		return nil, err
	}
	return s.writeUpdate(ctx, tenantID, id, def)
}

// Delete hard-deletes a definition. Values already stored on records under
// this field key are left in place; they are simply no longer schema-known.
func (s *Store) Delete(ctx context.Context, tenantID, id string) error {
	pb := s.db.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		`DELETE FROM custom_field_definitions WHERE id = %s AND tenant_id = %s`,
		pb.Add(id), pb.Add(tenantID))
	affected, err := store.Exec(ctx, s.db.DB, sqlStr, pb.Params()...)
	if err != nil {
		return fmt.Errorf("delete definition: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) writeUpdate(ctx context.Context, tenantID, id string, def *Definition) (*Definition, error) {
	options, validation, defaultValue, err := encodeDefinitionJSON(def)
	if err != nil {
		return nil, err
	}

	pb := s.db.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		`UPDATE custom_field_definitions SET
		 field_label = %s, field_type = %s, description = %s, required = %s,
		 options = %s, validation = %s, default_value = %s, order_index = %s,
		 is_active = %s, updated_at = %s
		 WHERE id = %s AND tenant_id = %s`,
		pb.Add(def.FieldLabel), pb.Add(string(def.FieldType)), pb.Add(def.Description),
		pb.Add(def.Required), pb.Add(options), pb.Add(validation), pb.Add(defaultValue),
		pb.Add(def.OrderIndex), pb.Add(def.IsActive), s.db.Dialect.NowExpr(),
		pb.Add(id), pb.Add(tenantID))

	affected, err := store.Exec(ctx, s.db.DB, sqlStr, pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("update definition: %w", err)
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.Get(ctx, tenantID, id)
}

func encodeDefinitionJSON(def *Definition) (options, validation, defaultValue any, err error) {
	opts := def.Options
	if opts == nil {
		opts = []Option{}
	}
	b, err := json.Marshal(opts)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode options: %w", err)
	}
	options = string(b)

	if def.Validation != nil {
		b, err := json.Marshal(def.Validation)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("encode validation: %w", err)
		}
		validation = string(b)
	}

	if def.DefaultValue != nil {
		b, err := json.Marshal(def.DefaultValue)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("encode default value: %w", err)
		}
		defaultValue = string(b)
	}
	return options, validation, defaultValue, nil
}

func rowToDefinition(row map[string]any) (*Definition, error) {
	def := &Definition{
		ID:          asString(row["id"]),
		TenantID:    asString(row["tenant_id"]),
		ObjectType:  asString(row["object_type"]),
		FieldKey:    asString(row["field_key"]),
		FieldLabel:  asString(row["field_label"]),
		FieldType:   FieldType(asString(row["field_type"])),
		Description: asString(row["description"]),
		OrderIndex:  asInt(row["order_index"]),
	}
	def.Required, _ = row["required"].(bool)
	def.IsActive, _ = row["is_active"].(bool)
	def.CreatedAt = asTime(row["created_at"])
	def.UpdatedAt = asTime(row["updated_at"])

	if raw := asString(row["options"]); raw != "" {
		if err := json.Unmarshal([]byte(raw), &def.Options); err != nil {
			return nil, fmt.Errorf("decode options: %w", err)
		}
	}
	if raw := asString(row["validation"]); raw != "" {
		def.Validation = &Validation{}
		if err := json.Unmarshal([]byte(raw), def.Validation); err != nil {
			return nil, fmt.Errorf("decode validation: %w", err)
		}
	}
	if raw := asString(row["default_value"]); raw != "" {
		if err := json.Unmarshal([]byte(raw), &def.DefaultValue); err != nil {
			return nil, fmt.Errorf("decode default value: %w", err)
		}
	}
	return def, nil
}

func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func asInt(v any) int {
	switch val := v.(type) {
	case int64:
		return int(val)
	case int:
		return val
	case float64:
		return int(val)
	default:
		return 0
	}
}

func asTime(v any) time.Time {
	if t, ok := v.(time.Time); ok {
		return t
	}
	return time.Time{}
}
