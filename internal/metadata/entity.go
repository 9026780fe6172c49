package metadata

import "fmt"

// Entity binds one CRM object type to its table, fixed-column schema,
// searchable columns, and route base path. Instances live in the static
// registry and are never mutated after startup.
type Entity struct {
	Name          string // object type, e.g. "deal"
	Table         string
	BasePath      string // route segment under /crm, e.g. "deals"
	Fields        []Field
	SearchColumns []string
	DefaultSort   string // column used when no sort param is given
}

// Field describes one fixed column of an entity.
type Field struct {
	Name     string
	Type     string // string, text, int, decimal, boolean, uuid, timestamp, date
	Required bool   // enforced on create only
	Enum     []string
}

// GetField returns a pointer to the field with the given name, or nil.
func (e *Entity) GetField(name string) *Field {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			return &e.Fields[i]
		}
	}
	return nil
}

// HasField returns true if the entity has a fixed column with the given name.
func (e *Entity) HasField(name string) bool {
	return e.GetField(name) != nil
}

// FieldNames returns all fixed column names.
func (e *Entity) FieldNames() []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Name
	}
	return names
}

// Columns returns the full select list for the entity: base columns shared
// by every record plus the entity's fixed columns.
func (e *Entity) Columns() []string {
	cols := []string{"id", "tenant_id"}
	cols = append(cols, e.FieldNames()...)
	return append(cols, "custom_fields", "created_at", "updated_at")
}

// ColumnType returns the portable field type for a column name, including
// the base columns, so DDL generation covers the whole table.
func (e *Entity) ColumnType(name string) (string, error) {
	switch name {
	case "id", "tenant_id":
		return "uuid", nil
	case "custom_fields":
		return "json", nil
	case "created_at", "updated_at":
		return "timestamp", nil
	}
	f := e.GetField(name)
	if f == nil {
		return "", fmt.Errorf("entity %s has no column %s", e.Name, name)
	}
	return f.Type, nil
}
