package metadata

// Registry holds the entity configs for the seven CRM object types. It is
// built once at startup and read-only afterwards, so no locking is needed.
type Registry struct {
	byName map[string]*Entity
	byPath map[string]*Entity
	order  []*Entity
}

// NewRegistry returns the static registry. Adding an eighth object type
// means adding one entry here, not new route code.
func NewRegistry() *Registry {
	entities := []*Entity{
		{
			Name:     "company",
			Table:    "crm_companies",
			BasePath: "companies",
			Fields: []Field{
				{Name: "name", Type: "string", Required: true},
				{Name: "industry", Type: "string"},
				{Name: "website", Type: "string"},
				{Name: "phone", Type: "string"},
				{Name: "city", Type: "string"},
				{Name: "country", Type: "string"},
				{Name: "notes", Type: "text"},
			},
			SearchColumns: []string{"name", "industry", "website", "city"},
			DefaultSort:   "created_at",
		},
		{
			Name:     "contact",
			Table:    "crm_contacts",
			BasePath: "contacts",
			Fields: []Field{
				{Name: "first_name", Type: "string", Required: true},
				{Name: "last_name", Type: "string"},
				{Name: "email", Type: "string"},
				{Name: "phone", Type: "string"},
				{Name: "title", Type: "string"},
				{Name: "company_id", Type: "uuid"},
				{Name: "notes", Type: "text"},
			},
			SearchColumns: []string{"first_name", "last_name", "email", "phone"},
			DefaultSort:   "created_at",
		},
		{
			Name:     "deal",
			Table:    "crm_deals",
			BasePath: "deals",
			Fields: []Field{
				{Name: "name", Type: "string", Required: true},
				{Name: "stage", Type: "string", Enum: []string{"lead", "qualified", "proposal", "negotiation", "closed_won", "closed_lost"}},
				{Name: "status", Type: "string", Enum: []string{"open", "won", "lost"}},
				{Name: "amount", Type: "decimal"},
				{Name: "source", Type: "string"},
				{Name: "close_date", Type: "date"},
				{Name: "company_id", Type: "uuid"},
				{Name: "contact_id", Type: "uuid"},
				{Name: "notes", Type: "text"},
			},
			SearchColumns: []string{"name", "status", "stage", "source"},
			DefaultSort:   "created_at",
		},
		{
			Name:     "email",
			Table:    "crm_emails",
			BasePath: "emails",
			Fields: []Field{
				{Name: "subject", Type: "string", Required: true},
				{Name: "body", Type: "text"},
				{Name: "from_address", Type: "string"},
				{Name: "to_address", Type: "string"},
				{Name: "status", Type: "string", Enum: []string{"draft", "sent", "received"}},
				{Name: "contact_id", Type: "uuid"},
				{Name: "sent_at", Type: "timestamp"},
			},
			SearchColumns: []string{"subject", "from_address", "to_address", "status"},
			DefaultSort:   "created_at",
		},
		{
			Name:     "phone_call",
			Table:    "crm_phone_calls",
			BasePath: "phone-calls",
			Fields: []Field{
				{Name: "subject", Type: "string", Required: true},
				{Name: "direction", Type: "string", Enum: []string{"inbound", "outbound"}},
				{Name: "outcome", Type: "string"},
				{Name: "duration_seconds", Type: "int"},
				{Name: "notes", Type: "text"},
				{Name: "contact_id", Type: "uuid"},
				{Name: "called_at", Type: "timestamp"},
			},
			SearchColumns: []string{"subject", "direction", "outcome"},
			DefaultSort:   "created_at",
		},
		{
			Name:     "meeting",
			Table:    "crm_meetings",
			BasePath: "meetings",
			Fields: []Field{
				{Name: "title", Type: "string", Required: true},
				{Name: "location", Type: "string"},
				{Name: "status", Type: "string", Enum: []string{"scheduled", "completed", "canceled"}},
				{Name: "notes", Type: "text"},
				{Name: "starts_at", Type: "timestamp"},
				{Name: "ends_at", Type: "timestamp"},
				{Name: "contact_id", Type: "uuid"},
			},
			SearchColumns: []string{"title", "location", "status"},
			DefaultSort:   "created_at",
		},
		{
			Name:     "task",
			Table:    "crm_tasks",
			BasePath: "tasks",
			Fields: []Field{
				{Name: "title", Type: "string", Required: true},
				{Name: "status", Type: "string", Enum: []string{"todo", "in_progress", "done"}},
				{Name: "priority", Type: "string", Enum: []string{"low", "medium", "high"}},
				{Name: "due_date", Type: "date"},
				{Name: "notes", Type: "text"},
				{Name: "contact_id", Type: "uuid"},
			},
			SearchColumns: []string{"title", "status", "priority"},
			DefaultSort:   "created_at",
		},
	}

	r := &Registry{
		byName: make(map[string]*Entity, len(entities)),
		byPath: make(map[string]*Entity, len(entities)),
		order:  entities,
	}
	for _, e := range entities {
		r.byName[e.Name] = e
		r.byPath[e.BasePath] = e
	}
	return r
}

// Get returns the entity for the given object type, or nil.
func (r *Registry) Get(objectType string) *Entity {
	return r.byName[objectType]
}

// GetByPath returns the entity whose route base path matches, or nil.
func (r *Registry) GetByPath(basePath string) *Entity {
	return r.byPath[basePath]
}

// All returns the entities in registration order.
func (r *Registry) All() []*Entity {
	return r.order
}

// IsObjectType reports whether the given name is a supported object type.
func (r *Registry) IsObjectType(name string) bool {
	return r.byName[name] != nil
}
