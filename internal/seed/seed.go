package seed

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"atelier-backend/internal/auth"
	"atelier-backend/internal/fields"
	"atelier-backend/internal/store"
)

const (
	demoTenantSlug = "demo"
	demoAdminEmail = "admin@demo.test"
	demoAdminPass  = "demo-password"
)

// Run provisions the demo tenant, an admin user, and a starter set of
// custom field definitions. Safe to re-run: the tenant and user are looked
// up by natural key and definitions go through the idempotent upsert.
func Run(ctx context.Context, st *store.Store) error {
	tenantID, err := ensureTenant(ctx, st, "Demo Studio", demoTenantSlug)
	if err != nil {
		return err
	}
	if err := ensureUser(ctx, st, tenantID, demoAdminEmail, demoAdminPass); err != nil {
		return err
	}

	defs := fields.NewStore(st)
	for _, def := range starterDefinitions(tenantID) {
		if _, created, err := defs.Upsert(ctx, def); err != nil {
			return fmt.Errorf("upsert definition %s.%s: %w", def.ObjectType, def.FieldKey, err)
		} else if created {
			log.Printf("seeded custom field %s.%s", def.ObjectType, def.FieldKey)
		}
	}
	return nil
}

func ensureTenant(ctx context.Context, st *store.Store, name, slug string) (string, error) {
	pb := st.Dialect.NewParamBuilder()
	row, err := store.QueryRow(ctx, st.DB,
		fmt.Sprintf("SELECT id FROM tenants WHERE slug = %s", pb.Add(slug)), pb.Params()...)
	if err == nil {
		return fmt.Sprintf("%v", row["id"]), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("find tenant: %w", err)
	}

	id := uuid.New().String()
	pb = st.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf("INSERT INTO tenants (id, name, slug) VALUES (%s, %s, %s)",
		pb.Add(id), pb.Add(name), pb.Add(slug))
	if _, err := store.Exec(ctx, st.DB, sqlStr, pb.Params()...); err != nil {
		return "", fmt.Errorf("insert tenant: %w", err)
	}
	log.Printf("seeded tenant %s", slug)
	return id, nil
}

func ensureUser(ctx context.Context, st *store.Store, tenantID, email, password string) error {
	pb := st.Dialect.NewParamBuilder()
	_, err := store.QueryRow(ctx, st.DB,
		fmt.Sprintf("SELECT id FROM users WHERE email = %s", pb.Add(email)), pb.Params()...)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("find user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	pb = st.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		"INSERT INTO users (id, tenant_id, email, password_hash, roles) VALUES (%s, %s, %s, %s, %s)",
		pb.Add(uuid.New().String()), pb.Add(tenantID), pb.Add(email), pb.Add(hash), pb.Add("admin"))
	if _, err := store.Exec(ctx, st.DB, sqlStr, pb.Params()...); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	log.Printf("seeded user %s", email)
	return nil
}

func starterDefinitions(tenantID string) []*fields.Definition {
	num := func(v float64) *float64 { return &v }
	return []*fields.Definition{
		{
			TenantID:   tenantID,
			ObjectType: "deal",
			FieldKey:   "renewal_risk",
			FieldLabel: "Renewal Risk",
			FieldType:  fields.TypeSelect,
			Options: []fields.Option{
				{Label: "Low", Value: "low"},
				{Label: "Medium", Value: "medium"},
				{Label: "High", Value: "high"},
			},
			Required:   true,
			OrderIndex: 0,
			IsActive:   true,
		},
		{
			TenantID:     tenantID,
			ObjectType:   "deal",
			FieldKey:     "contract_months",
			FieldLabel:   "Contract Length (months)",
			FieldType:    fields.TypeNumber,
			Validation:   &fields.Validation{Min: num(1), Max: num(60)},
			DefaultValue: float64(12),
			OrderIndex:   1,
			IsActive:     true,
		},
		{
			TenantID:     tenantID,
			ObjectType:   "contact",
			FieldKey:     "newsletter_opt_in",
			FieldLabel:   "Newsletter Opt-in",
			FieldType:    fields.TypeBoolean,
			DefaultValue: false,
			OrderIndex:   0,
			IsActive:     true,
		},
		{
			TenantID:   tenantID,
			ObjectType: "contact",
			FieldKey:   "interests",
			FieldLabel: "Interests",
			FieldType:  fields.TypeMultiselect,
			Options: []fields.Option{
				{Label: "Branding", Value: "branding"},
				{Label: "Web Design", Value: "web_design"},
				{Label: "Photography", Value: "photography"},
			},
			OrderIndex: 1,
			IsActive:   true,
		},
		{
			TenantID:    tenantID,
			ObjectType:  "company",
			FieldKey:    "vat_number",
			FieldLabel:  "VAT Number",
			FieldType:   fields.TypeText,
			Description: "Tax registration number",
			Validation:  &fields.Validation{Pattern: `^[A-Z]{2}[0-9A-Z]{2,12}$`},
			OrderIndex:  0,
			IsActive:    true,
		},
		{
			TenantID:   tenantID,
			ObjectType: "task",
			FieldKey:   "estimate_hours",
			FieldLabel: "Estimated Hours",
			FieldType:  fields.TypeNumber,
			Validation: &fields.Validation{Expression: "value > 0 && value <= 200"},
			OrderIndex: 0,
			IsActive:   true,
		},
	}
}
