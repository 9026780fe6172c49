package metadata

import "testing"

func TestRegistry_Lookups(t *testing.T) {
	reg := NewRegistry()

	if len(reg.All()) != 7 {
		t.Fatalf("expected 7 entities, got %d", len(reg.All()))
	}

	deal := reg.Get("deal")
	if deal == nil || deal.Table != "crm_deals" {
		t.Fatalf("deal lookup: %+v", deal)
	}
	if reg.GetByPath("phone-calls") == nil {
		t.Fatal("phone_call should be routable at phone-calls")
	}
	if reg.Get("invoice") != nil || reg.GetByPath("invoices") != nil {
		t.Fatal("unknown object types must not resolve")
	}
	if !reg.IsObjectType("task") || reg.IsObjectType("tasks") {
		t.Fatal("IsObjectType uses object names, not base paths")
	}
}

func TestEntity_Columns(t *testing.T) {
	contact := NewRegistry().Get("contact")

	cols := contact.Columns()
	if cols[0] != "id" || cols[1] != "tenant_id" {
		t.Fatalf("id and tenant_id must lead: %v", cols)
	}
	last := cols[len(cols)-3:]
	if last[0] != "custom_fields" || last[1] != "created_at" || last[2] != "updated_at" {
		t.Fatalf("trailing system columns wrong: %v", cols)
	}

	if !contact.HasField("first_name") || contact.HasField("tenant_id") {
		t.Fatal("HasField covers configured fields only")
	}

	if _, err := contact.ColumnType("first_name"); err != nil {
		t.Fatalf("column type: %v", err)
	}
	if _, err := contact.ColumnType("nope"); err == nil {
		t.Fatal("unknown column should error")
	}
}
