package admin_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"atelier-backend/internal/admin"
	"atelier-backend/internal/config"
	"atelier-backend/internal/engine"
	"atelier-backend/internal/fields"
	"atelier-backend/internal/metadata"
	"atelier-backend/internal/store"
)

const tenantHeader = "X-Test-Tenant"

func newTestApp(t *testing.T) (*fiber.App, *store.Store) {
	t.Helper()
	ctx := context.Background()

	s, err := store.New(ctx, config.DatabaseConfig{
		Driver: "sqlite",
		Path:   t.TempDir(),
		Name:   "test",
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(s.Close)

	registry := metadata.NewRegistry()
	if err := s.Bootstrap(ctx, registry); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var appErr *engine.AppError
			if errors.As(err, &appErr) {
				return c.Status(appErr.Status).JSON(engine.ErrorResponse{Error: appErr})
			}
			return c.Status(500).JSON(engine.ErrorResponse{
				Error: &engine.AppError{Code: "INTERNAL_ERROR", Message: err.Error()},
			})
		},
	})
	tenantMW := func(c *fiber.Ctx) error {
		if tenant := c.Get(tenantHeader); tenant != "" {
			c.Locals("tenant_id", tenant)
		}
		return c.Next()
	}
	admin.RegisterAdminRoutes(app, admin.NewHandler(fields.NewStore(s), registry), tenantMW)
	return app, s
}

func do(t *testing.T, app *fiber.App, tenant, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tenant != "" {
		req.Header.Set(tenantHeader, tenant)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	var decoded map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode response %s: %v", raw, err)
		}
	}
	return resp.StatusCode, decoded
}

func TestDefinitionAPI_Lifecycle(t *testing.T) {
	app, _ := newTestApp(t)
	tenant := uuid.New().String()

	payload := fiber.Map{
		"objectType": "deal",
		"fieldKey":   "renewal_risk",
		"fieldLabel": "Renewal Risk",
		"fieldType":  "select",
		"required":   true,
		"options": []fiber.Map{
			{"label": "Low", "value": "low"},
			{"label": "High", "value": "high"},
		},
	}

	status, body := do(t, app, tenant, "POST", "/crm/custom-fields/", payload)
	if status != 201 {
		t.Fatalf("create failed: %d %v", status, body)
	}
	created := body["data"].(map[string]any)
	id := created["id"].(string)
	if created["isActive"] != true {
		t.Fatalf("isActive should default to true: %v", created)
	}

	// Same natural key again: update in place, same id.
	payload["fieldLabel"] = "Churn Risk"
	status, body = do(t, app, tenant, "POST", "/crm/custom-fields/", payload)
	if status != 201 {
		t.Fatalf("re-post failed: %d %v", status, body)
	}
	if again := body["data"].(map[string]any); again["id"] != id || again["fieldLabel"] != "Churn Risk" {
		t.Fatalf("upsert should update in place: %v", again)
	}

	status, body = do(t, app, tenant, "GET", "/crm/custom-fields/deal", nil)
	if status != 200 {
		t.Fatalf("list failed: %d %v", status, body)
	}
	if defs := body["data"].([]any); len(defs) != 1 {
		t.Fatalf("expected one definition, got %d", len(defs))
	}

	status, body = do(t, app, tenant, "PUT", "/crm/custom-fields/"+id, fiber.Map{
		"isActive":   false,
		"orderIndex": 3,
	})
	if status != 200 {
		t.Fatalf("patch failed: %d %v", status, body)
	}
	if patched := body["data"].(map[string]any); patched["isActive"] != false || patched["orderIndex"] != 3.0 {
		t.Fatalf("patch not applied: %v", patched)
	}

	// Inactive definitions drop out of the default listing.
	status, body = do(t, app, tenant, "GET", "/crm/custom-fields/deal", nil)
	if status != 200 {
		t.Fatalf("list failed: %d %v", status, body)
	}
	if defs := body["data"].([]any); len(defs) != 0 {
		t.Fatalf("inactive definition should be hidden, got %d", len(defs))
	}
	status, body = do(t, app, tenant, "GET", "/crm/custom-fields/deal?includeInactive=true", nil)
	if status != 200 {
		t.Fatalf("list failed: %d %v", status, body)
	}
	if defs := body["data"].([]any); len(defs) != 1 {
		t.Fatalf("includeInactive should show it, got %d", len(defs))
	}

	status, body = do(t, app, tenant, "DELETE", "/crm/custom-fields/"+id, nil)
	if status != 200 {
		t.Fatalf("delete failed: %d %v", status, body)
	}
	status, _ = do(t, app, tenant, "DELETE", "/crm/custom-fields/"+id, nil)
	if status != 404 {
		t.Fatalf("second delete should 404, got %d", status)
	}
}

func TestDefinitionAPI_UnsupportedObjectType(t *testing.T) {
	app, _ := newTestApp(t)
	tenant := uuid.New().String()

	status, body := do(t, app, tenant, "GET", "/crm/custom-fields/invoices", nil)
	if status != 400 {
		t.Fatalf("expected 400 for unknown object type, got %d: %v", status, body)
	}

	status, body = do(t, app, tenant, "POST", "/crm/custom-fields/", fiber.Map{
		"objectType": "invoice",
		"fieldKey":   "po_number",
		"fieldLabel": "PO Number",
		"fieldType":  "text",
	})
	if status != 400 {
		t.Fatalf("expected 400, got %d: %v", status, body)
	}
}

func TestDefinitionAPI_InvalidDefinitionRejected(t *testing.T) {
	app, _ := newTestApp(t)
	tenant := uuid.New().String()

	tests := []struct {
		name    string
		payload fiber.Map
	}{
		{"bad field key", fiber.Map{"objectType": "deal", "fieldKey": "Renewal Risk", "fieldLabel": "X", "fieldType": "text"}},
		{"unknown field type", fiber.Map{"objectType": "deal", "fieldKey": "x", "fieldLabel": "X", "fieldType": "json"}},
		{"options on a text field", fiber.Map{"objectType": "deal", "fieldKey": "x", "fieldLabel": "X", "fieldType": "text", "options": []fiber.Map{{"label": "A", "value": "a"}}}},
		{"missing label", fiber.Map{"objectType": "deal", "fieldKey": "x", "fieldType": "text"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, app, tenant, "POST", "/crm/custom-fields/", tt.payload)
			if status != 400 {
				t.Fatalf("expected 400, got %d: %v", status, body)
			}
		})
	}
}

func TestDefinitionAPI_StoreFailureIs500(t *testing.T) {
	app, s := newTestApp(t)
	tenant := uuid.New().String()

	status, body := do(t, app, tenant, "POST", "/crm/custom-fields/", fiber.Map{
		"objectType": "deal",
		"fieldKey":   "risk",
		"fieldLabel": "Risk",
		"fieldType":  "text",
	})
	if status != 201 {
		t.Fatalf("create failed: %d %v", status, body)
	}
	id := body["data"].(map[string]any)["id"].(string)

	// A dead database is not the client's fault.
	s.Close()

	status, body = do(t, app, tenant, "PUT", "/crm/custom-fields/"+id, fiber.Map{"fieldLabel": "X"})
	if status != 500 {
		t.Fatalf("store failure should be 500, got %d: %v", status, body)
	}
	status, body = do(t, app, tenant, "POST", "/crm/custom-fields/", fiber.Map{
		"objectType": "deal",
		"fieldKey":   "other",
		"fieldLabel": "Other",
		"fieldType":  "text",
	})
	if status != 500 {
		t.Fatalf("store failure should be 500, got %d: %v", status, body)
	}
}

func TestDefinitionAPI_TenantScoped(t *testing.T) {
	app, _ := newTestApp(t)
	tenantA := uuid.New().String()
	tenantB := uuid.New().String()

	status, body := do(t, app, tenantA, "POST", "/crm/custom-fields/", fiber.Map{
		"objectType": "contact",
		"fieldKey":   "newsletter_opt_in",
		"fieldLabel": "Newsletter",
		"fieldType":  "boolean",
	})
	if status != 201 {
		t.Fatalf("create failed: %d %v", status, body)
	}
	id := body["data"].(map[string]any)["id"].(string)

	status, body = do(t, app, tenantB, "GET", "/crm/custom-fields/contact", nil)
	if status != 200 {
		t.Fatalf("list failed: %d %v", status, body)
	}
	if defs := body["data"].([]any); len(defs) != 0 {
		t.Fatalf("tenant B should see nothing, got %d", len(defs))
	}

	if status, _ := do(t, app, tenantB, "PUT", "/crm/custom-fields/"+id, fiber.Map{"fieldLabel": "X"}); status != 404 {
		t.Fatalf("cross-tenant patch should 404, got %d", status)
	}
	if status, _ := do(t, app, tenantB, "DELETE", "/crm/custom-fields/"+id, nil); status != 404 {
		t.Fatalf("cross-tenant delete should 404, got %d", status)
	}
}
