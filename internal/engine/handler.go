package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"atelier-backend/internal/fields"
	"atelier-backend/internal/metadata"
	"atelier-backend/internal/store"
)

// customFieldsKey is the JSON envelope key carrying the dynamic field map
// on requests and responses.
const customFieldsKey = "customFields"

// Handler serves CRUD for every registered entity through one code path.
// Per-entity behavior comes entirely from the Entity config.
type Handler struct {
	store     *store.Store
	registry  *metadata.Registry
	validator *fields.Engine
}

func NewHandler(s *store.Store, reg *metadata.Registry, validator *fields.Engine) *Handler {
	return &Handler{store: s, registry: reg, validator: validator}
}

// List handles GET /crm/<entity>.
func (h *Handler) List(entity *metadata.Entity) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID, err := tenantFrom(c)
		if err != nil {
			return err
		}

		params, err := ParseListParams(c, entity)
		if err != nil {
			return err
		}

		qr := BuildListSQL(h.store.Dialect, entity, tenantID, params)
		rows, err := store.QueryRows(c.Context(), h.store.DB, qr.SQL, qr.Params...)
		if err != nil {
			return fmt.Errorf("list %s: %w", entity.Name, err)
		}

		cr := BuildCountSQL(h.store.Dialect, entity, tenantID, params)
		countRow, err := store.QueryRow(c.Context(), h.store.DB, cr.SQL, cr.Params...)
		if err != nil {
			return fmt.Errorf("count %s: %w", entity.Name, err)
		}
		total := asInt64(countRow["count"])

		data := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			record, err := presentRecord(row)
			if err != nil {
				return fmt.Errorf("decode %s record: %w", entity.Name, err)
			}
			data = append(data, record)
		}

		totalPages := total / int64(params.PageSize)
		if total%int64(params.PageSize) != 0 {
			totalPages++
		}

		return c.JSON(fiber.Map{
			"data": data,
			"pagination": fiber.Map{
				"page":       params.Page,
				"pageSize":   params.PageSize,
				"total":      total,
				"totalPages": totalPages,
			},
		})
	}
}

// GetByID handles GET /crm/<entity>/:id. A correct id owned by another
// tenant matches nothing and 404s, same as a missing id.
func (h *Handler) GetByID(entity *metadata.Entity) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID, err := tenantFrom(c)
		if err != nil {
			return err
		}
		id := c.Params("id")

		row, err := h.fetchRecord(c.Context(), entity, tenantID, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return NotFoundError(entity.Name, id)
			}
			return fmt.Errorf("get %s/%s: %w", entity.Name, id, err)
		}

		record, err := presentRecord(row)
		if err != nil {
			return fmt.Errorf("decode %s record: %w", entity.Name, err)
		}
		return c.JSON(fiber.Map{"data": record})
	}
}

// Create handles POST /crm/<entity>. Custom fields are validated in
// enforce-required mode: every required definition must end up with a value
// from the payload or its default, or the whole write is refused.
func (h *Handler) Create(entity *metadata.Entity) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID, err := tenantFrom(c)
		if err != nil {
			return err
		}

		body, customFields, err := parseBody(c)
		if err != nil {
			return err
		}

		fixed, fixedErrs := ValidateFixed(entity, body, true)
		if len(fixedErrs) > 0 {
			return ValidationError(fixedErrs)
		}

		result, err := h.validator.Validate(c.Context(), tenantID, entity.Name, customFields, fields.ValidateOptions{
			EnforceRequired: true,
		})
		if err != nil {
			return fmt.Errorf("validate custom fields for %s: %w", entity.Name, err)
		}
		if !result.Valid {
			return FieldValidationError(result.Errors)
		}

		customJSON, err := json.Marshal(result.Values)
		if err != nil {
			return fmt.Errorf("encode custom fields: %w", err)
		}

		id := uuid.New().String()
		pb := h.store.Dialect.NewParamBuilder()
		now := h.store.Dialect.NowExpr()

		columns := []string{"id", "tenant_id", "custom_fields", "created_at", "updated_at"}
		placeholders := []string{pb.Add(id), pb.Add(tenantID), pb.Add(string(customJSON)), now, now}
		for col, val := range fixed {
			columns = append(columns, col)
			placeholders = append(placeholders, pb.Add(val))
		}

		sqlStr := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			entity.Table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
		if _, err := store.Exec(c.Context(), h.store.DB, sqlStr, pb.Params()...); err != nil {
			return fmt.Errorf("insert %s: %w", entity.Name, h.store.Dialect.MapError(err))
		}

		row, err := h.fetchRecord(c.Context(), entity, tenantID, id)
		if err != nil {
			return fmt.Errorf("fetch created %s: %w", entity.Name, err)
		}
		record, err := presentRecord(row)
		if err != nil {
			return fmt.Errorf("decode %s record: %w", entity.Name, err)
		}
		return c.Status(201).JSON(fiber.Map{"data": record})
	}
}

// Update handles PUT /crm/<entity>/:id. Fixed columns are patched
// shallowly from the supplied keys; custom fields, when present, go
// through the definition-aware merge seeded with the record's current
// values and with required-ness not enforced.
func (h *Handler) Update(entity *metadata.Entity) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID, err := tenantFrom(c)
		if err != nil {
			return err
		}
		id := c.Params("id")

		row, err := h.fetchRecord(c.Context(), entity, tenantID, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return NotFoundError(entity.Name, id)
			}
			return fmt.Errorf("fetch %s/%s: %w", entity.Name, id, err)
		}

		body, customFields, err := parseBody(c)
		if err != nil {
			return err
		}

		fixed, fixedErrs := ValidateFixed(entity, body, false)
		if len(fixedErrs) > 0 {
			return ValidationError(fixedErrs)
		}

		pb := h.store.Dialect.NewParamBuilder()
		var sets []string
		for col, val := range fixed {
			sets = append(sets, fmt.Sprintf("%s = %s", col, pb.Add(val)))
		}

		if customFields != nil {
			existing, err := decodeCustomFields(row["custom_fields"])
			if err != nil {
				return fmt.Errorf("decode stored custom fields: %w", err)
			}
			result, err := h.validator.Validate(c.Context(), tenantID, entity.Name, customFields, fields.ValidateOptions{
				EnforceRequired: false,
				Existing:        existing,
			})
			if err != nil {
				return fmt.Errorf("validate custom fields for %s: %w", entity.Name, err)
			}
			if !result.Valid {
				return FieldValidationError(result.Errors)
			}
			customJSON, err := json.Marshal(result.Values)
			if err != nil {
				return fmt.Errorf("encode custom fields: %w", err)
			}
			sets = append(sets, fmt.Sprintf("custom_fields = %s", pb.Add(string(customJSON))))
		}

		sets = append(sets, "updated_at = "+h.store.Dialect.NowExpr())
		sqlStr := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s AND tenant_id = %s",
			entity.Table, strings.Join(sets, ", "), pb.Add(id), pb.Add(tenantID))
		if _, err := store.Exec(c.Context(), h.store.DB, sqlStr, pb.Params()...); err != nil {
			return fmt.Errorf("update %s/%s: %w", entity.Name, id, h.store.Dialect.MapError(err))
		}

		updated, err := h.fetchRecord(c.Context(), entity, tenantID, id)
		if err != nil {
			return fmt.Errorf("fetch updated %s: %w", entity.Name, err)
		}
		record, err := presentRecord(updated)
		if err != nil {
			return fmt.Errorf("decode %s record: %w", entity.Name, err)
		}
		return c.JSON(fiber.Map{"data": record})
	}
}

// Delete handles DELETE /crm/<entity>/:id. Fetch-then-delete, both
// tenant-scoped, so another tenant's row yields a 404 rather than a
// silent no-op.
func (h *Handler) Delete(entity *metadata.Entity) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID, err := tenantFrom(c)
		if err != nil {
			return err
		}
		id := c.Params("id")

		if _, err := h.fetchRecord(c.Context(), entity, tenantID, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return NotFoundError(entity.Name, id)
			}
			return fmt.Errorf("fetch %s/%s: %w", entity.Name, id, err)
		}

		pb := h.store.Dialect.NewParamBuilder()
		sqlStr := fmt.Sprintf("DELETE FROM %s WHERE id = %s AND tenant_id = %s",
			entity.Table, pb.Add(id), pb.Add(tenantID))
		if _, err := store.Exec(c.Context(), h.store.DB, sqlStr, pb.Params()...); err != nil {
			return fmt.Errorf("delete %s/%s: %w", entity.Name, id, err)
		}

		return c.JSON(fiber.Map{"data": fiber.Map{"id": id}})
	}
}

func (h *Handler) fetchRecord(ctx context.Context, entity *metadata.Entity, tenantID, id string) (map[string]any, error) {
	pb := h.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf("SELECT %s FROM %s WHERE id = %s AND tenant_id = %s",
		strings.Join(entity.Columns(), ", "), entity.Table, pb.Add(id), pb.Add(tenantID))
	return store.QueryRow(ctx, h.store.DB, sqlStr, pb.Params()...)
}

// parseBody splits the request body into fixed-column values and the
// customFields map. A customFields key that is not an object is a 400.
func parseBody(c *fiber.Ctx) (map[string]any, map[string]any, error) {
	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return nil, nil, NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body")
	}

	var customFields map[string]any
	if raw, ok := body[customFieldsKey]; ok {
		if raw != nil {
			m, isMap := raw.(map[string]any)
			if !isMap {
				return nil, nil, NewAppError("INVALID_PAYLOAD", 400, "customFields must be an object")
			}
			customFields = m
		} else {
			customFields = map[string]any{}
		}
		delete(body, customFieldsKey)
	}
	return body, customFields, nil
}

// presentRecord converts the stored row into the API shape: the JSON
// custom_fields column becomes the customFields map and tenant_id stays
// internal.
func presentRecord(row map[string]any) (map[string]any, error) {
	values, err := decodeCustomFields(row["custom_fields"])
	if err != nil {
		return nil, err
	}
	record := make(map[string]any, len(row)+1)
	for k, v := range row {
		if k == "custom_fields" || k == "tenant_id" {
			continue
		}
		record[k] = v
	}
	record[customFieldsKey] = values
	return record, nil
}

func decodeCustomFields(raw any) (map[string]any, error) {
	s := ""
	switch v := raw.(type) {
	case nil:
		return map[string]any{}, nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return nil, fmt.Errorf("unexpected custom_fields type %T", raw)
	}
	if s == "" {
		return map[string]any{}, nil
	}
	var values map[string]any
	if err := json.Unmarshal([]byte(s), &values); err != nil {
		return nil, fmt.Errorf("decode custom_fields: %w", err)
	}
	if values == nil {
		values = map[string]any{}
	}
	return values, nil
}

// tenantFrom reads the tenant id resolved by the auth middleware. Handlers
// never accept a tenant from the request body or path.
func tenantFrom(c *fiber.Ctx) (string, error) {
	tenantID, _ := c.Locals("tenant_id").(string)
	if tenantID == "" {
		return "", UnauthorizedError("Missing tenant context")
	}
	return tenantID, nil
}

func asInt64(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	default:
		return 0
	}
}
