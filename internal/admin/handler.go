package admin

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"atelier-backend/internal/engine"
	"atelier-backend/internal/fields"
	"atelier-backend/internal/metadata"
	"atelier-backend/internal/store"
)

// Handler serves the custom-field definition admin API.
type Handler struct {
	defs     *fields.Store
	registry *metadata.Registry
}

func NewHandler(defs *fields.Store, reg *metadata.Registry) *Handler {
	return &Handler{defs: defs, registry: reg}
}

func RegisterAdminRoutes(app *fiber.App, h *Handler, middleware ...fiber.Handler) {
	group := app.Group("/crm/custom-fields")
	for _, mw := range middleware {
		group.Use(mw)
	}

	group.Get("/:objectType", h.ListDefinitions)
	group.Post("/", h.UpsertDefinition)
	group.Put("/:id", h.UpdateDefinition)
	group.Delete("/:id", h.DeleteDefinition)
}

// upsertPayload is the POST body. IsActive is a pointer so an omitted
// value defaults to true instead of false.
type upsertPayload struct {
	ObjectType   string             `json:"objectType"`
	FieldKey     string             `json:"fieldKey"`
	FieldLabel   string             `json:"fieldLabel"`
	FieldType    fields.FieldType   `json:"fieldType"`
	Description  string             `json:"description"`
	Required     bool               `json:"required"`
	Options      []fields.Option    `json:"options"`
	Validation   *fields.Validation `json:"validation"`
	DefaultValue any                `json:"defaultValue"`
	OrderIndex   int                `json:"orderIndex"`
	IsActive     *bool              `json:"isActive"`
}

// ListDefinitions handles GET /crm/custom-fields/:objectType.
func (h *Handler) ListDefinitions(c *fiber.Ctx) error {
	tenantID, err := tenantFrom(c)
	if err != nil {
		return err
	}

	objectType := c.Params("objectType")
	if !h.registry.IsObjectType(objectType) {
		return engine.UnsupportedObjectTypeError(objectType)
	}

	includeInactive := c.QueryBool("includeInactive")
	defs, err := h.defs.List(c.Context(), tenantID, objectType, includeInactive)
	if err != nil {
		return fmt.Errorf("list definitions for %s: %w", objectType, err)
	}
	return c.JSON(fiber.Map{"data": defs})
}

// UpsertDefinition handles POST /crm/custom-fields. Re-posting the same
// (objectType, fieldKey) updates the existing definition in place.
func (h *Handler) UpsertDefinition(c *fiber.Ctx) error {
	tenantID, err := tenantFrom(c)
	if err != nil {
		return err
	}

	var payload upsertPayload
	if err := c.BodyParser(&payload); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body")
	}
	if !h.registry.IsObjectType(payload.ObjectType) {
		return engine.UnsupportedObjectTypeError(payload.ObjectType)
	}

	isActive := true
	if payload.IsActive != nil {
		isActive = *payload.IsActive
	}

	def := &fields.Definition{
		TenantID:     tenantID,
		ObjectType:   payload.ObjectType,
		FieldKey:     payload.FieldKey,
		FieldLabel:   payload.FieldLabel,
		FieldType:    payload.FieldType,
		Description:  payload.Description,
		Required:     payload.Required,
		Options:      payload.Options,
		Validation:   payload.Validation,
		DefaultValue: payload.DefaultValue,
		OrderIndex:   payload.OrderIndex,
		IsActive:     isActive,
	}

	saved, _, err := h.defs.Upsert(c.Context(), def)
	if err != nil {
		if errors.Is(err, fields.ErrInvalidDefinition) {
			return engine.NewAppError("VALIDATION_FAILED", 400, err.Error())
		}
		if errors.Is(err, store.ErrUniqueViolation) {
			return engine.NewAppError("CONFLICT", 409, "Definition already exists")
		}
		return fmt.Errorf("upsert definition %s.%s: %w", payload.ObjectType, payload.FieldKey, err)
	}
	return c.Status(201).JSON(fiber.Map{"data": saved})
}

// UpdateDefinition handles PUT /crm/custom-fields/:id.
func (h *Handler) UpdateDefinition(c *fiber.Ctx) error {
	tenantID, err := tenantFrom(c)
	if err != nil {
		return err
	}
	id := c.Params("id")

	var patch map[string]any
	if err := c.BodyParser(&patch); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body")
	}

	updated, err := h.defs.Update(c.Context(), tenantID, id, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return engine.NotFoundError("custom field definition", id)
		}
		if errors.Is(err, fields.ErrInvalidDefinition) {
			return engine.NewAppError("VALIDATION_FAILED", 400, err.Error())
		}
		return fmt.Errorf("update definition %s: %w", id, err)
	}
	return c.JSON(fiber.Map{"data": updated})
}

// DeleteDefinition handles DELETE /crm/custom-fields/:id. Values stored
// under the deleted key survive on records; they are orphaned metadata,
// not foreign keys.
func (h *Handler) DeleteDefinition(c *fiber.Ctx) error {
	tenantID, err := tenantFrom(c)
	if err != nil {
		return err
	}
	id := c.Params("id")

	if err := h.defs.Delete(c.Context(), tenantID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return engine.NotFoundError("custom field definition", id)
		}
		return fmt.Errorf("delete definition %s: %w", id, err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": id}})
}

func tenantFrom(c *fiber.Ctx) (string, error) {
	tenantID, _ := c.Locals("tenant_id").(string)
	if tenantID == "" {
		return "", engine.UnauthorizedError("Missing tenant context")
	}
	return tenantID, nil
}
