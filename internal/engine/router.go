package engine

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterCRMRoutes mounts the five CRUD operations for every entity in
// the registry under /crm/<basePath>.
func RegisterCRMRoutes(app *fiber.App, h *Handler, middleware ...fiber.Handler) {
	crm := app.Group("/crm")
	for _, mw := range middleware {
		crm.Use(mw)
	}

	for _, entity := range h.registry.All() {
		group := crm.Group("/" + entity.BasePath)
		group.Get("/", h.List(entity))
		group.Post("/", h.Create(entity))
		group.Get("/:id", h.GetByID(entity))
		group.Put("/:id", h.Update(entity))
		group.Delete("/:id", h.Delete(entity))
	}
}
