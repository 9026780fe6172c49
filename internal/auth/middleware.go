package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"atelier-backend/internal/engine"
)

// Middleware validates the bearer token and resolves the tenant for the
// request. Downstream handlers read the tenant id from Locals and never
// see a tenant parameter in the body or path.
func Middleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return engine.UnauthorizedError("Missing auth token")
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return engine.UnauthorizedError("Invalid auth header format")
		}

		claims, err := ParseAccessToken(parts[1], secret)
		if err != nil {
			return engine.UnauthorizedError("Invalid or expired token")
		}
		if claims.TenantID == "" {
			return engine.UnauthorizedError("Token carries no tenant")
		}

		c.Locals("user_id", claims.Subject)
		c.Locals("tenant_id", claims.TenantID)
		c.Locals("roles", claims.Roles)

		return c.Next()
	}
}
