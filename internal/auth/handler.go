package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"atelier-backend/internal/engine"
	"atelier-backend/internal/store"
)

// Handler serves login against the users table.
type Handler struct {
	store  *store.Store
	secret string
}

func NewHandler(s *store.Store, secret string) *Handler {
	return &Handler{store: s, secret: secret}
}

func RegisterAuthRoutes(app *fiber.App, h *Handler) {
	app.Post("/auth/login", h.Login)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and issues an access token whose claims carry
// the user's tenant. Wrong email and wrong password return the same 401.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body")
	}
	if req.Email == "" || req.Password == "" {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "email and password are required")
	}

	pb := h.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		"SELECT id, tenant_id, password_hash, roles FROM users WHERE email = %s",
		pb.Add(req.Email))
	row, err := store.QueryRow(c.Context(), h.store.DB, sqlStr, pb.Params()...)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return engine.UnauthorizedError("Invalid credentials")
		}
		return fmt.Errorf("find user: %w", err)
	}

	hash, _ := row["password_hash"].(string)
	if !CheckPassword(hash, req.Password) {
		return engine.UnauthorizedError("Invalid credentials")
	}

	userID := fmt.Sprintf("%v", row["id"])
	tenantID := fmt.Sprintf("%v", row["tenant_id"])
	roles := strings.Split(fmt.Sprintf("%v", row["roles"]), ",")

	token, err := GenerateAccessToken(userID, tenantID, roles, h.secret)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	return c.JSON(fiber.Map{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(AccessTokenTTL.Seconds()),
	})
}
