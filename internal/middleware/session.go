package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/abank/internal/apperror"
	"github.com/congo-pay/abank/internal/ledger"
	"github.com/congo-pay/abank/internal/session"
)

const (
	userIDLocal = "user_id"
	roleLocal   = "role"
)

// SessionResolver maps a bearer token to the signed-in user.
type SessionResolver interface {
	UserForToken(ctx context.Context, token string) (ledger.User, error)
}

// SessionAuth requires a bearer token matching the current session and
// stores the user id and role in the request locals.
func SessionAuth(resolver SessionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "bearer ") {
			return apperror.Auth("missing bearer token")
		}
		token := strings.TrimSpace(authz[len("Bearer "):])

		user, err := resolver.UserForToken(c.UserContext(), token)
		if errors.Is(err, session.ErrNoSession) {
			return apperror.Auth("session has ended")
		}
		if err != nil {
			return err
		}

		c.Locals(userIDLocal, user.ID)
		c.Locals(roleLocal, user.Role)
		return c.Next()
	}
}

// RequireAdmin rejects requests whose session user is not an admin. It must
// run after SessionAuth. Services check the role again inside their updates.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if role, _ := c.Locals(roleLocal).(ledger.Role); role != ledger.RoleAdmin {
			return apperror.Forbidden("administrator role required")
		}
		return c.Next()
	}
}

// UserID returns the id stored by SessionAuth, or "" on public routes.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDLocal).(string)
	return id
}
