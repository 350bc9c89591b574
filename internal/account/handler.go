package account

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/abank/internal/apperror"
	"github.com/congo-pay/abank/internal/ledger"
	"github.com/congo-pay/abank/internal/middleware"
	"github.com/congo-pay/abank/internal/money"
)

// Handler exposes registration, sign-in, profile and admin endpoints.
type Handler struct {
	svc *Service
}

// NewHandler constructs an account handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type registerRequest struct {
	Name     string `json:"name"`
	LastName string `json:"lastName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Register creates a customer account.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("malformed request body")
	}
	user, err := h.svc.Register(c.UserContext(), RegisterInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(user.Public())
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  ledger.User `json:"user"`
}

// Login establishes the session and returns its bearer token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("malformed request body")
	}
	user, sess, err := h.svc.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(loginResponse{Token: sess.Token, User: user.Public()})
}

// Logout ends the session.
func (h *Handler) Logout(c *fiber.Ctx) error {
	if err := h.svc.Logout(c.UserContext()); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Me returns the session user.
func (h *Handler) Me(c *fiber.Ctx) error {
	user, err := h.svc.User(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(user.Public())
}

// Stats returns the session user's dashboard figures.
func (h *Handler) Stats(c *fiber.Ctx) error {
	stats, err := h.svc.UserStats(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// ListUsers returns every user to an admin.
func (h *Handler) ListUsers(c *fiber.Ctx) error {
	users, err := h.svc.ListUsers(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	out := make([]ledger.User, len(users))
	for i, u := range users {
		out[i] = u.Public()
	}
	return c.JSON(fiber.Map{"users": out})
}

type creditRequest struct {
	Amount string `json:"amount"`
}

// Credit tops up a user's balance.
func (h *Handler) Credit(c *fiber.Ctx) error {
	var req creditRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("malformed request body")
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		return err
	}
	user, err := h.svc.CreditAdmin(c.UserContext(), middleware.UserID(c), c.Params("id"), amount)
	if err != nil {
		return err
	}
	return c.JSON(user.Public())
}

type statusRequest struct {
	Status string `json:"status"`
}

// SetStatus blocks or unblocks a user.
func (h *Handler) SetStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("malformed request body")
	}
	user, err := h.svc.SetUserStatus(c.UserContext(), middleware.UserID(c), c.Params("id"), ledger.Status(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(user.Public())
}

// Settings returns the process-wide settings.
func (h *Handler) Settings(c *fiber.Ctx) error {
	settings, err := h.svc.Settings(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(settings)
}

// UpdateSettings replaces the settings. Amounts are in minor units.
func (h *Handler) UpdateSettings(c *fiber.Ctx) error {
	var req ledger.Settings
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("malformed request body")
	}
	settings, err := h.svc.UpdateSettings(c.UserContext(), middleware.UserID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(settings)
}

// SystemStats returns the admin dashboard figures.
func (h *Handler) SystemStats(c *fiber.Ctx) error {
	stats, err := h.svc.SystemStats(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(stats)
}
