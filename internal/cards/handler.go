package cards

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/abank/internal/apperror"
	"github.com/congo-pay/abank/internal/middleware"
)

// Handler exposes card and passport endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a card handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Products lists the issuable card types.
func (h *Handler) Products(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"products": Products()})
}

// List returns the session user's cards.
func (h *Handler) List(c *fiber.Ctx) error {
	cards, err := h.service.ListCards(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"cards": cards})
}

type issueRequest struct {
	PassportNumber string `json:"passportNumber"`
	CardType       string `json:"cardType"`
}

// Issue issues a card to the session user.
func (h *Handler) Issue(c *fiber.Ctx) error {
	var req issueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("malformed request body")
	}
	card, err := h.service.IssueCard(c.UserContext(), IssueInput{
		UserID:         middleware.UserID(c),
		PassportNumber: req.PassportNumber,
		CardType:       req.CardType,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(card)
}

// Block blocks one of the session user's cards.
func (h *Handler) Block(c *fiber.Ctx) error {
	card, err := h.service.BlockCard(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(card)
}

// ListPassports returns the passport registry.
func (h *Handler) ListPassports(c *fiber.Ctx) error {
	passports, err := h.service.ListPassports(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"passports": passports})
}

type addPassportRequest struct {
	Number   string `json:"number"`
	Verified bool   `json:"verified"`
}

// AddPassport registers a passport.
func (h *Handler) AddPassport(c *fiber.Ctx) error {
	var req addPassportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("malformed request body")
	}
	p, err := h.service.AddPassport(c.UserContext(), middleware.UserID(c), req.Number, req.Verified)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(p)
}

// VerifyPassport marks a passport verified.
func (h *Handler) VerifyPassport(c *fiber.Ctx) error {
	p, err := h.service.VerifyPassport(c.UserContext(), middleware.UserID(c), c.Params("number"))
	if err != nil {
		return err
	}
	return c.JSON(p)
}

// RemovePassport deletes a passport.
func (h *Handler) RemovePassport(c *fiber.Ctx) error {
	if err := h.service.RemovePassport(c.UserContext(), middleware.UserID(c), c.Params("number")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
