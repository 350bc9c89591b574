package payments

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/abank/internal/apperror"
	"github.com/congo-pay/abank/internal/middleware"
)

// Handler exposes transfer and history endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transferRequest struct {
	Recipient   string `json:"recipient"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Method      string `json:"method"`
}

// Transfer moves money from the session user to a recipient.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("malformed request body")
	}

	res, err := h.service.Transfer(c.UserContext(), TransferInput{
		FromID:      middleware.UserID(c),
		Recipient:   req.Recipient,
		Amount:      req.Amount,
		Description: req.Description,
		Method:      Method(req.Method),
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"operation": res.Operation,
		"receipt":   res.Receipt,
		"balance":   res.Sender.Balance,
	})
}

// History lists the session user's operations.
func (h *Handler) History(c *fiber.Ctx) error {
	ops, err := h.service.History(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"operations": ops})
}

// RecentTransfers lists the latest transfers, ?limit= overrides the default.
func (h *Handler) RecentTransfers(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit"))
	ops, err := h.service.RecentTransfers(c.UserContext(), middleware.UserID(c), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"transfers": ops})
}

// Receipts lists the session user's receipts.
func (h *Handler) Receipts(c *fiber.Ctx) error {
	receipts, err := h.service.Receipts(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"receipts": receipts})
}

// Receipt returns one receipt.
func (h *Handler) Receipt(c *fiber.Ctx) error {
	rc, err := h.service.Receipt(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(rc)
}

// Operations returns the full log to admins.
func (h *Handler) Operations(c *fiber.Ctx) error {
	ops, err := h.service.Operations(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"operations": ops})
}
