package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/abank/internal/cards"
)

// RegisterCardRoutes wires the session user's card endpoints.
func RegisterCardRoutes(r fiber.Router, h *cards.Handler, idempotent fiber.Handler) {
	r.Get("/cards", h.List)
	r.Post("/cards", idempotent, h.Issue)
	r.Post("/cards/:id/block", h.Block)
}
