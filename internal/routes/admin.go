package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/abank/internal/account"
	"github.com/congo-pay/abank/internal/cards"
	"github.com/congo-pay/abank/internal/payments"
)

// RegisterAdminRoutes wires the back-office endpoints. The router is expected
// to enforce the admin role already.
func RegisterAdminRoutes(r fiber.Router, accounts *account.Handler, cardsH *cards.Handler, pays *payments.Handler, idempotent fiber.Handler) {
	r.Get("/users", accounts.ListUsers)
	r.Post("/users/:id/credit", idempotent, accounts.Credit)
	r.Put("/users/:id/status", accounts.SetStatus)

	r.Get("/passports", cardsH.ListPassports)
	r.Post("/passports", cardsH.AddPassport)
	r.Post("/passports/:number/verify", cardsH.VerifyPassport)
	r.Delete("/passports/:number", cardsH.RemovePassport)

	r.Get("/operations", pays.Operations)
	r.Get("/stats", accounts.SystemStats)
	r.Get("/settings", accounts.Settings)
	r.Put("/settings", accounts.UpdateSettings)
}
