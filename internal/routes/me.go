package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/abank/internal/account"
	"github.com/congo-pay/abank/internal/payments"
)

// RegisterMeRoutes exposes the session user's profile, stats and history.
func RegisterMeRoutes(r fiber.Router, accounts *account.Handler, pays *payments.Handler) {
	me := r.Group("/me")
	me.Get("", accounts.Me)
	me.Get("/stats", accounts.Stats)
	me.Get("/operations", pays.History)
	me.Get("/transfers/recent", pays.RecentTransfers)
	me.Get("/receipts", pays.Receipts)
	me.Get("/receipts/:id", pays.Receipt)
}
