// handlers/auth.go
package handlers

import (
	"challenge-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(api fiber.Router, svc *services.AuthService, secured fiber.Handler) {
	auth := api.Group("/auth")
	auth.Post("/register", svc.Register)
	auth.Post("/login", svc.Login)
	auth.Post("/wallet", svc.Wallet)
	auth.Post("/social", svc.Social)

	// 🔐 token required
	auth.Get("/me", secured, svc.Me)
	auth.Post("/logout", secured, svc.Logout)
	auth.Post("/refresh", secured, svc.Refresh)
}
