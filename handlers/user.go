// handlers/user.go
package handlers

import (
	"challenge-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(api fiber.Router, svc *services.UserService, secured fiber.Handler) {
	me := api.Group("/users/me", secured)
	me.Get("/", svc.GetProfile)
	me.Put("/", svc.UpdateProfile)
	me.Delete("/", svc.DeleteAccount)
	me.Get("/stats", svc.GetStats)
	me.Put("/stats", svc.UpdateStats)
}
