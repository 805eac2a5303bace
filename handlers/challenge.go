// handlers/challenge.go
package handlers

import (
	"challenge-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupChallengeRoutes(api fiber.Router, svc *services.ChallengeService, secured fiber.Handler) {
	// Public catalog
	api.Get("/challenges/public", svc.ListPublic)
	api.Get("/challenges/public/:id", svc.Get)

	challenges := api.Group("/challenges", secured)
	challenges.Get("/", svc.List)
	challenges.Get("/:id", svc.Get)
	challenges.Post("/", svc.Create)
	challenges.Put("/:id", svc.Update)
	challenges.Delete("/:id", svc.Delete)
}
