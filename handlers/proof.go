// handlers/proof.go
package handlers

import (
	"challenge-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProofRoutes(api fiber.Router, svc *services.ProofService, secured fiber.Handler) {
	proofs := api.Group("/proofs", secured)
	proofs.Get("/", svc.List)
	proofs.Post("/", svc.Submit)
	proofs.Get("/:id", svc.Get)
	proofs.Put("/:id/verify", svc.Verify)
	proofs.Delete("/:id", svc.Delete)
}
