// handlers/router.go
package handlers

import (
	"strings"
	"time"

	"challenge-reward-system/middleware"
	"challenge-reward-system/services"
	"challenge-reward-system/utils"
	"challenge-reward-system/verifiers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps is everything the HTTP layer needs.
type Deps struct {
	DB             *gorm.DB
	Tokens         *utils.TokenIssuer
	Logger         *zap.Logger
	Reviewer       verifiers.Verifier
	AllowedOrigins []string
	BodyLimit      int
}

// NewApp builds the fiber app with every /api route mounted.
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:             d.BodyLimit,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(d.Logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(d.AllowedOrigins, ","),
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID",
		ExposeHeaders: "Content-Length, Content-Type, X-Request-ID",
		MaxAge:        86400,
	}))

	secured := middleware.JWTAuthMiddleware(d.Tokens, d.DB, d.Logger)
	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		status := "ok"
		if sqlDB, err := d.DB.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			status = "degraded"
		}
		return c.JSON(fiber.Map{"success": true, "data": fiber.Map{
			"status": status,
			"time":   time.Now().UTC(),
		}})
	})

	SetupAuthRoutes(api, services.NewAuthService(d.DB, d.Tokens, d.Logger), secured)
	SetupChallengeRoutes(api, services.NewChallengeService(d.DB, d.Logger), secured)
	SetupProofRoutes(api, services.NewProofService(d.DB, d.Reviewer, d.Logger), secured)
	SetupUserRoutes(api, services.NewUserService(d.DB, d.Logger), secured)

	return app
}
