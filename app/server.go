package app

import (
	"context"
	"fmt"

	"challenge-reward-system/config"
	"challenge-reward-system/handlers"
	"challenge-reward-system/services"
	"challenge-reward-system/utils"
	"challenge-reward-system/verifiers"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ServerModule runs the HTTP backend.
var ServerModule = fx.Module("server",
	fx.Provide(
		NewDB,
		NewTokenIssuer,
		NewServerApp,
		NewScheduler,
	),
	fx.Invoke(
		func(cfg *config.Config) error { return cfg.ValidateServer() },
		Serve,
	),
)

// NewDB opens, migrates and optionally seeds the backend database.
func NewDB(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	db, err := utils.OpenDB(cfg.Storage.Driver, cfg.Storage.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := services.Migrate(db); err != nil {
		return nil, err
	}
	if cfg.Server.SeedCatalog {
		n, err := services.SeedChallenges(context.Background(), db)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			logger.Info("🌱 seeded challenges", zap.Int64("count", n))
		}
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
	return db, nil
}

func NewTokenIssuer(cfg *config.Config) *utils.TokenIssuer {
	return utils.NewTokenIssuer(cfg.Server.JWTSecret, cfg.Server.JWTIssuer)
}

func NewServerApp(cfg *config.Config, db *gorm.DB, tokens *utils.TokenIssuer, logger *zap.Logger) *fiber.App {
	var reviewer verifiers.Verifier
	if cfg.Server.AutoVerify {
		reviewer = services.AutoReviewer()
	}
	return handlers.NewApp(handlers.Deps{
		DB:             db,
		Tokens:         tokens,
		Logger:         logger,
		Reviewer:       reviewer,
		AllowedOrigins: cfg.Server.Origins(),
		BodyLimit:      cfg.Server.BodyLimit,
	})
}

func NewScheduler(lc fx.Lifecycle, cfg *config.Config, db *gorm.DB, logger *zap.Logger) *services.ChallengeScheduler {
	sched := services.NewChallengeScheduler(db, logger, cfg.Server.DeadlineSweep)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if _, err := sched.CloseExpired(ctx); err != nil {
				logger.Warn("initial deadline sweep failed", zap.Error(err))
			}
			return sched.Start()
		},
		OnStop: func(ctx context.Context) error {
			return sched.Shutdown()
		},
	})
	return sched
}

// Serve starts listening once every other hook has run.
func Serve(lc fx.Lifecycle, cfg *config.Config, app *fiber.App, logger *zap.Logger, _ *services.ChallengeScheduler) {
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := app.Listen(addr); err != nil {
					logger.Error("server stopped", zap.Error(err))
				}
			}()
			logger.Info("✅ Server running", zap.String("addr", addr))
			logger.Info("✅ CORS configured", zap.Strings("origins", cfg.Server.Origins()))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down server...")
			return app.ShutdownWithContext(ctx)
		},
	})
}
