package main

import (
	"context"
	"log"
	"os"

	"challenge-reward-system/app"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	fxApp := fx.New(
		app.CoreModule,
		app.ServerModule,
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
	)

	if err := fxApp.Start(context.Background()); err != nil {
		log.Printf("❌ Failed to start server: %v", err)
		os.Exit(1)
	}

	// SIGINT / SIGTERM
	<-fxApp.Done()

	if err := fxApp.Stop(context.Background()); err != nil {
		log.Printf("Failed to stop server gracefully: %v", err)
		os.Exit(1)
	}
}
