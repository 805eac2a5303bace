// Command challenger is the client: sign in, browse challenges, track
// progress and submit proofs.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"challenge-reward-system/app"

	"go.uber.org/fx"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Print(usage)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var client *app.Client
	fxApp := fx.New(
		app.CoreModule,
		app.ClientModule,
		fx.Populate(&client),
		fx.NopLogger,
	)
	if err := fxApp.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "❌ failed to start: %v\n", err)
		os.Exit(1)
	}

	err := run(ctx, client, os.Stdout, args)

	if stopErr := fxApp.Stop(context.Background()); stopErr != nil {
		fmt.Fprintf(os.Stderr, "⚠️  shutdown: %v\n", stopErr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		os.Exit(1)
	}
}
