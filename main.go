package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/km-arc/go-container/app"
	foundation "github.com/km-arc/go-container/framework/app"
)

func main() {
	application, err := foundation.New() // loads .env automatically
	if err != nil {
		panic(err)
	}
	log := application.Log()

	if err := application.Register(&app.AppServiceProvider{}); err != nil {
		log.Fatal().Err(err).Msg("register app services")
	}
	if err := application.Register(&app.NotificationServiceProvider{}); err != nil {
		log.Fatal().Err(err).Msg("register notification services")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped")
	}
}
