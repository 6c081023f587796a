// Command server serves the JSON API. It is equivalent to `puerto serve`.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"puerto-real/internal/adapters/cli"
	"puerto-real/internal/config"
	"puerto-real/internal/logger"
)

func main() {
	log := logger.New(logger.Options{ServiceName: "puerto-real"})

	cfg, err := config.Load()
	if err != nil {
		log.Error(context.Background(), "config", err)
		os.Exit(1)
	}
	log = logger.New(logger.Options{
		ServiceName: "puerto-real",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := append([]string{"serve"}, os.Args[1:]...)
	if err := cli.Execute(ctx, cli.Options{Config: cfg, Logger: log}, args); err != nil {
		log.Error(ctx, "server", err)
		stop()
		os.Exit(1)
	}
}
