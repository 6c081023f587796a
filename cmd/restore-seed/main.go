// restore-seed is a one-shot tool that puts the demo records back into the
// configured store, overwriting any record that shares a demo id. Pass
// --file to restore from another seed file.
//
// Usage: go run ./cmd/restore-seed [--file seed.yaml]
package main

import (
	"context"
	"fmt"
	"os"

	"puerto-real/internal/adapters/cli"
	"puerto-real/internal/config"
	"puerto-real/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Options{
		ServiceName: "puerto-real",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      "console",
		Output:      os.Stderr,
	})

	args := append([]string{"seed", "--replace"}, os.Args[1:]...)
	if err := cli.Execute(context.Background(), cli.Options{Config: cfg, Logger: log}, args); err != nil {
		fmt.Fprintf(os.Stderr, "restore-seed: %v\n", err)
		os.Exit(1)
	}
}
