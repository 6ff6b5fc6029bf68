// Caredose - local medication reminder agent.
//
// Mirrors a patient's upcoming medication reminders from the remote care
// service onto this device and keeps the local alerts in sync with it.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/caredose/caredose/internal/cli"
	"github.com/caredose/caredose/internal/config"
	"github.com/caredose/caredose/internal/log"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if cfg, err := config.Load(); err == nil {
		if err := log.Init(config.GetPaths(cfg).Logs); err == nil {
			defer log.Close()
		}
	}

	if err := cli.Execute(ctx); err != nil {
		os.Exit(1)
	}
}
