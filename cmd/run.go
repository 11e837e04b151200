package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/glowdist/commission-manager/app"
	"github.com/glowdist/commission-manager/config"
	"github.com/glowdist/commission-manager/log"
	"github.com/spf13/cobra"
)

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("cannot load a config %v", err.Error())
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Setup(cfg.Logger)

	a := app.New(cfg)
	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("cannot start the application %v", err.Error())
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	select {
	case s := <-sigCh:
		slog.Default().Warn("signal received, exiting",
			slog.String("signal", s.String()),
		)
		a.Stop(ctx)
		slog.Default().Info("application exited")
	case <-a.Done():
		slog.Default().Error("application exited")
	}

	return nil
}
