package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meghana-0211/email-automation/internal/devserver"
	"github.com/meghana-0211/email-automation/internal/metrics"
)

var devserverAddr string

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run a local stub backend for development and testing",
	RunE:  runDevserver,
}

func init() {
	devserverCmd.Flags().StringVar(&devserverAddr, "addr", "", "listen address (overrides config)")
}

func runDevserver(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging)

	addr := cfg.DevServer.ListenAddr
	if devserverAddr != "" {
		addr = devserverAddr
	}

	srv := devserver.New(devserver.Config{
		ListenAddr:   addr,
		APIKey:       cfg.API.Key,
		EmitInterval: cfg.DevServer.EmitInterval,
	}, logger, metrics.New())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
