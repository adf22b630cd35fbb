// Command useragent runs the rider task-dispatch module: one process per
// simulated population, driven by the broker through the same spec §4.5
// runner surface every other module exposes (spec §4.4).
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mobility-cosim/platform/config"
	"github.com/mobility-cosim/platform/obslog"
	"github.com/mobility-cosim/platform/useragent"
)

func main() {
	root := &cobra.Command{
		Use:   "useragent",
		Short: "Run the rider task-dispatch module",
		RunE:  run,
	}
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load("useragent")
	if err != nil {
		return err
	}
	log, err := obslog.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	mod := useragent.NewModule("useragent", log)
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      mod.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infow("user-agent module listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Infow("user-agent module shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
