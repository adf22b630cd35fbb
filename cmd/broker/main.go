// Command broker runs the co-simulation broker process: the runner
// registry, tick loop, specification compatibility gate, and result sink
// described by spec §4.5, fronted by the HTTP surface in package broker.
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

	"github.com/mobility-cosim/platform/broker"
	"github.com/mobility-cosim/platform/config"
	"github.com/mobility-cosim/platform/obslog"
)

func main() {
	root := &cobra.Command{
		Use:   "broker",
		Short: "Run the mobility co-simulation broker",
		RunE:  run,
	}
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load("broker")
	if err != nil {
		return err
	}
	log, err := obslog.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	mod := broker.NewModule(log, cfg)
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
		log.Infow("broker listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Infow("broker shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
