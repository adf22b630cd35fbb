// Command ondemand-sim runs a single on-demand mobility service (taxi,
// ride-hail, valet...) as a broker-driven HTTP module (spec §4.2).
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
	"github.com/mobility-cosim/platform/ondemand"
)

func main() {
	var serviceName string
	root := &cobra.Command{
		Use:   "ondemand-sim",
		Short: "Run an on-demand mobility service module",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, serviceName)
		},
	}
	root.Flags().StringVar(&serviceName, "service", "", "service name this instance advertises to the broker (required)")
	if err := root.MarkFlagRequired("service"); err != nil {
		os.Exit(1)
	}
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, serviceName string) error {
	cfg, err := config.Load(serviceName)
	if err != nil {
		return err
	}
	log, err := obslog.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	mod := ondemand.NewModule(serviceName, log, cfg)
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
		log.Infow("on-demand module listening", "service", serviceName, "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Infow("on-demand module shutting down", "service", serviceName)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
