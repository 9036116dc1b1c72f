package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sgranger-dev/boardroom/internal/config"
	"github.com/sgranger-dev/boardroom/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Serve departments over HTTP with SSE streaming.

Endpoints:
  GET  /healthz              liveness probe
  POST /execute/:department  run one department (or "all") and stream events
  POST /chat                 converse with the concierge; a launch request
                             extracted from the conversation starts every
                             department on the same stream`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	caller, err := buildCaller(cfg)
	if err != nil {
		return fmt.Errorf("create API client: %w", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	coord := buildCoordinator(cfg, caller, st)
	srv := server.New(server.Options{
		Coordinator: coord,
		Caller:      caller,
		Store:       st,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] listening on %s", cfg.Server.Addr)
		errCh <- srv.Start(cfg.Server.Addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("[server] received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
