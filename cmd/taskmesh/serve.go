package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gautammanak1/taskmesh/a2a"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the coordinator over A2A (JSON-RPC with SSE streaming)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, coordinator, err := buildCoordinator(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	logger := cfg.NewLogger(cmd.ErrOrStderr()).WithComponent("a2a")

	card := a2a.NewAgentCard(cfg.Server.Name, cfg.Server.Description, cfg.Server.URL, coordinator.Specialists())
	handler := a2a.NewServer(coordinator, card, func(o *a2a.ServerOptions) {
		o.Logger = logger
	})

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	out := cmd.OutOrStdout()
	printStatus(out, "✓", fmt.Sprintf("%s listening on %s", card.Name, addr), color.FgGreen)
	for _, skill := range card.Skills {
		printStatus(out, "•", fmt.Sprintf("%s (%s)", skill.Name, skill.ID), color.FgCyan)
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	printStatus(out, "•", "shutting down", color.FgYellow)

	return srv.Shutdown(shutdownCtx)
}
