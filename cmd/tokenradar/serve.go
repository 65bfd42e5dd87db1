package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"token-radar/internal/api"
	"token-radar/internal/observability"
)

const forceExitAfter = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the discovery scheduler and the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":3001", "HTTP listen address")
	bindFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	done := make(chan struct{})
	defer close(done)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		case <-done:
			return
		}
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing exit", zap.String("signal", sig.String()))
			os.Exit(1)
		case <-time.After(forceExitAfter):
			logger.Warn("graceful shutdown timed out, forcing exit", zap.Duration("after", forceExitAfter))
			os.Exit(1)
		case <-done:
		}
	}()

	handler := api.NewHandler(a.orch, observability.Handler(a.registry), logger)
	server := api.NewServer(cfg.Server.Addr, handler, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.orch.Run(gctx) })
	g.Go(func() error { return server.Run(gctx) })

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server error", zap.Error(err))
		return err
	}

	logger.Info("shutdown complete")
	return nil
}
