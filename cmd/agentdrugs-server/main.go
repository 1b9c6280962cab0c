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

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/agentdrugs/internal/app"
	"github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	a, err := app.NewApp(ctx, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}

	common.PrintBanner(a.Config, a.Logger)

	// Start background services
	a.StartCodePurge()

	srv := server.NewServer(a)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info().Msg("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	a.Logger.Info().
		Str("mcp", a.Config.Issuer()+"/mcp").
		Msg("Server ready")

	exitCode := 0
	if err := g.Wait(); err != nil {
		a.Logger.Error().Err(err).Msg("Server stopped with error")
		exitCode = 1
	}

	a.Close()
	common.PrintShutdownBanner(a.Logger)
	os.Exit(exitCode)
}
