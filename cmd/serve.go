package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/topspot/internal/auth"
	"github.com/desertthunder/topspot/internal/server"
	"github.com/desertthunder/topspot/internal/web"
	"github.com/urfave/cli/v3"
)

// Serve runs the web interface until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	store, err := r.sessionStore()
	if err != nil {
		return err
	}

	app, err := web.New(web.Options{
		Auth:          auth.ConfigFrom(r.config),
		Sessions:      store,
		Service:       r.service,
		Aggregator:    r.aggregator(),
		Logger:        r.logger,
		HTTPClient:    r.httpClient,
		SecureCookies: cmd.Bool("secure-cookies"),
	})
	if err != nil {
		return fmt.Errorf("failed to create web app: %w", err)
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer, err := server.Listen(addr, app, r.logger)
	if err != nil {
		return err
	}
	r.logger.Info("started web server", "addr", httpServer.Addr())
	r.writePlain("→ Serving on http://%s (Ctrl+C to stop)\n", httpServer.Addr())

	select {
	case err, ok := <-httpServer.Errors():
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	r.logger.Info("shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
