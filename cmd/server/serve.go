package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/damacus/iron-dav/internal/config"
	"github.com/damacus/iron-dav/internal/metrics"
	"github.com/damacus/iron-dav/internal/services"
	"github.com/damacus/iron-dav/internal/utils"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the WebDAV server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 3000, "HTTP server port (env: IRONDAV_SERVER_PORT)")
	serveCmd.Flags().String("endpoint", "", "object store endpoint, empty for the provider default (env: IRONDAV_BACKEND_ENDPOINT)")
	serveCmd.Flags().Bool("path-style", false, "force path-style bucket addressing")
	serveCmd.Flags().String("region", "", "object store region")
	serveCmd.Flags().String("driver", "", "object store driver: minio, s3")
	serveCmd.Flags().String("auth-mode", "", "basic forwards request credentials, fixed uses backend.access_key")
	serveCmd.Flags().String("default-bucket", "", "bucket served at /")
	serveCmd.Flags().String("max-upload-size", "", "largest accepted PUT body, e.g. 10GiB")

	rootCmd.AddCommand(serveCmd)
}

// newFactory picks the object store driver
func newFactory(ctx context.Context, cfg *config.Config) (services.ClientFactory, error) {
	switch cfg.Backend.Driver {
	case config.DriverS3:
		return services.NewAWSFactory(ctx, cfg.Backend.Services())
	case config.DriverMinio:
		return services.NewMinioFactory(cfg.Backend.Services()), nil
	}
	return nil, fmt.Errorf("unknown backend driver %q", cfg.Backend.Driver)
}

// newProvider picks how each request obtains its backend handle
func newProvider(factory services.ClientFactory, cfg *config.Config) (services.ClientProvider, error) {
	if cfg.Auth.Mode == config.AuthModeFixed {
		return services.NewFixedProvider(factory, cfg.Backend.Credentials())
	}
	return services.NewPerRequestProvider(factory), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := configFromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	factory, err := newFactory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create %s client factory: %w", cfg.Backend.Driver, err)
	}
	provider, err := newProvider(factory, cfg)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}
	e := newServer(cfg, provider, m)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", addr,
			"driver", cfg.Backend.Driver,
			"auth_mode", cfg.Auth.Mode,
			"endpoint", cfg.Backend.Endpoint,
			"max_upload", utils.FormatFileSize(cfg.Server.MaxUploadBytes()),
		)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
