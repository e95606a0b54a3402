package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/damacus/iron-dav/internal/config"
	"github.com/damacus/iron-dav/internal/handlers"
	"github.com/damacus/iron-dav/internal/metrics"
	customMiddleware "github.com/damacus/iron-dav/internal/middleware"
	"github.com/damacus/iron-dav/internal/renderer"
	"github.com/damacus/iron-dav/internal/services"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "iron-dav",
	Short:   "WebDAV gateway for S3-compatible object stores",
	Long: `iron-dav exposes object storage buckets as WebDAV collections.
Basic-Auth credentials are forwarded to the object store as access keys.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		var files []string
		if configFile != "" {
			files = []string{configFile}
		}
		cfg, err := config.Load(files, cmd.Flags())
		if err != nil {
			return err
		}
		setupLogging(cfg)
		cmd.SetContext(withConfig(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: IRONDAV_LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServer(cfg *config.Config, provider services.ClientProvider, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			slog.LogAttrs(c.Request().Context(), level, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(customMiddleware.SecurityHeaders())
	if m != nil {
		e.Use(customMiddleware.Metrics(m, handlers.Methods()))
	}
	e.Use(customMiddleware.BasicAuthCredentials())

	// XML Renderer
	e.Renderer = renderer.New()

	// Public Routes
	e.GET("/status", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	if cfg.Metrics.Enabled && m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	// WebDAV
	dav := handlers.NewWebDAVHandler(provider, handlers.Options{
		DefaultBucket:     cfg.WebDAV.DefaultBucket,
		MaxUploadSize:     cfg.Server.MaxUploadBytes(),
		StrictMkcol:       cfg.WebDAV.StrictMkcol,
		Quota:             cfg.WebDAV.Quota,
		DeleteConcurrency: cfg.WebDAV.DeleteConcurrency,
	}, m)
	methods := handlers.Methods()
	e.Match(methods, "/", dav.Serve)
	e.Match(methods, "/:bucket", dav.Serve)
	e.Match(methods, "/:bucket/*", dav.Serve)

	return e
}
