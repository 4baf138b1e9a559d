// Package cmd provides the CLI commands for Signet Gate.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/signetgate/signetgate/internal/adapter/inbound/http"
	"github.com/signetgate/signetgate/internal/adapter/outbound/awslambda"
	"github.com/signetgate/signetgate/internal/adapter/outbound/awssecrets"
	"github.com/signetgate/signetgate/internal/config"
	"github.com/signetgate/signetgate/internal/domain/secret"
	"github.com/signetgate/signetgate/internal/service"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the signing proxy server",
	Long: `Start the Signet Gate signing proxy server.

The server listens on server.http_addr and forwards every request to
upstream.base_url with signature headers attached. When token.enabled is
set, POST /auth/token/{id} mints access tokens via the configured Lambda
function instead of proxying.

Examples:
  # Start with config file settings
  signet-gate start

  # Start with a specific config file
  signet-gate --config /path/to/config.yaml start`,
	RunE: runStart,
}

var devMode bool

func init() {
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (verbose logging)")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override dev mode from CLI flag
	if devMode {
		cfg.DevMode = true
	}

	// Create signal context for graceful shutdown.
	// stop() restores default signal handling so a second Ctrl+C does a hard kill.
	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	go func() {
		<-ctx.Done()
		stop() // Restore default: next Ctrl+C = immediate exit.
	}()

	// Setup logger to stderr
	// Priority: DevMode=true -> debug, otherwise use configured log_level
	logLevel := parseLogLevel(cfg.Server.LogLevel)
	if cfg.DevMode {
		logLevel = slog.LevelDebug // DevMode always forces debug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	logger.Debug("log level configured", "level", cfg.Server.LogLevel, "effective", logLevel.String())

	// Log config file used if any
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	if err := run(ctx, cfg, logger); err != nil {
		return err
	}

	logger.Info("signet-gate stopped")
	return nil
}

// run wires the components together and blocks until shutdown.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Secret store backed by AWS Secrets Manager, wrapped in the
	// process-lifetime cache.
	store := awssecrets.New(
		awssecrets.WithDefaultRegion(cfg.Signing.Region),
		awssecrets.WithEndpoint(cfg.AWS.Endpoint),
	)
	cache := secret.NewCache(store)

	proxySvc := service.NewProxyService(cache,
		strings.TrimRight(cfg.Upstream.BaseURL, "/"),
		cfg.Signing.SecretName,
		service.WithProfile(cfg.Signing.Profile()),
		service.WithRegion(cfg.Signing.Region),
		service.WithUpstreamTimeout(cfg.UpstreamTimeout()),
		service.WithLogger(logger),
	)

	opts := []http.Option{
		http.WithAddr(cfg.Server.HTTPAddr),
		http.WithLogger(logger),
		http.WithSecretCache(cache),
		http.WithHealthChecker(http.NewHealthChecker(cache, Version)),
	}

	if cfg.Token.Enabled {
		invoker, err := awslambda.New(ctx, cfg.Token.Region, cfg.AWS.Endpoint)
		if err != nil {
			return fmt.Errorf("failed to create lambda client: %w", err)
		}
		tokenSvc := service.NewTokenService(service.TokenServiceConfig{
			Proxy:        proxySvc,
			Secrets:      cache,
			Invoker:      invoker,
			LookupPath:   cfg.Token.LookupPath,
			SecretName:   cfg.Token.SecretName,
			Region:       cfg.Token.Region,
			FunctionName: cfg.Token.FunctionName,
			Logger:       logger,
		})
		opts = append(opts, http.WithTokenService(tokenSvc))
		logger.Info("token minting enabled",
			"lookup_path", cfg.Token.LookupPath,
			"function", cfg.Token.FunctionName)
	}

	transport := http.NewHTTPTransport(proxySvc, opts...)

	logger.Info("signet-gate starting",
		"addr", cfg.Server.HTTPAddr,
		"upstream", cfg.Upstream.BaseURL,
		"scheme", cfg.Signing.HeaderScheme,
		"timestamps", cfg.Signing.TimestampSource)

	return transport.Start(ctx)
}

// parseLogLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
