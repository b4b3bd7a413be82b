package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/grafcli/backend"
	"github.com/s0up4200/grafcli/config"
	"github.com/s0up4200/grafcli/metrics"
	"github.com/s0up4200/grafcli/notify"
)

var (
	cfgFile     string
	dumpMetrics bool
	cfg         *config.Config
	logger      zerolog.Logger
	client      *backend.Client
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "grafcli",
	Short: "A command-line client for the dashboard backend API",
	Long: `grafcli talks to a dashboard backend over its HTTP API. It searches,
exports and imports dashboards, and issues raw API and datasource calls.

Expired sessions are refreshed transparently and each call is retried once.
Failures are shown as alerts on stderr.`,
	SilenceUsage:       true,
	PersistentPreRunE:  initializeApp,
	PersistentPostRunE: finalizeApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// post-run hooks are skipped on error
		_ = finalizeApp(rootCmd, nil)
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&dumpMetrics, "metrics", false, "print request metrics to stderr on exit")
}

// initializeApp loads configuration and creates the backend client
func initializeApp(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = setupLogger(cfg.Logging)

	client, err = newClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create backend client: %w", err)
	}

	logger.Debug().
		Str("url", cfg.Backend.URL).
		Str("app_sub_url", cfg.Backend.AppSubURL).
		Msg("Backend client ready")

	return nil
}

// finalizeApp waits for pending alerts and optionally dumps metrics
func finalizeApp(cmd *cobra.Command, args []string) error {
	if client != nil {
		client.Wait()
	}
	if dumpMetrics {
		return metrics.Dump(cmd.ErrOrStderr(), prometheus.DefaultGatherer)
	}
	return nil
}

// newClient builds the transport and mediator from configuration
func newClient(cfg *config.Config, logger zerolog.Logger) (*backend.Client, error) {
	transportOpts := []backend.TransportOption{
		backend.WithTimeout(cfg.Backend.Timeout),
	}
	switch {
	case cfg.Backend.APIKey != "":
		transportOpts = append(transportOpts, backend.WithAPIKey(cfg.Backend.APIKey))
	case cfg.Backend.Username != "":
		transportOpts = append(transportOpts, backend.WithBasicAuth(cfg.Backend.Username, cfg.Backend.Password))
	}

	transport, err := backend.NewHTTPTransport(cfg.Backend.URL, logger, transportOpts...)
	if err != nil {
		return nil, err
	}

	return backend.NewClient(transport, logger,
		backend.WithAppSubURL(cfg.Backend.AppSubURL),
		backend.WithNotifier(newNotifier(cfg, logger)),
		backend.WithNotifyDelay(cfg.Notifications.Delay),
	)
}

func newNotifier(cfg *config.Config, logger zerolog.Logger) notify.Notifier {
	if !cfg.Notifications.Enabled {
		return notify.Nop
	}

	switch cfg.Notifications.Output {
	case "log":
		return notify.NewLogNotifier(logger)
	default:
		console := notify.NewConsoleNotifier(os.Stderr)
		if !cfg.Logging.Color {
			console.SetColor(false)
		}
		return console
	}
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "trace":
		level = zerolog.TraceLevel
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// skipInit lets commands that need no backend bypass initializeApp
func skipInit(cmd *cobra.Command, args []string) error {
	return nil
}
