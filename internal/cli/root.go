package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ogulcanaydogan/Expiry-Guardian/internal/config"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/alerts"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/ledger"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/recipients"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/scanner"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/storage"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/trigger"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "eg",
	Short: "Expiry Guardian - lease expiration and debt maturity alerts",
	Long: `Expiry Guardian watches lease end dates and debt maturity dates and
notifies the responsible users once at each of the 90, 60, 30 and 7 day
marks. It keeps an auditable ledger of every alert and a trigger per entity
that can be dismissed or marked actioned.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.eg/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// NewLogger creates a structured logger from config. When a log file is
// configured, output goes to a size-rotated file instead of stderr.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var out io.Writer = os.Stderr
	if cfg.Logging.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.Logging.File,
			MaxSize:    cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAge:     cfg.Logging.MaxAgeDays,
			Compress:   true,
		}
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initNotifiers creates alert notifiers from config.
func initNotifiers(cfg *config.Config) []alerts.Notifier {
	var notifiers []alerts.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alerts.NewSlackNotifier(
			cfg.Alerts.Slack.WebhookURL,
			cfg.Alerts.Slack.Channel,
		))
	}

	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alerts.NewWebhookNotifier(
			cfg.Alerts.Webhook.URL,
			cfg.Alerts.Webhook.Secret,
		))
	}

	return notifiers
}

// initResolver prefers stored assignments and falls back to the configured
// recipients.
func initResolver(cfg *config.Config, store storage.Storage) recipients.Resolver {
	return recipients.Chain{
		recipients.NewAssignmentResolver(store),
		recipients.Static(cfg.Recipients.Fallback),
	}
}

// app is the fully wired set of components a command works with.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    storage.Storage
	ledger   *ledger.Ledger
	triggers *trigger.Store
	scanner  *scanner.Scanner
}

// initApp opens storage and wires the scanner and its collaborators.
func initApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	store, err := storage.NewSQLite(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	retry := alerts.RetryPolicy{
		MaxTries:        cfg.Alerts.Retry.MaxTries,
		InitialInterval: cfg.Alerts.Retry.InitialInterval,
		MaxInterval:     cfg.Alerts.Retry.MaxInterval,
	}
	emitter := alerts.NewDispatcher(store, initNotifiers(cfg), retry, logger)

	l := ledger.New(store, logger)
	triggers := trigger.NewStore(store)
	sc := scanner.New(store, l, triggers, initResolver(cfg, store), emitter, cfg.Scanner.Workers, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		ledger:   l,
		triggers: triggers,
		scanner:  sc,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// withApp loads config, wires the app, runs fn and closes storage.
func withApp(fn func(a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := initApp(cfg, NewLogger(cfg))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
