package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/Expiry-Guardian/internal/config"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/model"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Storage: config.StorageConfig{Path: filepath.Join(dir, "eg.db")},
		Scanner: config.ScannerConfig{Workers: 2},
		Logging: config.LoggingConfig{Level: "debug", Format: "text", File: filepath.Join(dir, "logs", "eg.log"), MaxSizeMB: 1},
	}
}

func TestNewLogger_WritesToFile(t *testing.T) {
	cfg := testConfig(t)

	logger := NewLogger(cfg)
	logger.Debug("sweep complete", "scanned", 3)

	data, err := os.ReadFile(cfg.Logging.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sweep complete")
	assert.Contains(t, string(data), "scanned=3")
}

func TestInitNotifiers(t *testing.T) {
	cfg := testConfig(t)
	assert.Empty(t, initNotifiers(cfg))

	cfg.Alerts.Slack = config.SlackConfig{Enabled: true, WebhookURL: "https://hooks.slack.com/x"}
	cfg.Alerts.Webhook = config.WebhookConfig{Enabled: true, URL: "https://example.com/hook"}
	notifiers := initNotifiers(cfg)
	require.Len(t, notifiers, 2)
	assert.Equal(t, "slack", notifiers[0].Name())
	assert.Equal(t, "webhook", notifiers[1].Name())
}

func TestInitApp_ResolverFallsBack(t *testing.T) {
	cfg := testConfig(t)
	cfg.Recipients.Fallback = []string{"portfolio-ops"}

	a, err := initApp(cfg, NewLogger(cfg))
	require.NoError(t, err)
	defer a.Close()
	ctx := context.Background()

	ref := model.EntityRef{Kind: model.KindLease, ID: "lease-1"}
	resolver := initResolver(cfg, a.store)

	users, err := resolver.Resolve(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []string{"portfolio-ops"}, users)

	require.NoError(t, a.store.SetAssignment(ctx, &model.Assignment{Entity: ref, UserID: "alice"}))
	users, err = resolver.Resolve(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, users)
}
