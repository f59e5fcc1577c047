package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bizops-engine/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, config.FeedWorkbook, cfg.TimeFeed.Kind)
	assert.Equal(t, "invoices", cfg.AccountingFeed.Prefix)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "sqlite", cfg.OAuth.Store)
}

func TestLoad_EnvFileAndOverrides(t *testing.T) {
	// GIVEN: A .env file setting the port and an HTTP accounting feed,
	//        and HTTP_PORT already set in the environment
	// WHEN: Loading
	// THEN: The environment wins and the .env values fill the rest

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"HTTP_PORT=9000\n"+
			"ACCOUNTING_FEED_KIND=http\n"+
			"ACCOUNTING_FEED_URL=https://accounting.example.com/invoices\n"+
			"CORS_ALLOWED_ORIGINS=https://a.example.com, https://b.example.com\n"+
			"AGGREGATE_OTHER_CATEGORIES=true\n"), 0600))

	t.Setenv("HTTP_PORT", "7000")
	// godotenv never overrides a set variable, so these must be unset;
	// t.Setenv restores the previous state on cleanup
	for _, k := range []string{"ACCOUNTING_FEED_KIND", "ACCOUNTING_FEED_URL", "CORS_ALLOWED_ORIGINS", "AGGREGATE_OTHER_CATEGORIES"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, config.FeedHTTP, cfg.AccountingFeed.Kind)
	assert.Equal(t, "https://accounting.example.com/invoices", cfg.AccountingFeed.URL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.True(t, cfg.AggregateOtherCategories)
}

func TestValidate_HTTPFeedNeedsURL(t *testing.T) {
	t.Setenv("TIME_FEED_KIND", "http")
	t.Setenv("TIME_FEED_URL", "")

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TimeFeed.URL")
}

func TestValidate_UnknownFeedKind(t *testing.T) {
	t.Setenv("ACCOUNTING_FEED_KIND", "ftp")

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oneof")
}

func TestSummary_MasksSecrets(t *testing.T) {
	t.Setenv("ACCOUNTING_CLIENT_SECRET", "s3cret")
	t.Setenv("SMTP_PASS", "hunter2")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	for _, line := range cfg.Summary() {
		assert.NotContains(t, line, "s3cret")
		assert.NotContains(t, line, "hunter2")
	}
}

func TestSchedule(t *testing.T) {
	t.Setenv("SCHEDULE_ENABLED", "true")
	t.Setenv("SCHEDULE_INTERVAL", "6h")
	t.Setenv("SCHEDULE_REPORTS", "commission, benefits")

	t.Run("needs recipients when enabled", func(t *testing.T) {
		t.Setenv("REPORT_RECIPIENTS", "")
		_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Schedule.Recipients")
	})

	t.Run("loads", func(t *testing.T) {
		t.Setenv("REPORT_RECIPIENTS", "ops@example.com")
		cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err)
		assert.Equal(t, 6*time.Hour, cfg.Schedule.Interval)
		assert.Equal(t, []string{"commission", "benefits"}, cfg.Schedule.Reports)
	})

	t.Run("rejects unknown report", func(t *testing.T) {
		t.Setenv("REPORT_RECIPIENTS", "ops@example.com")
		t.Setenv("SCHEDULE_REPORTS", "payroll")
		_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Schedule.Reports")
	})
}
