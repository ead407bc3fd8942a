package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears keys for the duration of the test; t.Setenv restores them afterwards.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadFromEnvOnly(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_IDS", "111,222")
	unsetEnv(t, "STORAGE_DRIVER", "STORAGE_PATH", "TELEGRAM_RUN_MODE", "IMAGES_DIR", "INSTRUCTION_FILES")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, IDList{111, 222}, cfg.Telegram.AdminIDs)
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, StorageFile, cfg.Storage.Driver)
	assert.Equal(t, DefaultStoragePath, cfg.Storage.Path)
	assert.Equal(t, DefaultImagesDir, cfg.Content.ImagesDir)
	assert.Len(t, cfg.Content.InstructionFiles, 6)
}

func TestLoadAdminIDsWithBlanks(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	unsetEnv(t, "STORAGE_DRIVER", "TELEGRAM_RUN_MODE")

	tests := []struct {
		value string
		want  IDList
	}{
		{value: "123456789, 987654321", want: IDList{123456789, 987654321}},
		{value: " 1 ,2,, 3 ", want: IDList{1, 2, 3}},
		{value: "", want: IDList{}},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("ADMIN_IDS", tt.value)
			cfg, err := Load("")
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Telegram.AdminIDs)
		})
	}
}

func TestLoadRejectsBadAdminID(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_IDS", "12, abc")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"abc"`)
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	t.Setenv("BOT_TOKEN", "from-env")
	unsetEnv(t, "ADMIN_IDS", "STORAGE_DRIVER", "STORAGE_PATH", "TELEGRAM_RUN_MODE", "REPORTS_DAILY_CRON")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
telegram:
  token: from-file
  admin_ids: [42, 43]
  run_mode: polling
storage:
  path: state/bot.json
reports:
  daily_cron: "0 21 * * *"
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, IDList{42, 43}, cfg.Telegram.AdminIDs)
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, "state/bot.json", cfg.Storage.Path)
	assert.Equal(t, "0 21 * * *", cfg.Reports.DailyCron)
}

func TestNormalizeMissingToken(t *testing.T) {
	err := Normalize(&Config{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissing))

	var missing *MissingError
	require.ErrorAs(t, err, &missing)
	assert.Contains(t, missing.Keys, "BOT_TOKEN")
	assert.Equal(t, "CONFIG_MISSING", missing.Code())
}

func TestNormalizeRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{
			name: "unknown run mode",
			cfg:  Config{Telegram: TelegramConfig{Token: "t", RunMode: "push"}},
		},
		{
			name: "webhook without url",
			cfg:  Config{Telegram: TelegramConfig{Token: "t", RunMode: RunModeWebhook}},
		},
		{
			name: "unknown storage driver",
			cfg:  Config{Telegram: TelegramConfig{Token: "t"}, Storage: StorageConfig{Driver: "redis"}},
		},
		{
			name: "postgres without host",
			cfg:  Config{Telegram: TelegramConfig{Token: "t"}, Storage: StorageConfig{Driver: StoragePostgres}},
		},
		{
			name: "negative admin id",
			cfg:  Config{Telegram: TelegramConfig{Token: "t", AdminIDs: []int64{-5}}},
		},
		{
			name: "bad rate limit exclusion",
			cfg:  Config{Telegram: TelegramConfig{Token: "t"}, RateLimit: RateLimitConfig{ExcludeUpdates: []string{"photo"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := Normalize(&cfg)
			require.Error(t, err)
			assert.False(t, errors.Is(err, ErrMissing))
		})
	}
}

func TestNormalizePostgresDefaults(t *testing.T) {
	cfg := Config{
		Telegram: TelegramConfig{Token: "t"},
		Storage:  StorageConfig{Driver: "Postgres"},
		Database: DatabaseConfig{Host: "db", Name: "pricebot"},
	}
	require.NoError(t, Normalize(&cfg))
	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "migrations", cfg.Database.MigrationsDir)
	assert.Equal(t, 4, cfg.Database.MaxConnections)
}
