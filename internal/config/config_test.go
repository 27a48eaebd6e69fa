package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/straye-as/estate-sales-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so no config.json or .env is picked up
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.True(t, cfg.Lifecycle.EnforceUnitAvailability)
	assert.Equal(t, 10*time.Minute, cfg.Lifecycle.JournalStaleAfterDuration())
	assert.Equal(t, 100*time.Millisecond, cfg.Lifecycle.ReadRetryDelay())
	assert.Equal(t, "EG", cfg.Clients.DefaultRegion)
	assert.Equal(t, "local", cfg.Storage.Mode)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 15*time.Second, cfg.Redis.LockTTLDuration())
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "0 */5 * * * *", cfg.Jobs.JournalSweepSchedule)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	inTempDir(t)
	t.Setenv("APP_PORT", "9090")
	t.Setenv("LIFECYCLE_ENFORCEUNITAVAILABILITY", "false")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("ADMIN_API_KEY", "from-env")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.False(t, cfg.Lifecycle.EnforceUnitAvailability)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "from-env", cfg.Auth.ApiKey)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{
		"app": {"environment": "staging"},
		"storage": {"mode": "cloud", "cloudContainer": "signed"}
	}`), 0o600))

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.App.Environment)
	assert.Equal(t, "cloud", cfg.Storage.Mode)
	assert.Equal(t, "signed", cfg.Storage.CloudContainer)
}

type fakeSecrets map[string]string

func (f fakeSecrets) GetSecretOrEnv(ctx context.Context, secretName, envVar string) (string, error) {
	if v, ok := f[secretName]; ok {
		return v, nil
	}
	return "", errors.New("secret not found")
}

func TestApplySecrets(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Host = "localhost"
	cfg.Redis.Password = "keep-me"

	err := config.ApplySecrets(context.Background(), cfg, fakeSecrets{
		"POSTGRES-MAIN-HOST":     "db.internal",
		"POSTGRES-MAIN-PASSWORD": "s3cret",
		"auth-jwt-secret":        "jwt-secret",
		"admin-api-key":          "",
	})
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "jwt-secret", cfg.Auth.JWTSecret)
	assert.Empty(t, cfg.Auth.ApiKey)
	// Optional secrets that cannot be resolved leave the setting untouched
	assert.Equal(t, "keep-me", cfg.Redis.Password)
}

func TestApplySecrets_RequiredSecretMissing(t *testing.T) {
	err := config.ApplySecrets(context.Background(), &config.Config{}, fakeSecrets{
		"auth-jwt-secret": "jwt-secret",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES-MAIN-PASSWORD")
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	d := &config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "estate", SSLMode: "require"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=estate sslmode=require", d.ConnectionString())
}
