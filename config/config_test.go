package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "dev-secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:7777", cfg.App.BaseURL)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, CatalogStorePostgres, cfg.Catalog.Store)
	assert.Equal(t, "gemini-1.5-flash", cfg.Chatbot.Model)
	assert.Equal(t, 500, cfg.Chatbot.MaxOutputTokens)
	assert.Equal(t, 10, cfg.Security.BcryptCost)
	assert.Equal(t, 24*time.Hour, cfg.JWT.AccessTokenTTL)
	assert.False(t, cfg.Email.Configured())
}

func TestLoadEnvFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "JWT_SECRET=from-file\nAPP_PORT=9000\nBASE_URL=\"https://manud.example/\"\nCORS_ALLOWED_ORIGINS=https://a.example, https://b.example\nEMAIL_USER=bot@manud.example\nEMAIL_PASSWORD=pw\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	t.Setenv("APP_PORT", "9100")
	t.Setenv("JWT_EXPIRED_IN", "2h")

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.JWT.SecretKey)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, "https://manud.example", cfg.App.BaseURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, "bot@manud.example", cfg.Email.FromEmail)
	assert.True(t, cfg.Email.Configured())
}

func TestLoadMissingEnvFileIsIgnored(t *testing.T) {
	t.Setenv("JWT_SECRET", "dev-secret")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestValidateCollectsProblems(t *testing.T) {
	t.Setenv("JWT_SECRET", "dev-secret")
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.App.Environment = "production"
	cfg.Catalog.Store = "firestore"
	cfg.Logging.Level = "loud"

	err = Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CATALOG_STORE must be one of")
	assert.Contains(t, err.Error(), "LOG_LEVEL must be one of")
	assert.Contains(t, err.Error(), "DB_PASSWORD is required")
	assert.Contains(t, err.Error(), "JWT_SECRET must be at least 32 characters long")
}

func TestValidateRequiresSecretOutsideProduction(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "manud", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=manud sslmode=disable TimeZone=UTC", d.DSN())
}
