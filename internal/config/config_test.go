package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PG_USER", "quiz")
	t.Setenv("PG_DATABASE", "quizbank")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "quizbank", cfg.Name)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.True(t, cfg.Storage.AutoMigrate)
	assert.Equal(t, ProviderHTTP, cfg.Provider.Kind)
	assert.Equal(t, 8, cfg.Acquisition.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Acquisition.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.Producer.Interval)
	assert.True(t, cfg.Producer.Enabled)
	assert.Equal(t, 10, cfg.Quiz.MaxPackSize)
	assert.Equal(t, "questions:acquired", cfg.Feed.Channel)
	assert.Len(t, cfg.Feed.AllowedOrigins, 2)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORAGE_DRIVER", "badger")
	t.Setenv("BADGER_DIR", "/tmp/bank")
	t.Setenv("PROVIDER_KIND", "openai")
	t.Setenv("ACQUIRE_MAX_ATTEMPTS", "3")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("FEED_ALLOWED_ORIGINS", "https://quiz.example")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, DriverBadger, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/bank", cfg.Storage.BadgerDir)
	assert.Equal(t, ProviderOpenAI, cfg.Provider.Kind)
	assert.Equal(t, 3, cfg.Acquisition.MaxAttempts)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, []string{"https://quiz.example"}, cfg.Feed.AllowedOrigins)
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("PG_USER", "quiz")
	t.Setenv("PG_DATABASE", "quizbank")

	_, err := Load(context.Background())
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*App)
	}{
		{"unknown driver", func(c *App) { c.Storage.Driver = "sqlite" }},
		{"postgres without user", func(c *App) { c.Postgres.User = "" }},
		{"badger without dir", func(c *App) { c.Storage.Driver = DriverBadger; c.Storage.BadgerDir = "" }},
		{"unknown provider", func(c *App) { c.Provider.Kind = "carrier-pigeon" }},
		{"zero attempts", func(c *App) { c.Acquisition.MaxAttempts = 0 }},
		{"zero pack size", func(c *App) { c.Quiz.MaxPackSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validApp()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, validApp().Validate())
}

func TestPostgresDSN(t *testing.T) {
	p := Postgres{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "disable", MaxConns: 4}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=disable pool_max_conns=4", p.DSN())
}

func validApp() *App {
	return &App{
		Storage:     Storage{Driver: DriverPostgres, BadgerDir: "data"},
		Postgres:    Postgres{User: "quiz", Database: "quizbank"},
		Provider:    Provider{Kind: ProviderHTTP},
		Acquisition: Acquisition{MaxAttempts: 1},
		Quiz:        Quiz{MaxPackSize: 1},
	}
}
