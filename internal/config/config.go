package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverBadger   = "badger"
)

// Provider kinds.
const (
	ProviderHTTP   = "http"
	ProviderOpenAI = "openai"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"quizbank"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Storage     Storage
	Postgres    Postgres
	Redis       Redis
	Security    Security
	Provider    Provider
	Acquisition Acquisition
	Producer    Producer
	Quiz        Quiz
	Feed        Feed
}

// Storage selects the question bank backend.
type Storage struct {
	Driver      string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	BadgerDir   string `env:"BADGER_DIR" envDefault:"data/badger"`
	AutoMigrate bool   `env:"STORAGE_AUTO_MIGRATE" envDefault:"true"`
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST" envDefault:"localhost"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER"`
	Password string `env:"PG_PASSWORD"`
	Database string `env:"PG_DATABASE"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// DSN renders a pgx keyword/value connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode, p.MaxConns)
}

// Redis holds cache + pub/sub configuration. An empty Addr disables Redis.
type Redis struct {
	Addr     string `env:"REDIS_ADDR"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Enabled reports whether a Redis address is configured.
func (r Redis) Enabled() bool {
	return r.Addr != ""
}

// Security stores secrets for signing and auth.
type Security struct {
	JWTSecret          string        `env:"JWT_SECRET,notEmpty"`
	JWTIssuer          string        `env:"JWT_ISSUER" envDefault:"quizbank"`
	JWTTTL             time.Duration `env:"JWT_TTL" envDefault:"1h"`
	QuestionHMACSecret string        `env:"QUESTION_HMAC_SECRET"`
}

// Provider configures the question text generator.
type Provider struct {
	Kind        string        `env:"PROVIDER_KIND" envDefault:"http"`
	URL         string        `env:"AI_GENERATOR_URL"`
	APIKey      string        `env:"AI_GENERATOR_API_KEY"`
	Model       string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	Temperature float64       `env:"LLM_TEMPERATURE" envDefault:"0.7"`
	Timeout     time.Duration `env:"AI_HTTP_TIMEOUT" envDefault:"30s"`
}

// Acquisition tunes the pipeline's regeneration loop.
type Acquisition struct {
	MaxAttempts    int           `env:"ACQUIRE_MAX_ATTEMPTS" envDefault:"8"`
	BaseDelay      time.Duration `env:"ACQUIRE_BASE_DELAY" envDefault:"250ms"`
	MaxDelay       time.Duration `env:"ACQUIRE_MAX_DELAY" envDefault:"10s"`
	BatchLimit     int           `env:"ACQUIRE_BATCH_CONCURRENCY" envDefault:"4"`
	RequestTimeout time.Duration `env:"ACQUIRE_REQUEST_TIMEOUT" envDefault:"60s"`
}

// Producer governs the background acquisition loop.
type Producer struct {
	Enabled          bool          `env:"PRODUCER_ENABLED" envDefault:"true"`
	Interval         time.Duration `env:"PRODUCER_INTERVAL" envDefault:"30s"`
	AttemptTimeout   time.Duration `env:"PRODUCER_ATTEMPT_TIMEOUT" envDefault:"2m"`
	FailureBaseDelay time.Duration `env:"PRODUCER_FAILURE_BASE_DELAY" envDefault:"5s"`
	FailureMaxDelay  time.Duration `env:"PRODUCER_FAILURE_MAX_DELAY" envDefault:"5m"`
	SeedFile         string        `env:"PRODUCER_SEED_FILE"`
}

// Quiz configures pack serving.
type Quiz struct {
	MaxPackSize int           `env:"QUIZ_MAX_PACK_SIZE" envDefault:"10"`
	CacheTTL    time.Duration `env:"QUIZ_CACHE_TTL" envDefault:"5m"`
}

// Feed configures the live acquisition feed.
type Feed struct {
	Channel        string   `env:"FEED_CHANNEL" envDefault:"questions:acquired"`
	AllowedOrigins []string `env:"FEED_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c *App) Validate() error {
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Postgres.User == "" || c.Postgres.Database == "" {
			return fmt.Errorf("PG_USER and PG_DATABASE are required for the postgres driver")
		}
	case DriverBadger:
		if c.Storage.BadgerDir == "" {
			return fmt.Errorf("BADGER_DIR is required for the badger driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	switch c.Provider.Kind {
	case ProviderHTTP, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown PROVIDER_KIND %q", c.Provider.Kind)
	}

	if c.Acquisition.MaxAttempts < 1 {
		return fmt.Errorf("ACQUIRE_MAX_ATTEMPTS must be at least 1")
	}
	if c.Quiz.MaxPackSize < 1 {
		return fmt.Errorf("QUIZ_MAX_PACK_SIZE must be at least 1")
	}
	return nil
}
