package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizbank/internal/auth"
	"github.com/gokatarajesh/quizbank/internal/auth/jwt"
	"github.com/gokatarajesh/quizbank/internal/config"
	"github.com/gokatarajesh/quizbank/internal/feed"
	"github.com/gokatarajesh/quizbank/internal/logging"
	"github.com/gokatarajesh/quizbank/internal/question"
	"github.com/gokatarajesh/quizbank/internal/server"
	ws "github.com/gokatarajesh/quizbank/pkg/http/ws"
)

// Application aggregates shared infrastructure (storage, cache, HTTP server)
// and the background acquisition workers.
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	storage *Storage
	redis   *redis.Client
	hub     *ws.Hub
	http    *http.Server

	producer    *question.Producer
	broadcaster *feed.Broadcaster

	startOnce sync.Once
	bgCancels []context.CancelFunc
	bgWG      sync.WaitGroup
}

// New bootstraps logger, storage, Redis, the acquisition pipeline and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Str("storage", cfg.Storage.Driver).Str("provider", cfg.Provider.Kind).Msg("starting application bootstrap")

	storage, err := OpenStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	provider, err := NewProvider(cfg.Provider, logger)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := question.NewMetrics(registry)

	hub := ws.NewHub(logger)
	checks := map[string]server.DependencyCheck{"storage": storage.Ping}

	var (
		redisClient *redis.Client
		events      question.EventPublisher
		cache       question.PackCache
		broadcaster *feed.Broadcaster
	)
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		cache = question.NewCache(redisClient, cfg.Quiz.CacheTTL)
		events = feed.NewPublisher(redisClient, cfg.Feed.Channel)
		broadcaster = feed.NewBroadcaster(redisClient, hub, cfg.Feed.Channel, logger)
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		logger.Warn().Msg("REDIS_ADDR not set; quiz pack caching disabled, feed is process-local")
		events = feed.NewHubPublisher(hub, logger)
	}

	pipeline := NewPipeline(cfg, storage, provider, events, metrics, logger)

	questionSvc := question.NewService(storage.Topics, storage.Questions, cache, question.ServiceOptions{
		HMACSecret:  []byte(cfg.Security.QuestionHMACSecret),
		MaxPackSize: cfg.Quiz.MaxPackSize,
		Refiller:    pipeline,
	})

	var producer *question.Producer
	if cfg.Producer.Enabled {
		var seeds []string
		if cfg.Producer.SeedFile != "" {
			seeds, err = question.LoadSeedTopics(cfg.Producer.SeedFile)
			if err != nil {
				_ = storage.Close()
				return nil, fmt.Errorf("load seed topics: %w", err)
			}
		}
		producer = question.NewProducer(pipeline, storage.Topics, logger, question.ProducerOptions{
			Interval:         cfg.Producer.Interval,
			AttemptTimeout:   cfg.Producer.AttemptTimeout,
			FailureBaseDelay: cfg.Producer.FailureBaseDelay,
			FailureMaxDelay:  cfg.Producer.FailureMaxDelay,
			Seeds:            seeds,
			Metrics:          metrics,
		})
	} else {
		logger.Warn().Msg("background producer disabled")
	}

	tokens := jwt.NewManager(jwt.TokenConfig{
		Secret: []byte(cfg.Security.JWTSecret),
		TTL:    cfg.Security.JWTTTL,
		Issuer: cfg.Security.JWTIssuer,
	})

	questionHandlers := question.NewHTTPHandlers(pipeline, storage.Topics, storage.Questions, questionSvc, cfg.Acquisition.RequestTimeout, logger).
		WithRefillPolicy(auth.HasRole(jwt.RoleOperator))

	apiServer := server.NewHTTPServer(cfg.HTTPAddr, logger, server.Routes{
		Questions: questionHandlers,
		Feed:      feed.NewHandler(hub, cfg.Feed.AllowedOrigins, logger),
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Tokens:    tokens,
		Checks:    checks,
	})

	return &Application{
		cfg:         cfg,
		logger:      logger,
		storage:     storage,
		redis:       redisClient,
		hub:         hub,
		http:        apiServer,
		producer:    producer,
		broadcaster: broadcaster,
		bgCancels:   make([]context.CancelFunc, 0, 2),
	}, nil
}

// Run starts the HTTP server and background workers, then waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	a.shutdown()
	return runErr
}

func (a *Application) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}
	a.bgWG.Wait()
	a.hub.CloseAll()

	if err := a.storage.Close(); err != nil {
		a.logger.Error().Err(err).Msg("storage shutdown error")
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis shutdown error")
		}
	}

	a.logger.Info().Msg("shutdown complete")
}

// startBackgroundWorkers launches the producer and feed broadcaster exactly once.
func (a *Application) startBackgroundWorkers(ctx context.Context) {
	a.startOnce.Do(func() {
		if a.producer != nil {
			a.goWorker(ctx, "question producer", a.producer.Run)
		}
		if a.broadcaster != nil {
			a.goWorker(ctx, "feed broadcaster", a.broadcaster.Run)
		}
	})
}

func (a *Application) goWorker(ctx context.Context, name string, run func(context.Context) error) {
	bgCtx, cancel := context.WithCancel(ctx)
	a.bgCancels = append(a.bgCancels, cancel)
	a.bgWG.Add(1)
	go func() {
		defer a.bgWG.Done()
		if err := run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn().Err(err).Str("worker", name).Msg("background worker stopped")
		}
	}()
}
