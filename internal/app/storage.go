package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizbank/internal/config"
	"github.com/gokatarajesh/quizbank/internal/db"
	"github.com/gokatarajesh/quizbank/internal/db/badgerstore"
	"github.com/gokatarajesh/quizbank/internal/db/repository"
	sqlcgen "github.com/gokatarajesh/quizbank/internal/db/sqlc"
	"github.com/gokatarajesh/quizbank/internal/question"
)

// TopicStore is what the pipeline, service and handlers need from topic storage.
type TopicStore interface {
	question.TopicRegistry
	question.TopicFinder
}

// QuestionBank adds counting to question.QuestionStore.
type QuestionBank interface {
	question.QuestionStore
	CountQuestions(ctx context.Context, topic question.Topic) (int64, error)
}

// Storage is an opened question bank backend.
type Storage struct {
	Topics    TopicStore
	Questions QuestionBank

	pool   *pgxpool.Pool
	badger *badgerstore.Backend
}

// OpenStorage opens the backend selected by cfg.Storage.Driver.
func OpenStorage(ctx context.Context, cfg *config.App, logger zerolog.Logger) (*Storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverBadger:
		backend, err := badgerstore.Open(cfg.Storage.BadgerDir, false, logger)
		if err != nil {
			return nil, fmt.Errorf("open badger: %w", err)
		}
		logger.Info().Str("dir", cfg.Storage.BadgerDir).Msg("badger question bank opened")
		return &Storage{
			Topics:    badgerstore.NewTopicStore(backend),
			Questions: badgerstore.NewQuestionStore(backend),
			badger:    backend,
		}, nil

	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Storage.AutoMigrate {
			if err := db.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
			logger.Info().Msg("database migrations applied")
		}
		queries := sqlcgen.New(pool)
		return &Storage{
			Topics:    repository.NewTopicRepository(queries),
			Questions: repository.NewQuestionRepository(queries),
			pool:      pool,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Ping checks the backend. Badger is embedded and always reachable once open.
func (s *Storage) Ping(ctx context.Context) error {
	if s.pool != nil {
		return s.pool.Ping(ctx)
	}
	return nil
}

// Close releases the backend.
func (s *Storage) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.badger != nil {
		return s.badger.Close()
	}
	return nil
}
