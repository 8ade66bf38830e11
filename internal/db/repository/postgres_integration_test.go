//go:build integration

package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/gokatarajesh/quizbank/internal/db"
	sqlcgen "github.com/gokatarajesh/quizbank/internal/db/sqlc"
	"github.com/gokatarajesh/quizbank/internal/question"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("quizbank"),
		postgres.WithUsername("quizbank"),
		postgres.WithPassword("quizbank"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool))
	return pool
}

func TestPostgresConcurrentTopicAndQuestionInserts(t *testing.T) {
	pool := startPostgres(t)
	queries := sqlcgen.New(pool)
	topics := NewTopicRepository(queries)
	questions := NewQuestionRepository(queries)
	ctx := context.Background()

	const workers = 16

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		parts   = make(map[string]struct{})
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			topic, ok, err := topics.EnsureTopic(ctx, "World History")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			parts[topic.Partition] = struct{}{}
			if ok {
				created++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)
	assert.Len(t, parts, 1)

	topic, err := topics.FindTopic(ctx, "world history")
	require.NoError(t, err)

	c := question.Candidate{
		Prompt: "Which empire built Machu Picchu?",
		Options: [4]question.Option{
			{Label: "A", Text: "Aztec"},
			{Label: "B", Text: "Inca"},
			{Label: "C", Text: "Maya"},
			{Label: "D", Text: "Olmec"},
		},
		Correct:    "B",
		Difficulty: "easy",
	}

	var inserted, duplicates int
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := questions.InsertQuestion(ctx, topic, c, question.SourceProvider)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				inserted++
			case errors.Is(err, question.ErrDuplicate):
				duplicates++
			default:
				t.Errorf("unexpected insert error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, inserted)
	assert.Equal(t, workers-1, duplicates)

	n, err := questions.CountQuestions(ctx, topic)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	sample, err := questions.SampleQuestions(ctx, topic, 10)
	require.NoError(t, err)
	require.Len(t, sample, 1)
	assert.Equal(t, c.Options, sample[0].Options)
}
