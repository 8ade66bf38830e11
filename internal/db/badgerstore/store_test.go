package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quizbank/internal/question"
)

func openTestBackend(t *testing.T) *Backend {
	t.Helper()
	backend, err := OpenInMemory(zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return backend
}

func candidate(prompt string) question.Candidate {
	return question.Candidate{
		Prompt: prompt,
		Options: [4]question.Option{
			{Label: "A", Text: "one"},
			{Label: "B", Text: "two"},
			{Label: "C", Text: "three"},
			{Label: "D", Text: "four"},
		},
		Correct:    "C",
		Difficulty: "medium",
	}
}

func TestEnsureTopicIdempotent(t *testing.T) {
	topics := NewTopicStore(openTestBackend(t))
	ctx := context.Background()

	first, created, err := topics.EnsureTopic(ctx, "World History")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "world history", first.Name)

	second, created, err := topics.EnsureTopic(ctx, "  world   HISTORY ")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second)

	_, _, err = topics.EnsureTopic(ctx, "")
	assert.ErrorIs(t, err, question.ErrInvalidTopic)

	list, err := topics.ListTopics(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	found, err := topics.FindTopic(ctx, "world history")
	require.NoError(t, err)
	assert.Equal(t, first.Partition, found.Partition)

	_, err = topics.FindTopic(ctx, "astronomy")
	assert.ErrorIs(t, err, question.ErrTopicNotFound)
}

func TestEnsureTopicConcurrentCreatesOnce(t *testing.T) {
	topics := NewTopicStore(openTestBackend(t))

	const workers = 16
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		created    int
		partitions = make(map[string]struct{})
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			topic, ok, err := topics.EnsureTopic(context.Background(), "astronomy")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			partitions[topic.Partition] = struct{}{}
			if ok {
				created++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Len(t, partitions, 1)
}

func TestInsertQuestionDeduplicates(t *testing.T) {
	backend := openTestBackend(t)
	topics := NewTopicStore(backend)
	questions := NewQuestionStore(backend)
	ctx := context.Background()

	topic, _, err := topics.EnsureTopic(ctx, "science")
	require.NoError(t, err)

	q, err := questions.InsertQuestion(ctx, topic, candidate("What is H2O?"), question.SourceProvider)
	require.NoError(t, err)
	assert.NotEmpty(t, q.ID)
	assert.Equal(t, "science", q.Topic)

	equivalent := candidate("  what is h2o ")
	equivalent.Options[0], equivalent.Options[3] = equivalent.Options[3], equivalent.Options[0]
	_, err = questions.InsertQuestion(ctx, topic, equivalent, question.SourceProvider)
	assert.ErrorIs(t, err, question.ErrDuplicate)

	// The same content is allowed in a different partition.
	other, _, err := topics.EnsureTopic(ctx, "chemistry")
	require.NoError(t, err)
	_, err = questions.InsertQuestion(ctx, other, candidate("What is H2O?"), question.SourceProvider)
	assert.NoError(t, err)

	sample, err := questions.SampleQuestions(ctx, topic, 10)
	require.NoError(t, err)
	require.Len(t, sample, 1)
	assert.Equal(t, q.ID, sample[0].ID)
	assert.Equal(t, q.ContentHash, sample[0].ContentHash)
	assert.Equal(t, "C", sample[0].Correct)
}

func TestInsertQuestionConcurrentUniqueness(t *testing.T) {
	backend := openTestBackend(t)
	topic, _, err := NewTopicStore(backend).EnsureTopic(context.Background(), "science")
	require.NoError(t, err)
	questions := NewQuestionStore(backend)

	const workers = 24
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		inserted   int
		duplicates int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := questions.InsertQuestion(context.Background(), topic, candidate("Same?"), question.SourceProvider)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				inserted++
			case errors.Is(err, question.ErrDuplicate):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, inserted)
	assert.Equal(t, workers-1, duplicates)

	n, err := questions.CountQuestions(context.Background(), topic)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSampleQuestionsLimit(t *testing.T) {
	backend := openTestBackend(t)
	topic, _, err := NewTopicStore(backend).EnsureTopic(context.Background(), "science")
	require.NoError(t, err)
	questions := NewQuestionStore(backend)

	for i := 0; i < 5; i++ {
		_, err := questions.InsertQuestion(context.Background(), topic, candidate(fmt.Sprintf("Q%d?", i)), question.SourceProvider)
		require.NoError(t, err)
	}

	sample, err := questions.SampleQuestions(context.Background(), topic, 3)
	require.NoError(t, err)
	assert.Len(t, sample, 3)

	empty, err := questions.SampleQuestions(context.Background(), question.Topic{Partition: "theme_none_00000000"}, 3)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPipelineOnBadger(t *testing.T) {
	backend := openTestBackend(t)
	topics := NewTopicStore(backend)
	questions := NewQuestionStore(backend)

	block := "Question: %s\nA) one\nB) two\nC) three\nD) four\nCorrect answer: A\nDifficulty level: easy"
	var (
		mu    sync.Mutex
		calls int
	)
	provider := question.ProviderFunc(func(ctx context.Context, topic string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls <= 2 {
			return fmt.Sprintf(block, "Repeated?"), nil
		}
		return fmt.Sprintf(block, fmt.Sprintf("Fresh %d?", calls)), nil
	})

	p := question.NewPipeline(topics, questions, provider, zerolog.Nop(), question.PipelineOptions{
		Retry: question.RetryPolicy{MaxAttempts: 4, BaseDelay: 1, MaxDelay: 1},
	})

	first, err := p.AcquireOne(context.Background(), "science")
	require.NoError(t, err)
	assert.Equal(t, "Repeated?", first.Prompt)

	second, err := p.AcquireOne(context.Background(), "science")
	require.NoError(t, err)
	assert.Equal(t, "Fresh 3?", second.Prompt)
	assert.Equal(t, 3, calls)
}
