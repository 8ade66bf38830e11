package question

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxAttempts = 8
	defaultBaseDelay   = 500 * time.Millisecond
	defaultMaxDelay    = 10 * time.Second
	defaultBatchLimit  = 4
)

// RetryPolicy bounds the regenerate loop of a single acquisition.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// PipelineOptions configures optional pipeline collaborators.
type PipelineOptions struct {
	Retry      RetryPolicy
	BatchLimit int
	Events     EventPublisher
	Metrics    *Metrics
}

// Pipeline turns provider text into stored questions: generate, parse,
// validate, register topic, store, and regenerate on malformed or duplicate
// content. It keeps no mutable state between calls; concurrent callers only
// coordinate through TopicRegistry and QuestionStore.
type Pipeline struct {
	topics     TopicRegistry
	store      QuestionStore
	provider   Provider
	events     EventPublisher
	metrics    *Metrics
	retry      RetryPolicy
	batchLimit int
	logger     zerolog.Logger
}

func NewPipeline(topics TopicRegistry, store QuestionStore, provider Provider, logger zerolog.Logger, opts PipelineOptions) *Pipeline {
	policy := opts.Retry
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = defaultMaxAttempts
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = defaultBaseDelay
	}
	if policy.MaxDelay < policy.BaseDelay {
		policy.MaxDelay = defaultMaxDelay
		if policy.MaxDelay < policy.BaseDelay {
			policy.MaxDelay = policy.BaseDelay
		}
	}
	batchLimit := opts.BatchLimit
	if batchLimit <= 0 {
		batchLimit = defaultBatchLimit
	}
	return &Pipeline{
		topics:     topics,
		store:      store,
		provider:   provider,
		events:     opts.Events,
		metrics:    opts.Metrics,
		retry:      policy,
		batchLimit: batchLimit,
		logger:     logger.With().Str("component", "acquisition").Logger(),
	}
}

// AcquireOne blocks until one new question for topic is stored, the retry
// budget is spent (ErrExhausted), storage fails (*StorageError) or ctx ends.
// The caller's topic always wins over a Theme: line in the provider text.
func (p *Pipeline) AcquireOne(ctx context.Context, topic string) (StoredQuestion, error) {
	name, err := NormalizeTopic(topic)
	if err != nil {
		return StoredQuestion{}, fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	t, err := p.ensureTopic(ctx, name)
	if err != nil {
		return StoredQuestion{}, err
	}

	logger := p.logger.With().Str("topic", t.Name).Logger()
	return p.run(ctx, logger, SourceProvider, func(ctx context.Context) (Topic, Candidate, error) {
		raw, err := p.generate(ctx, t.Name)
		if err != nil {
			return Topic{}, Candidate{}, err
		}
		c, err := Parse(raw, LayoutTopicSupplied)
		if err != nil {
			logger.Debug().Str("raw", raw).Msg("unparseable provider output")
			return Topic{}, Candidate{}, err
		}
		if c.Topic != "" && c.Topic != t.Name {
			logger.Debug().Str("parsed_topic", c.Topic).Msg("provider named a different theme; keeping requested topic")
		}
		c.Topic = t.Name
		return t, c, nil
	})
}

// AcquireAny lets the provider choose the topic. The parsed Theme: line is
// registered before the question is stored.
func (p *Pipeline) AcquireAny(ctx context.Context) (StoredQuestion, error) {
	return p.run(ctx, p.logger, SourceRandom, func(ctx context.Context) (Topic, Candidate, error) {
		raw, err := p.generate(ctx, "")
		if err != nil {
			return Topic{}, Candidate{}, err
		}
		c, err := Parse(raw, LayoutTopicInline)
		if err != nil {
			p.logger.Debug().Str("raw", raw).Msg("unparseable provider output")
			return Topic{}, Candidate{}, err
		}
		t, err := p.ensureTopic(ctx, c.Topic)
		if err != nil {
			return Topic{}, Candidate{}, err
		}
		return t, c, nil
	})
}

// AcquireMany runs up to count acquisitions for topic with bounded
// concurrency. The first failure cancels the remaining ones.
func (p *Pipeline) AcquireMany(ctx context.Context, topic string, count int) ([]StoredQuestion, error) {
	if count <= 0 {
		return nil, nil
	}
	if _, err := NormalizeTopic(topic); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}

	results := make([]StoredQuestion, count)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.batchLimit)
	for i := 0; i < count; i++ {
		g.Go(func() error {
			q, err := p.AcquireOne(gctx, topic)
			if err != nil {
				return err
			}
			results[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

type attemptFunc func(ctx context.Context) (Topic, Candidate, error)

func (p *Pipeline) run(ctx context.Context, logger zerolog.Logger, source string, next attemptFunc) (StoredQuestion, error) {
	var (
		stored   StoredQuestion
		attempts int
	)

	err := retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		attempts++
		t, c, err := next(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return ctx.Err()
			case IsStorageFailure(err):
				p.metrics.attempt(outcomeStorageError)
				return err
			case errors.Is(err, ErrParse):
				p.metrics.attempt(outcomeParseFailure)
				logger.Warn().Err(err).Int("attempt", attempts).Msg("discarding malformed candidate")
			default:
				p.metrics.attempt(outcomeProviderError)
				logger.Warn().Err(err).Int("attempt", attempts).Msg("provider call failed")
			}
			return retry.RetryableError(err)
		}

		if !ValidCorrectLabel(c.Correct) {
			p.metrics.attempt(outcomeParseFailure)
			return retry.RetryableError(parseErrorf("correct answer %q is not one of A-D", c.Correct))
		}

		q, err := p.store.InsertQuestion(ctx, t, c, source)
		switch {
		case errors.Is(err, ErrDuplicate):
			p.metrics.attempt(outcomeDuplicate)
			logger.Info().Int("attempt", attempts).Str("partition", t.Partition).Msg("duplicate candidate, regenerating")
			return retry.RetryableError(err)
		case err != nil:
			p.metrics.attempt(outcomeStorageError)
			if IsStorageFailure(err) {
				return err
			}
			return &StorageError{Op: "insert question", Err: err}
		}

		p.metrics.attempt(outcomeInserted)
		stored = q
		return nil
	})

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return StoredQuestion{}, ctxErr
		}
		if IsStorageFailure(err) {
			logger.Error().Err(err).Int("attempts", attempts).Msg("acquisition aborted by storage failure")
			return StoredQuestion{}, err
		}
		logger.Warn().Err(err).Int("attempts", attempts).Msg("acquisition retry budget exhausted")
		return StoredQuestion{}, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, err)
	}

	logger.Info().
		Str("question_id", stored.ID).
		Str("topic", stored.Topic).
		Int("attempts", attempts).
		Msg("question acquired")

	if p.events != nil {
		if err := p.events.PublishAcquired(ctx, stored); err != nil {
			logger.Warn().Err(err).Str("question_id", stored.ID).Msg("failed to publish acquisition event")
		}
	}
	return stored, nil
}

func (p *Pipeline) ensureTopic(ctx context.Context, name string) (Topic, error) {
	t, created, err := p.topics.EnsureTopic(ctx, name)
	if err != nil {
		if IsStorageFailure(err) {
			return Topic{}, err
		}
		if errors.Is(err, ErrInvalidTopic) {
			return Topic{}, err
		}
		return Topic{}, &StorageError{Op: "ensure topic", Err: err}
	}
	if created {
		p.metrics.topicCreated()
		p.logger.Info().Str("topic", t.Name).Str("partition", t.Partition).Msg("topic registered")
	}
	return t, nil
}

func (p *Pipeline) generate(ctx context.Context, topic string) (string, error) {
	start := time.Now()
	raw, err := p.provider.Generate(ctx, topic)
	p.metrics.observeProvider(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("provider generate: %w", err)
	}
	return raw, nil
}

func (p *Pipeline) backoff() retry.Backoff {
	b := retry.NewExponential(p.retry.BaseDelay)
	b = retry.WithJitterPercent(10, b)
	b = retry.WithCappedDuration(p.retry.MaxDelay, b)
	return retry.WithMaxRetries(uint64(p.retry.MaxAttempts-1), b)
}
