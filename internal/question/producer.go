package question

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

/*
Background producer loop
------------------------
while running:
    topic = next registered topic (round robin), else next seed, else ""
    ctx   = context_with_timeout(PRODUCER_ATTEMPT_TIMEOUT)
    q, err = topic == "" ? pipeline.AcquireAny(ctx) : pipeline.AcquireOne(ctx, topic)
    if storage failure: sleep(backoff.next()) and continue
    backoff.reset()
    log(err)
    sleep(PRODUCER_INTERVAL)
*/

// Acquirer is the pipeline surface the producer drives.
type Acquirer interface {
	AcquireOne(ctx context.Context, topic string) (StoredQuestion, error)
	AcquireAny(ctx context.Context) (StoredQuestion, error)
}

// TopicLister lists registered topics for rotation.
type TopicLister interface {
	ListTopics(ctx context.Context) ([]Topic, error)
}

// ProducerOptions tunes the background producer.
type ProducerOptions struct {
	Interval         time.Duration
	AttemptTimeout   time.Duration
	FailureBaseDelay time.Duration
	FailureMaxDelay  time.Duration
	Seeds            []string
	Metrics          *Metrics
}

// Producer keeps growing the question bank for the whole process lifetime.
type Producer struct {
	acquirer       Acquirer
	topics         TopicLister
	seeds          []string
	interval       time.Duration
	attemptTimeout time.Duration
	failureBase    time.Duration
	failureMax     time.Duration
	metrics        *Metrics
	logger         zerolog.Logger

	running atomic.Bool

	mu     sync.Mutex
	cursor int
}

func NewProducer(acquirer Acquirer, topics TopicLister, logger zerolog.Logger, opts ProducerOptions) *Producer {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 2 * time.Minute
	}
	if opts.FailureBaseDelay <= 0 {
		opts.FailureBaseDelay = 5 * time.Second
	}
	if opts.FailureMaxDelay < opts.FailureBaseDelay {
		opts.FailureMaxDelay = 5 * time.Minute
	}

	seeds := make([]string, 0, len(opts.Seeds))
	seen := make(map[string]struct{}, len(opts.Seeds))
	for _, s := range opts.Seeds {
		name, err := NormalizeTopic(s)
		if err != nil {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		seeds = append(seeds, name)
	}

	return &Producer{
		acquirer:       acquirer,
		topics:         topics,
		seeds:          seeds,
		interval:       opts.Interval,
		attemptTimeout: opts.AttemptTimeout,
		failureBase:    opts.FailureBaseDelay,
		failureMax:     opts.FailureMaxDelay,
		metrics:        opts.Metrics,
		logger:         logger.With().Str("component", "question_producer").Logger(),
	}
}

// Run blocks until ctx is cancelled. A producer runs at most once; later calls
// return ErrProducerRunning.
func (p *Producer) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrProducerRunning
	}
	p.logger.Info().
		Dur("interval", p.interval).
		Strs("seeds", p.seeds).
		Msg("question producer started")

	pause := p.failureBackoff()
	for {
		if err := ctx.Err(); err != nil {
			p.logger.Info().Msg("question producer stopping")
			return err
		}

		wait := p.interval
		err := p.iterate(ctx)
		switch {
		case err == nil:
			p.metrics.iteration("ok")
			pause = p.failureBackoff()
		case ctx.Err() != nil:
			p.logger.Info().Msg("question producer stopping")
			return ctx.Err()
		case IsStorageFailure(err):
			p.metrics.iteration("storage_failure")
			wait, _ = pause.Next()
			p.logger.Error().Err(err).Dur("pause", wait).Msg("storage failure, pausing producer")
		default:
			p.metrics.iteration("failed")
			p.logger.Warn().Err(err).Msg("producer iteration failed")
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info().Msg("question producer stopping")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (p *Producer) iterate(ctx context.Context) error {
	topic, err := p.nextTopic(ctx)
	if err != nil {
		return err
	}

	actx, cancel := context.WithTimeout(ctx, p.attemptTimeout)
	defer cancel()

	var q StoredQuestion
	if topic == "" {
		q, err = p.acquirer.AcquireAny(actx)
	} else {
		q, err = p.acquirer.AcquireOne(actx, topic)
	}
	if err != nil {
		return err
	}
	p.logger.Debug().Str("topic", q.Topic).Str("question_id", q.ID).Msg("producer stored question")
	return nil
}

// nextTopic rotates through registered topics, then seeds. An empty result
// means the provider picks the topic.
func (p *Producer) nextTopic(ctx context.Context) (string, error) {
	var names []string
	if p.topics != nil {
		topics, err := p.topics.ListTopics(ctx)
		if err != nil {
			if IsStorageFailure(err) {
				return "", err
			}
			return "", &StorageError{Op: "list topics", Err: err}
		}
		for _, t := range topics {
			names = append(names, t.Name)
		}
	}
	if len(names) == 0 {
		names = p.seeds
	}
	if len(names) == 0 {
		return "", nil
	}

	p.mu.Lock()
	idx := p.cursor % len(names)
	p.cursor++
	p.mu.Unlock()
	return names[idx], nil
}

func (p *Producer) failureBackoff() retry.Backoff {
	return retry.WithCappedDuration(p.failureMax, retry.NewExponential(p.failureBase))
}
