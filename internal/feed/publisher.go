package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizbank/internal/question"
	ws "github.com/gokatarajesh/quizbank/pkg/http/ws"
)

// DefaultChannel carries acquisition events between API replicas.
const DefaultChannel = "questions:acquired"

// Publisher announces stored questions on a Redis Pub/Sub channel.
type Publisher struct {
	redis   *redis.Client
	channel string
}

var _ question.EventPublisher = (*Publisher)(nil)

func NewPublisher(client *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{redis: client, channel: channel}
}

func (p *Publisher) PublishAcquired(ctx context.Context, q question.StoredQuestion) error {
	raw, err := json.Marshal(toPayload(q))
	if err != nil {
		return err
	}
	return p.redis.Publish(ctx, p.channel, raw).Err()
}

// HubPublisher delivers events straight to the local hub when Redis is not configured.
type HubPublisher struct {
	hub    *ws.Hub
	logger zerolog.Logger
}

var _ question.EventPublisher = (*HubPublisher)(nil)

func NewHubPublisher(hub *ws.Hub, logger zerolog.Logger) *HubPublisher {
	return &HubPublisher{hub: hub, logger: logger.With().Str("component", "feed_local").Logger()}
}

func (p *HubPublisher) PublishAcquired(ctx context.Context, q question.StoredQuestion) error {
	if err := forward(p.hub, toPayload(q)); err != nil {
		p.logger.Warn().Err(err).Str("topic", q.Topic).Str("question_id", q.ID).Msg("failed to broadcast acquisition event")
		return err
	}
	return nil
}

func toPayload(q question.StoredQuestion) ws.QuestionAcquiredPayload {
	options := make([]string, 0, len(q.Options))
	for _, o := range q.Options {
		options = append(options, o.Text)
	}
	acquired := q.CreatedAt
	if acquired.IsZero() {
		acquired = time.Now()
	}
	return ws.QuestionAcquiredPayload{
		QuestionID: q.ID,
		Topic:      q.Topic,
		Prompt:     q.Prompt,
		Options:    options,
		Difficulty: q.Difficulty,
		Source:     q.Source,
		AcquiredAt: acquired.UTC().Format(time.RFC3339),
	}
}

func forward(hub *ws.Hub, evt ws.QuestionAcquiredPayload) error {
	msg, err := ws.NewMessage(ws.TypeQuestionAcquired, evt)
	if err != nil {
		return err
	}
	return hub.BroadcastTopic(evt.Topic, msg)
}
