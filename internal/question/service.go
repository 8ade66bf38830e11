package question

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTopicNotFound is returned when serving a quiz for an unknown topic.
	ErrTopicNotFound = errors.New("topic not found")
	// ErrInsufficientQuestions is returned when the bank cannot fill a pack.
	ErrInsufficientQuestions = errors.New("insufficient questions")
)

const (
	defaultMaxPackSize = 10
	packLifetime       = 10 * time.Minute
)

// TopicFinder looks up an existing topic without creating it.
type TopicFinder interface {
	FindTopic(ctx context.Context, name string) (Topic, error)
}

// PackCache defines cache behavior (implemented by Redis-backed Cache).
type PackCache interface {
	Get(ctx context.Context, req PackRequest) (*PackResponse, error)
	Set(ctx context.Context, req PackRequest, resp PackResponse) error
}

// Refiller tops up a topic when the bank runs short.
type Refiller interface {
	AcquireMany(ctx context.Context, topic string, count int) ([]StoredQuestion, error)
}

// ServiceOptions configures quiz serving.
type ServiceOptions struct {
	HMACSecret  []byte
	MaxPackSize int
	Refiller    Refiller
}

// Service serves quiz packs out of the question bank, topping the bank up
// through the acquisition pipeline when a topic runs short.
type Service struct {
	topics   TopicFinder
	store    QuestionStore
	cache    PackCache
	refill   Refiller
	hmacKey  []byte
	maxCount int
}

func NewService(topics TopicFinder, store QuestionStore, cache PackCache, opts ServiceOptions) *Service {
	maxCount := opts.MaxPackSize
	if maxCount <= 0 {
		maxCount = defaultMaxPackSize
	}
	return &Service{
		topics:   topics,
		store:    store,
		cache:    cache,
		refill:   opts.Refiller,
		hmacKey:  opts.HMACSecret,
		maxCount: maxCount,
	}
}

// MaxPackSize is the largest pack FetchPack accepts.
func (s *Service) MaxPackSize() int {
	return s.maxCount
}

// FetchPack returns count questions for a topic. Packs requested with a seed
// are cached so the same seed yields the same pack until it expires.
func (s *Service) FetchPack(ctx context.Context, req PackRequest) (PackResponse, error) {
	name, err := NormalizeTopic(req.Topic)
	if err != nil {
		return PackResponse{}, fmt.Errorf("%w: %q", ErrInvalidTopic, req.Topic)
	}
	req.Topic = name
	if req.Count <= 0 || req.Count > s.maxCount {
		return PackResponse{}, fmt.Errorf("question count must be between 1 and %d", s.maxCount)
	}

	if s.cache != nil && req.Seed != "" {
		if cached, err := s.cache.Get(ctx, req); err == nil && cached != nil {
			return *cached, nil
		}
	}

	topic, err := s.topics.FindTopic(ctx, name)
	if err != nil {
		return PackResponse{}, err
	}

	stored, err := s.store.SampleQuestions(ctx, topic, req.Count)
	if err != nil {
		return PackResponse{}, &StorageError{Op: "sample questions", Err: err}
	}

	if missing := req.Count - len(stored); missing > 0 && s.refill != nil && !req.NoRefill {
		fresh, err := s.refill.AcquireMany(ctx, name, missing)
		if err != nil {
			return PackResponse{}, fmt.Errorf("refill %s: %w", name, err)
		}
		stored = append(stored, fresh...)
	}
	if len(stored) < req.Count {
		return PackResponse{}, fmt.Errorf("%w: need %d got %d", ErrInsufficientQuestions, req.Count, len(stored))
	}

	resp := PackResponse{
		Topic:     name,
		Questions: make([]QuizQuestion, 0, req.Count),
		Seed:      req.Seed,
		ExpiresAt: time.Now().Add(packLifetime).Unix(),
	}
	for _, q := range stored[:req.Count] {
		resp.Questions = append(resp.Questions, s.toQuiz(q))
	}

	if s.cache != nil && req.Seed != "" {
		_ = s.cache.Set(ctx, req, resp)
	}
	return resp, nil
}

// VerifyToken checks that token was issued for questionID by this service.
func (s *Service) VerifyToken(questionID, token string) bool {
	return hmac.Equal([]byte(s.signToken(questionID)), []byte(token))
}

func (s *Service) toQuiz(q StoredQuestion) QuizQuestion {
	return QuizQuestion{
		ID:         q.ID,
		Prompt:     q.Prompt,
		Options:    q.Options,
		Difficulty: q.Difficulty,
		Token:      s.signToken(q.ID),
	}
}

func (s *Service) signToken(questionID string) string {
	if len(s.hmacKey) == 0 {
		return questionID
	}
	mac := hmac.New(sha256.New, s.hmacKey)
	mac.Write([]byte(questionID))
	return hex.EncodeToString(mac.Sum(nil))
}

// PackRequest selects a quiz pack.
type PackRequest struct {
	Topic string
	Count int
	Seed  string
	// NoRefill serves only what the bank already holds.
	NoRefill bool
}

// QuizQuestion is the client payload; the correct label stays server-side.
type QuizQuestion struct {
	ID         string    `json:"id"`
	Prompt     string    `json:"prompt"`
	Options    [4]Option `json:"options"`
	Difficulty string    `json:"difficulty"`
	Token      string    `json:"token"`
}

// PackResponse holds selected questions and metadata.
type PackResponse struct {
	Topic     string         `json:"topic"`
	Questions []QuizQuestion `json:"questions"`
	Seed      string         `json:"seed,omitempty"`
	ExpiresAt int64          `json:"expires_at"`
}
