package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizbank/internal/config"
	"github.com/gokatarajesh/quizbank/internal/question"
	"github.com/gokatarajesh/quizbank/internal/question/ai"
)

// NewProvider builds the question text provider selected by cfg.Kind.
func NewProvider(cfg config.Provider, logger zerolog.Logger) (question.Provider, error) {
	switch cfg.Kind {
	case config.ProviderHTTP:
		if cfg.URL == "" {
			logger.Warn().Msg("AI_GENERATOR_URL not set; acquisition will fail until configured")
		}
		return ai.NewGenerator(ai.Config{
			GeneratorURL: cfg.URL,
			GeneratorKey: cfg.APIKey,
			Timeout:      cfg.Timeout,
		}, logger), nil
	case config.ProviderOpenAI:
		return ai.NewLLMGenerator(ai.LLMConfig{
			BaseURL:     cfg.URL,
			Token:       cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Kind)
	}
}

// NewPipeline assembles a pipeline from configuration.
func NewPipeline(cfg *config.App, storage *Storage, provider question.Provider, events question.EventPublisher, metrics *question.Metrics, logger zerolog.Logger) *question.Pipeline {
	return question.NewPipeline(storage.Topics, storage.Questions, provider, logger, question.PipelineOptions{
		Retry: question.RetryPolicy{
			MaxAttempts: cfg.Acquisition.MaxAttempts,
			BaseDelay:   cfg.Acquisition.BaseDelay,
			MaxDelay:    cfg.Acquisition.MaxDelay,
		},
		BatchLimit: cfg.Acquisition.BatchLimit,
		Events:     events,
		Metrics:    metrics,
	})
}
