package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/gokatarajesh/quizbank/internal/question"
)

// LLMConfig configures an OpenAI-compatible chat endpoint.
type LLMConfig struct {
	BaseURL     string
	Token       string
	Model       string
	Temperature float64
}

// LLMGenerator implements question.Provider on top of a langchaingo chat model.
type LLMGenerator struct {
	client      llms.Model
	temperature float64
	logger      zerolog.Logger
}

var _ question.Provider = (*LLMGenerator)(nil)

// NewLLMGenerator builds an OpenAI-compatible client. Local servers that do not
// check credentials accept the placeholder token "none".
func NewLLMGenerator(cfg LLMConfig, logger zerolog.Logger) (*LLMGenerator, error) {
	token := cfg.Token
	if token == "" {
		token = "none"
	}
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	return NewLLMGeneratorWithModel(client, cfg.Temperature, logger), nil
}

// NewLLMGeneratorWithModel wraps an existing model.
func NewLLMGeneratorWithModel(model llms.Model, temperature float64, logger zerolog.Logger) *LLMGenerator {
	return &LLMGenerator{
		client:      model,
		temperature: temperature,
		logger:      logger.With().Str("component", "llm_generator").Logger(),
	}
}

func (g *LLMGenerator) Generate(ctx context.Context, topic string) (string, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(userPrompt(topic))},
		},
	}

	resp, err := g.client.GenerateContent(ctx, content, llms.WithTemperature(g.temperature))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Content)
	text = strings.TrimPrefix(text, "```text")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	g.logger.Debug().Str("topic", topic).Int("chars", len(text)).Msg("model responded")
	return text, nil
}
