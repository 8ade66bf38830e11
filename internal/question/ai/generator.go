package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizbank/internal/question"
)

// ErrNotConfigured is returned when no generator endpoint is set.
var ErrNotConfigured = errors.New("generator endpoint not configured")

// Config holds connection details for the generator service.
type Config struct {
	GeneratorURL string
	GeneratorKey string
	Timeout      time.Duration
}

// Generator implements question.Provider against an HTTP text-generation service.
type Generator struct {
	httpClient  *http.Client
	config      Config
	logger      zerolog.Logger
	generateURL string
}

var _ question.Provider = (*Generator)(nil)

func NewGenerator(cfg Config, logger zerolog.Logger) *Generator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	base := strings.TrimSuffix(cfg.GeneratorURL, "/")

	return &Generator{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		config:      cfg,
		logger:      logger.With().Str("component", "ai_generator").Logger(),
		generateURL: base + "/generate",
	}
}

// Generate requests one raw question block. An empty topic lets the service choose.
func (g *Generator) Generate(ctx context.Context, topic string) (string, error) {
	if g.config.GeneratorURL == "" {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(generatorRequest{
		Topic:  topic,
		System: systemPrompt,
		Prompt: userPrompt(topic),
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.generateURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.config.GeneratorKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.config.GeneratorKey)
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		g.logger.Warn().Int("status", resp.StatusCode).Str("body", string(snippet)).Msg("generator rejected request")
		return "", fmt.Errorf("generator returned status %d", resp.StatusCode)
	}

	var genResp generatorResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decode generator payload: %w", err)
	}
	if strings.TrimSpace(genResp.Text) == "" {
		return "", fmt.Errorf("generator returned empty text")
	}
	return genResp.Text, nil
}

type generatorRequest struct {
	Topic  string `json:"topic,omitempty"`
	System string `json:"system"`
	Prompt string `json:"prompt"`
}

type generatorResponse struct {
	Text string `json:"text"`
}
