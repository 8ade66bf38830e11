package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorGenerate(t *testing.T) {
	var got generatorRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(generatorResponse{Text: "Question: Q1\nA) a\nB) b\nC) c\nD) d\nCorrect answer: B\nDifficulty level: easy"})
	}))
	defer srv.Close()

	g := NewGenerator(Config{GeneratorURL: srv.URL + "/", GeneratorKey: "secret"}, zerolog.Nop())
	text, err := g.Generate(context.Background(), "history")
	require.NoError(t, err)
	assert.Contains(t, text, "Question: Q1")
	assert.Equal(t, "history", got.Topic)
	assert.Contains(t, got.Prompt, "history")
	assert.NotEmpty(t, got.System)
}

func TestGeneratorGenerateErrors(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		g := NewGenerator(Config{}, zerolog.Nop())
		_, err := g.Generate(context.Background(), "history")
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("upstream status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		g := NewGenerator(Config{GeneratorURL: srv.URL}, zerolog.Nop())
		_, err := g.Generate(context.Background(), "history")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("empty text", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"text":"   "}`))
		}))
		defer srv.Close()

		g := NewGenerator(Config{GeneratorURL: srv.URL}, zerolog.Nop())
		_, err := g.Generate(context.Background(), "")
		assert.Error(t, err)
	})
}

func TestUserPromptWithoutTopic(t *testing.T) {
	assert.Contains(t, userPrompt(""), "Theme line")
	assert.Contains(t, userPrompt("  space  "), `"space"`)
}
