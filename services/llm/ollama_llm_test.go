package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOllamaClient_RequiresBaseURL(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "")
	_, err := NewOllamaClient()
	assert.Error(t, err)
}

func TestOllamaClient_Generate(t *testing.T) {
	var captured ollamaGenerateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(ollamaGenerateResponse{
			Model:    captured.Model,
			Response: `{"json_logic": {">": [{"var": "bureau.score"}, 700]}, "explanation": "score gate"}`,
			Done:     true,
		})
	}))
	defer server.Close()

	t.Setenv("OLLAMA_BASE_URL", server.URL)
	t.Setenv("OLLAMA_MODEL", "test-model")
	client, err := NewOllamaClient()
	require.NoError(t, err)

	out, err := client.Generate(context.Background(), "draft a rule", GenerationParams{
		SystemPrompt: "only use the allowed keys",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "json_logic")

	assert.Equal(t, "test-model", captured.Model)
	assert.Equal(t, "draft a rule", captured.Prompt)
	assert.Equal(t, "only use the allowed keys", captured.System)
	assert.Equal(t, "json", captured.Format)
	assert.False(t, captured.Stream)
	// Drafting defaults keep the sampling conservative.
	assert.InDelta(t, 0.2, captured.Options["temperature"], 1e-6)
}

func TestOllamaClient_Generate_ModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "model 'missing' not found"})
	}))
	defer server.Close()

	t.Setenv("OLLAMA_BASE_URL", server.URL)
	t.Setenv("OLLAMA_MODEL", "missing")
	client, err := NewOllamaClient()
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "draft a rule", GenerationParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama pull")
}
