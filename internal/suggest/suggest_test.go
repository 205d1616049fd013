package suggest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSuggestions_NoAPIKeyServesFallback(t *testing.T) {
	svc := NewService("http://unused.invalid", "", "test-model", zap.NewNop())

	got := svc.Suggestions(context.Background())
	assert.Equal(t, fallbackSuggestions, got)
}

func TestSuggestions_ParsesUpstreamResponse(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.NotEmpty(t, req.Messages)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{
					"role":    "assistant",
					"content": "What inspires you?|| What did you learn this week? ||Where would you travel next?",
				}},
			},
		})
	}))
	defer server.Close()

	svc := NewService(server.URL, "test-key", "test-model", zap.NewNop())
	got := svc.Suggestions(context.Background())

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, []string{
		"What inspires you?",
		"What did you learn this week?",
		"Where would you travel next?",
	}, got)
}

func TestSuggestions_UpstreamErrorServesFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	svc := NewService(server.URL, "test-key", "test-model", zap.NewNop())
	got := svc.Suggestions(context.Background())
	assert.Equal(t, fallbackSuggestions, got)
}

func TestSuggestions_EmptyChoicesServesFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer server.Close()

	svc := NewService(server.URL, "test-key", "test-model", zap.NewNop())
	got := svc.Suggestions(context.Background())
	assert.Equal(t, fallbackSuggestions, got)
}
