package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const suggestionPrompt = "Create a list of three open-ended and engaging questions formatted " +
	"as a single string, separated by '||'. The questions are for an anonymous social " +
	"messaging platform and should suit a diverse audience. Avoid personal or sensitive " +
	"topics; focus on universal themes that encourage friendly interaction."

// fallbackSuggestions is served when no upstream API is configured or
// the call fails.
var fallbackSuggestions = []string{
	"What's a hobby you've recently started?",
	"If you could have dinner with any historical figure, who would it be?",
	"What's a simple thing that makes you happy?",
}

// Service fetches suggested message prompts from an OpenAI-compatible
// chat-completions API.
type Service struct {
	apiURL string
	apiKey string
	model  string
	client *http.Client
	logger *zap.Logger
}

func NewService(apiURL, apiKey, model string, logger *zap.Logger) *Service {
	return &Service{
		apiURL: apiURL,
		apiKey: apiKey,
		model:  model,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger.Named("SuggestService"),
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Suggestions returns three suggested questions. Upstream failures fall
// back to the static set so the endpoint never errors on cosmetics.
func (s *Service) Suggestions(ctx context.Context) []string {
	if s.apiKey == "" {
		return fallbackSuggestions
	}

	suggestions, err := s.fetch(ctx)
	if err != nil {
		s.logger.Warn("Suggestion API call failed, serving fallback", zap.Error(err))
		return fallbackSuggestions
	}
	return suggestions
}

func (s *Service) fetch(ctx context.Context) ([]string, error) {
	payload := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: suggestionPrompt},
			{Role: "user", Content: "Suggest three questions."},
		},
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.apiURL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call suggestion API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("suggestion API request failed with status code %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode suggestion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("suggestion response contained no choices")
	}

	var suggestions []string
	for _, part := range strings.Split(parsed.Choices[0].Message.Content, "||") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			suggestions = append(suggestions, trimmed)
		}
	}
	if len(suggestions) == 0 {
		return nil, fmt.Errorf("suggestion response contained no usable questions")
	}
	return suggestions, nil
}
