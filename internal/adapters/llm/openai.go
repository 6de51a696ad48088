package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PabloGalante/deltawind/internal/domain"
	"github.com/PabloGalante/deltawind/internal/observability"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
// It does not retry; the completion client owns retries.
type OpenAIClient struct {
	apiKey      string
	baseURL     string
	temperature float32
	maxTokens   int
	httpClient  *http.Client
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float32         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func NewOpenAIClient(cfg Config) *OpenAIClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIClient{
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  &http.Client{},
	}
}

// Complete implements domain.CompletionBackend.
func (c *OpenAIClient) Complete(ctx context.Context, model string, messages []domain.ChatMessage) (string, error) {
	const op = "openai chat completion"
	log := observability.LoggerFromContext(ctx).With("provider", ProviderOpenAI, "model", model)

	if c.apiKey == "" {
		return "", domain.Fatal(op, errors.New("API key not configured"))
	}

	body := openAIRequest{
		Model:       model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	for _, m := range messages {
		body.Messages = append(body.Messages, openAIMessage{Role: string(m.Role), Content: m.Text})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", domain.Fatal(op, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", domain.Fatal(op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", domain.Transient(op, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.Transient(op, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		log.Warn("completion endpoint returned error status", "status", resp.StatusCode)
		return "", classifyStatus(op, resp.StatusCode,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	var out openAIResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", domain.Fatal(op, fmt.Errorf("parse response: %w", err))
	}
	if out.Error != nil {
		return "", domain.Fatal(op, fmt.Errorf("API error: %s", out.Error.Message))
	}
	if len(out.Choices) == 0 {
		return "", domain.Fatal(op, errors.New("no completion returned"))
	}

	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", domain.Transient(op, errors.New("empty completion text"))
	}
	return text, nil
}
