package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PabloGalante/deltawind/internal/domain"
)

const (
	ProviderMock   = "mock"
	ProviderOpenAI = "openai"
	ProviderVertex = "vertex"
	ProviderGemini = "gemini"
)

// Config selects and configures a completion backend.
type Config struct {
	Provider string

	// OpenAI-compatible endpoints.
	APIKey  string
	BaseURL string

	// Vertex AI.
	Project  string
	Location string

	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// New builds the backend named by cfg.Provider.
func New(ctx context.Context, cfg Config) (domain.CompletionBackend, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderMock, "":
		return NewMockLLM(), nil
	case ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	case ProviderVertex, ProviderGemini:
		return NewVertexClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Provider)
	}
}

// classifyStatus wraps an HTTP error status with its failure class.
// Timeouts, rate limiting and server errors can be retried.
func classifyStatus(op string, code int, err error) error {
	switch {
	case code == http.StatusRequestTimeout,
		code == http.StatusTooManyRequests,
		code >= http.StatusInternalServerError:
		return domain.Transient(op, err)
	default:
		return domain.Fatal(op, err)
	}
}

// splitSystem separates system blocks from the dialogue.
func splitSystem(messages []domain.ChatMessage) (string, []domain.ChatMessage) {
	var system []string
	dialogue := make([]domain.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == domain.ChatRoleSystem {
			system = append(system, m.Text)
			continue
		}
		dialogue = append(dialogue, m)
	}
	return strings.Join(system, "\n\n"), dialogue
}
