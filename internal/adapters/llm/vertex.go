package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/PabloGalante/deltawind/internal/domain"
)

type VertexClient struct {
	client      *genai.Client
	temperature float32
	maxTokens   int32
}

// NewVertexClient creates a backend on Gemini models, either through Vertex AI
// (project + location, application default credentials) or the Gemini API (key).
func NewVertexClient(ctx context.Context, cfg Config) (*VertexClient, error) {
	cc := &genai.ClientConfig{}
	switch strings.ToLower(cfg.Provider) {
	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini provider needs an API key")
		}
		cc.APIKey = cfg.APIKey
		cc.Backend = genai.BackendGeminiAPI
	default:
		if cfg.Project == "" || cfg.Location == "" {
			return nil, fmt.Errorf("vertex provider needs a GCP project and location")
		}
		cc.Project = cfg.Project
		cc.Location = cfg.Location
		cc.Backend = genai.BackendVertexAI
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &VertexClient{
		client:      client,
		temperature: cfg.Temperature,
		maxTokens:   int32(cfg.MaxTokens),
	}, nil
}

// Complete implements domain.CompletionBackend.
func (v *VertexClient) Complete(ctx context.Context, model string, messages []domain.ChatMessage) (string, error) {
	const op = "genai generate content"

	system, dialogue := splitSystem(messages)

	contents := make([]*genai.Content, 0, len(dialogue))
	for _, m := range dialogue {
		role := genai.Role(genai.RoleUser)
		if m.Role == domain.ChatRoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}

	temp := v.temperature
	cfg := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	if v.maxTokens > 0 {
		cfg.MaxOutputTokens = v.maxTokens
	}
	if system != "" {
		// The API expects the user role on system instructions.
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	res, err := v.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", classifyGenAI(op, err)
	}

	text := strings.TrimSpace(res.Text())
	if text == "" {
		return "", domain.Transient(op, errors.New("model returned empty text"))
	}
	return text, nil
}

func classifyGenAI(op string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(op, apiErr.Code, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	// No status code: the request never got an answer.
	return domain.Transient(op, err)
}
