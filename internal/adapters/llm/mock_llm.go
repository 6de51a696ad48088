package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/PabloGalante/deltawind/internal/domain"
)

// MockLLM answers without any network call. It is used for local runs and tests.
type MockLLM struct{}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

// Complete echoes the last user block, prefixed by the persona's first line.
func (m *MockLLM) Complete(ctx context.Context, _ string, messages []domain.ChatMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	system, dialogue := splitSystem(messages)
	speaker, _, _ := strings.Cut(system, "\n")

	var last string
	for i := len(dialogue) - 1; i >= 0; i-- {
		if dialogue[i].Role == domain.ChatRoleUser {
			last = dialogue[i].Text
			break
		}
	}
	if last == "" {
		return "", domain.Fatal("mock completion", fmt.Errorf("no user block in %d messages", len(messages)))
	}
	return fmt.Sprintf("[mock] %s You said %q.", strings.TrimSpace(speaker), last), nil
}
