package llm

import (
	"context"
	"fmt"

	"github.com/satriahrh/ticketgpt/domain/repositories"
)

// MockLLM is a placeholder language model that answers without calling any service
type MockLLM struct {
	respond func(prompt repositories.Prompt) (string, error)
}

// NewMockLLM creates a mock model that acknowledges the prompt size
func NewMockLLM() *MockLLM {
	return &MockLLM{
		respond: func(prompt repositories.Prompt) (string, error) {
			return fmt.Sprintf("This is a mock answer. The prompt was %d characters long.", len(prompt.User)), nil
		},
	}
}

// NewMockLLMWithResponder creates a mock model driven by respond
func NewMockLLMWithResponder(respond func(prompt repositories.Prompt) (string, error)) *MockLLM {
	return &MockLLM{respond: respond}
}

// Generate implements repositories.LargeLanguageModel
func (m *MockLLM) Generate(ctx context.Context, prompt repositories.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.respond(prompt)
}
