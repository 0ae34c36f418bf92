package repositories

import "context"

// LargeLanguageModel abstracts any chat/LLM provider
type LargeLanguageModel interface {
	// Generate takes a prompt and returns the model's reply
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// Prompt is a single-turn request to a language model
type Prompt struct {
	System string `json:"system"`
	User   string `json:"user"`
}
