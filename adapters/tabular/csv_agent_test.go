package tabular

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/ticketgpt/adapters/llm"
	"github.com/satriahrh/ticketgpt/domain/repositories"
)

const ticketsCSV = `id,title,status
1,Printer jammed,open
2,"Password reset, urgent",closed
3,VPN down,open
`

func writeDataset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raw.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write dataset: %v", err)
	}
	return path
}

func TestCSVAgent_Answer(t *testing.T) {
	path := writeDataset(t, ticketsCSV)

	var seen repositories.Prompt
	model := llm.NewMockLLMWithResponder(func(prompt repositories.Prompt) (string, error) {
		seen = prompt
		return "  There are 3 tickets.\n", nil
	})

	agent, err := NewCSVAgent(CSVAgentConfig{DatasetPath: path}, model, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create agent: %v", err)
	}

	answer, err := agent.Answer(context.Background(), "how many tickets?")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	if answer != "There are 3 tickets." {
		t.Errorf("Expected trimmed answer, got %q", answer)
	}

	if !strings.HasSuffix(seen.User, "Question: how many tickets?") {
		t.Errorf("Prompt does not end with the question: %q", seen.User)
	}
	if !strings.Contains(seen.User, `2,"Password reset, urgent",closed`) {
		t.Errorf("Prompt does not contain quoted row: %q", seen.User)
	}
	if !strings.Contains(seen.User, "columns: id, title, status") {
		t.Errorf("Prompt does not list columns: %q", seen.User)
	}
	if seen.System == "" {
		t.Error("Expected a system prompt")
	}
}

func TestCSVAgent_ReadsDatasetEveryCall(t *testing.T) {
	path := writeDataset(t, ticketsCSV)

	var prompts []string
	model := llm.NewMockLLMWithResponder(func(prompt repositories.Prompt) (string, error) {
		prompts = append(prompts, prompt.User)
		return "ok", nil
	})

	agent, err := NewCSVAgent(CSVAgentConfig{DatasetPath: path}, model, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create agent: %v", err)
	}

	if _, err := agent.Answer(context.Background(), "first"); err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	if err := os.WriteFile(path, []byte(ticketsCSV+"4,Laptop broken,open\n"), 0o644); err != nil {
		t.Fatalf("Failed to update dataset: %v", err)
	}

	if _, err := agent.Answer(context.Background(), "second"); err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	if strings.Contains(prompts[0], "Laptop broken") {
		t.Error("First prompt should not contain the later row")
	}
	if !strings.Contains(prompts[1], "Laptop broken") {
		t.Error("Second prompt should contain the updated row")
	}
}

func TestCSVAgent_Truncation(t *testing.T) {
	path := writeDataset(t, ticketsCSV)

	var seen string
	model := llm.NewMockLLMWithResponder(func(prompt repositories.Prompt) (string, error) {
		seen = prompt.User
		return "ok", nil
	})

	agent, err := NewCSVAgent(CSVAgentConfig{DatasetPath: path, MaxRows: 2}, model, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create agent: %v", err)
	}

	if _, err := agent.Answer(context.Background(), "q"); err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	if !strings.Contains(seen, "has 3 rows") {
		t.Errorf("Expected total row count in prompt: %q", seen)
	}
	if !strings.Contains(seen, "Only the first 2 rows") {
		t.Errorf("Expected truncation note in prompt: %q", seen)
	}
	if strings.Contains(seen, "VPN down") {
		t.Error("Truncated row should not be in the prompt")
	}
}

func TestCSVAgent_MissingDataset(t *testing.T) {
	called := false
	model := llm.NewMockLLMWithResponder(func(prompt repositories.Prompt) (string, error) {
		called = true
		return "ok", nil
	})

	agent, err := NewCSVAgent(CSVAgentConfig{DatasetPath: filepath.Join(t.TempDir(), "raw.csv")}, model, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create agent: %v", err)
	}

	if _, err := agent.Answer(context.Background(), "q"); err == nil {
		t.Error("Expected error for missing dataset")
	}
	if called {
		t.Error("Model should not be called without a dataset")
	}
}

func TestCSVAgent_ModelError(t *testing.T) {
	path := writeDataset(t, ticketsCSV)
	boom := errors.New("quota exceeded")

	model := llm.NewMockLLMWithResponder(func(prompt repositories.Prompt) (string, error) {
		return "", boom
	})

	agent, err := NewCSVAgent(CSVAgentConfig{DatasetPath: path}, model, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create agent: %v", err)
	}

	_, err = agent.Answer(context.Background(), "q")
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped model error, got %v", err)
	}
}

func TestCSVAgent_Describe(t *testing.T) {
	path := writeDataset(t, ticketsCSV)

	agent, err := NewCSVAgent(CSVAgentConfig{DatasetPath: path, MaxRows: 1}, llm.NewMockLLM(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create agent: %v", err)
	}

	info, err := agent.Describe(context.Background())
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}

	if info.Name != "raw.csv" {
		t.Errorf("Expected name raw.csv, got %s", info.Name)
	}
	if info.RowCount != 3 {
		t.Errorf("Expected 3 rows, got %d", info.RowCount)
	}
	if strings.Join(info.Columns, ",") != "id,title,status" {
		t.Errorf("Unexpected columns %v", info.Columns)
	}
}

func TestValidateCSVAgentConfig(t *testing.T) {
	if err := ValidateCSVAgentConfig(CSVAgentConfig{}); err == nil {
		t.Error("Expected error for missing dataset path")
	}
	if err := ValidateCSVAgentConfig(CSVAgentConfig{DatasetPath: "raw.csv", MaxRows: -1}); err == nil {
		t.Error("Expected error for negative max rows")
	}
	if err := ValidateCSVAgentConfig(CSVAgentConfig{DatasetPath: "raw.csv"}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
