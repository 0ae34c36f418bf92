package tabular

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/ticketgpt/domain/repositories"
)

const defaultMaxRows = 500

const systemPrompt = `You are a data analyst answering questions about a support ticket dataset.
The dataset is given as CSV. Answer using only the rows provided.
Reply in plain sentences suitable for reading aloud. If the data does not contain the answer, say so.`

// CSVAgentConfig holds configuration for the CSV question answering agent
type CSVAgentConfig struct {
	DatasetPath string
	MaxRows     int
}

// CSVAgent answers questions about a CSV file by handing its content to a language model.
// The file is parsed on every call so edits are picked up without a restart.
type CSVAgent struct {
	path    string
	maxRows int
	llm     repositories.LargeLanguageModel
	logger  *zap.Logger
}

var (
	_ repositories.TabularQA        = (*CSVAgent)(nil)
	_ repositories.DatasetDescriber = (*CSVAgent)(nil)
)

type dataset struct {
	header    []string
	rows      [][]string
	truncated bool
	total     int
}

// ValidateCSVAgentConfig validates the CSVAgentConfig
func ValidateCSVAgentConfig(config CSVAgentConfig) error {
	if config.DatasetPath == "" {
		return fmt.Errorf("dataset path is required")
	}
	if config.MaxRows < 0 {
		return fmt.Errorf("max rows must be positive, got %d", config.MaxRows)
	}
	return nil
}

// NewCSVAgent creates an agent bound to the dataset at config.DatasetPath
func NewCSVAgent(config CSVAgentConfig, llm repositories.LargeLanguageModel, logger *zap.Logger) (*CSVAgent, error) {
	if err := ValidateCSVAgentConfig(config); err != nil {
		return nil, err
	}

	maxRows := config.MaxRows
	if maxRows == 0 {
		maxRows = defaultMaxRows
		logger.Info("Using default max rows", zap.Int("maxRows", maxRows))
	}

	return &CSVAgent{
		path:    config.DatasetPath,
		maxRows: maxRows,
		llm:     llm,
		logger:  logger,
	}, nil
}

// Answer implements repositories.TabularQA
func (a *CSVAgent) Answer(ctx context.Context, query string) (string, error) {
	data, err := a.load(a.maxRows)
	if err != nil {
		return "", err
	}

	prompt, err := a.buildPrompt(data, query)
	if err != nil {
		return "", err
	}

	answer, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}

	a.logger.Info("Dataset question answered",
		zap.Int("rows", len(data.rows)),
		zap.Bool("truncated", data.truncated),
		zap.Int("answerLength", len(answer)))

	return strings.TrimSpace(answer), nil
}

// Describe implements repositories.DatasetDescriber
func (a *CSVAgent) Describe(ctx context.Context) (*repositories.DatasetInfo, error) {
	data, err := a.load(-1)
	if err != nil {
		return nil, err
	}

	return &repositories.DatasetInfo{
		Name:     filepath.Base(a.path),
		Columns:  data.header,
		RowCount: data.total,
	}, nil
}

// load parses the dataset, keeping at most limit data rows. A negative limit keeps none.
func (a *CSVAgent) load(limit int) (*dataset, error) {
	file, err := os.Open(a.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", a.path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("dataset %s is empty", a.path)
		}
		return nil, fmt.Errorf("failed to read dataset header: %w", err)
	}

	data := &dataset{header: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse dataset: %w", err)
		}

		data.total++
		if limit >= 0 && len(data.rows) < limit {
			data.rows = append(data.rows, record)
		}
	}
	data.truncated = limit >= 0 && data.total > len(data.rows)

	return data, nil
}

func (a *CSVAgent) buildPrompt(data *dataset, query string) (repositories.Prompt, error) {
	var table bytes.Buffer
	writer := csv.NewWriter(&table)
	if err := writer.Write(data.header); err != nil {
		return repositories.Prompt{}, fmt.Errorf("failed to encode dataset header: %w", err)
	}
	if err := writer.WriteAll(data.rows); err != nil {
		return repositories.Prompt{}, fmt.Errorf("failed to encode dataset rows: %w", err)
	}

	var user strings.Builder
	fmt.Fprintf(&user, "Dataset %s has %d rows and columns: %s.\n",
		filepath.Base(a.path), data.total, strings.Join(data.header, ", "))
	if data.truncated {
		fmt.Fprintf(&user, "Only the first %d rows are included below.\n", len(data.rows))
	}
	user.WriteString("\n")
	user.Write(table.Bytes())
	user.WriteString("\nQuestion: ")
	user.WriteString(query)

	return repositories.Prompt{
		System: systemPrompt,
		User:   user.String(),
	}, nil
}
