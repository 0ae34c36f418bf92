package repositories

import "context"

// TabularQA answers natural-language questions against a fixed tabular dataset
type TabularQA interface {
	Answer(ctx context.Context, query string) (string, error)
}

// DatasetInfo summarises the dataset a TabularQA is bound to
type DatasetInfo struct {
	Name     string   `json:"name"`
	Columns  []string `json:"columns"`
	RowCount int      `json:"row_count"`
}

// DatasetDescriber exposes the shape of the bound dataset
type DatasetDescriber interface {
	Describe(ctx context.Context) (*DatasetInfo, error)
}
