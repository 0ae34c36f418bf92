package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ExchangeSource mirrors the interaction path that produced the query
type ExchangeSource string

const (
	ExchangeSourceVoice ExchangeSource = "voice"
	ExchangeSourceText  ExchangeSource = "text"
)

// Exchange records one question and its answer
type Exchange struct {
	ID         string         `json:"id" bson:"_id"`
	Source     ExchangeSource `json:"source" bson:"source"`
	ClipName   string         `json:"clip_name,omitempty" bson:"clip_name,omitempty"`
	Transcript string         `json:"transcript,omitempty" bson:"transcript,omitempty"`
	Query      string         `json:"query" bson:"query"`
	Answer     string         `json:"answer" bson:"answer"`
	CreatedAt  time.Time      `json:"created_at" bson:"created_at"`
	DurationMs int64          `json:"duration_ms" bson:"duration_ms"`
}

// NewExchange starts a new exchange for the given source
func NewExchange(source ExchangeSource) *Exchange {
	return &Exchange{
		ID:        uuid.New().String(),
		Source:    source,
		CreatedAt: time.Now(),
	}
}

// Complete stores the answer and the elapsed time since the exchange started
func (e *Exchange) Complete(answer string) {
	e.Answer = answer
	e.DurationMs = time.Since(e.CreatedAt).Milliseconds()
}

// Validate validates the exchange data
func (e *Exchange) Validate() error {
	if e.ID == "" {
		return errors.New("exchange id is required")
	}
	if e.Source != ExchangeSourceVoice && e.Source != ExchangeSourceText {
		return errors.New("invalid exchange source")
	}
	if e.Source == ExchangeSourceVoice && e.ClipName == "" {
		return errors.New("voice exchange requires a clip name")
	}
	return nil
}
