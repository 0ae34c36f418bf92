package domain

import "github.com/satriahrh/ticketgpt/domain/entities"

// SpeechPayload carries answer text to the presentation layer for speech synthesis.
// It is always delivered as data, never spliced into script source.
type SpeechPayload struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

// QueryResult is the outcome of one voice or text request
type QueryResult struct {
	ExchangeID string                  `json:"exchange_id"`
	Source     entities.ExchangeSource `json:"source"`
	ClipName   string                  `json:"clip_name,omitempty"`
	Transcript string                  `json:"transcript,omitempty"`
	Query      string                  `json:"query"`
	Answer     string                  `json:"answer"`
	NoSpeech   bool                    `json:"no_speech,omitempty"`
	Speech     SpeechPayload           `json:"speech"`
}
