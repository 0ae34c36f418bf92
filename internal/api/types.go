package api

import (
	"time"

	"github.com/satriahrh/ticketgpt/domain/entities"
)

// AudioSavedResponse represents the response payload for a stored recording
type AudioSavedResponse struct {
	ClipName  string    `json:"clip_name"`
	Handle    string    `json:"handle"`
	ExpiresAt time.Time `json:"expires_at"`
	Size      int64     `json:"size"`
}

// SpeakRequest represents the request payload for answering a stored recording.
// Latest selects the newest stored clip and is only honoured without a handle.
type SpeakRequest struct {
	Handle string `json:"handle"`
	Latest bool   `json:"latest"`
}

// ChatRequest represents the request payload for a typed question
type ChatRequest struct {
	Query string `json:"query"`
}

// HistoryResponse lists recent exchanges, newest first
type HistoryResponse struct {
	Exchanges []*entities.Exchange `json:"exchanges"`
	Count     int                  `json:"count"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
