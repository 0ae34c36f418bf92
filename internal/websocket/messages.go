package websocket

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/satriahrh/ticketgpt/domain"
	"github.com/satriahrh/ticketgpt/domain/entities"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types
const (
	MessageTypePing           MessageType = "ping"
	MessageTypePong           MessageType = "pong"
	MessageTypeChat           MessageType = "chat"
	MessageTypeListeningStart MessageType = "listening_start"
	MessageTypeListeningEnd   MessageType = "listening_end"
	MessageTypeTranscript     MessageType = "transcript"
	MessageTypeAnswer         MessageType = "answer"
	MessageTypeError          MessageType = "error"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// ClientMessage is any control message sent by a client
type ClientMessage struct {
	BaseMessage
	Query     string `json:"query,omitempty"`
	Extension string `json:"extension,omitempty"`
}

// TranscriptMessage reports the transcript of a streamed recording
type TranscriptMessage struct {
	BaseMessage
	ClipName   string `json:"clip_name"`
	Transcript string `json:"transcript"`
	NoSpeech   bool   `json:"no_speech,omitempty"`
}

// AnswerMessage carries the agent's answer and the data needed to speak it
type AnswerMessage struct {
	BaseMessage
	ExchangeID string                  `json:"exchange_id"`
	Source     entities.ExchangeSource `json:"source"`
	Query      string                  `json:"query"`
	Answer     string                  `json:"answer"`
	Speech     domain.SpeechPayload    `json:"speech"`
}

// PongMessage represents a pong response
type PongMessage struct {
	BaseMessage
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

// MessageValidator provides validation for WebSocket messages
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage parses and validates an incoming control message
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch msg.Type {
	case MessageTypePing, MessageTypeListeningEnd:
		return &msg, nil

	case MessageTypeChat:
		msg.Query = strings.TrimSpace(msg.Query)
		if msg.Query == "" {
			return nil, fmt.Errorf("query is required")
		}
		return &msg, nil

	case MessageTypeListeningStart:
		ext, ok := entities.NormalizeExtension(msg.Extension)
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedExtension, msg.Extension)
		}
		msg.Extension = ext
		return &msg, nil

	case "":
		return nil, fmt.Errorf("message type is required")

	default:
		return nil, fmt.Errorf("unsupported message type: %s", msg.Type)
	}
}

func newBase(t MessageType) BaseMessage {
	return BaseMessage{
		Type:      t,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: newBase(MessageTypeError),
		Code:        code,
		Message:     message,
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage() *PongMessage {
	return &PongMessage{BaseMessage: newBase(MessageTypePong)}
}

// CreateTranscriptMessage reports the transcript of a streamed recording.
// An empty transcript is flagged as no speech.
func CreateTranscriptMessage(clipName, transcript string) *TranscriptMessage {
	return &TranscriptMessage{
		BaseMessage: newBase(MessageTypeTranscript),
		ClipName:    clipName,
		Transcript:  transcript,
		NoSpeech:    transcript == "",
	}
}

// CreateAnswerMessage reports the answer part of a result
func CreateAnswerMessage(result *domain.QueryResult) *AnswerMessage {
	return &AnswerMessage{
		BaseMessage: newBase(MessageTypeAnswer),
		ExchangeID:  result.ExchangeID,
		Source:      result.Source,
		Query:       result.Query,
		Answer:      result.Answer,
		Speech:      result.Speech,
	}
}
