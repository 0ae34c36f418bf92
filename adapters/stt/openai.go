package stt

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/satriahrh/ticketgpt/domain/repositories"
)

const (
	defaultWhisperModel    = openai.Whisper1
	defaultWhisperLanguage = "en"
	defaultWhisperTimeout  = 60 * time.Second
	defaultWhisperFileName = "audio.mp3"
)

// WhisperConfig holds configuration for the OpenAI Whisper adapter
type WhisperConfig struct {
	APIKey   string        // Required
	BaseURL  string        // Optional: defaults to the public OpenAI endpoint
	Model    string        // Optional: defaults to whisper-1
	Language string        // Optional: used when the request does not name one
	Timeout  time.Duration // Optional: HTTP client timeout
}

// WhisperSpeechToText implements SpeechToText with OpenAI's transcription endpoint
type WhisperSpeechToText struct {
	client   *openai.Client
	model    string
	language string
	logger   *zap.Logger
}

var _ repositories.SpeechToText = (*WhisperSpeechToText)(nil)

// ValidateWhisperConfig validates the WhisperConfig
func ValidateWhisperConfig(config WhisperConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required")
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", config.Timeout)
	}
	return nil
}

// NewWhisperSpeechToText creates a new Whisper transcription client
func NewWhisperSpeechToText(config WhisperConfig, logger *zap.Logger) (*WhisperSpeechToText, error) {
	if err := ValidateWhisperConfig(config); err != nil {
		return nil, err
	}

	model := config.Model
	if model == "" {
		model = defaultWhisperModel
		logger.Info("Using default transcription model", zap.String("model", model))
	}

	language := config.Language
	if language == "" {
		language = defaultWhisperLanguage
		logger.Info("Using default transcription language", zap.String("language", language))
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultWhisperTimeout
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	return &WhisperSpeechToText{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    model,
		language: language,
		logger:   logger,
	}, nil
}

// TranscribeAudio sends the clip to the transcription endpoint and returns the text field
func (w *WhisperSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	language := config.Language
	if language == "" {
		language = w.language
	}

	// The endpoint infers the container format from the file name
	fileName := config.FileName
	if fileName == "" {
		fileName = defaultWhisperFileName
	}

	w.logger.Info("Sending audio for transcription",
		zap.String("model", w.model),
		zap.String("file", fileName),
		zap.String("language", language),
		zap.Int("audioSize", len(audioData)))

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: fileName,
		Reader:   bytes.NewReader(audioData),
		Language: language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("whisper transcription request failed: %w", err)
	}

	return resp.Text, nil
}
