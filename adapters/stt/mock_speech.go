package stt

import (
	"context"

	"go.uber.org/zap"

	"github.com/satriahrh/ticketgpt/domain/repositories"
)

// MockSpeechToText is a placeholder implementation for speech recognition
type MockSpeechToText struct {
	logger *zap.Logger
}

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(logger *zap.Logger) repositories.SpeechToText {
	return &MockSpeechToText{
		logger: logger,
	}
}

// TranscribeAudio implements repositories.SpeechToText
func (s *MockSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	s.logger.Info("Processing mock speech-to-text",
		zap.Int("audioSize", len(audioData)),
		zap.String("file", config.FileName),
		zap.String("language", config.Language))

	// Mock transcription based on audio size
	switch {
	case len(audioData) == 0:
		return "", nil
	case len(audioData) > 10000:
		return "How many tickets are still open and who is assigned to most of them?", nil
	case len(audioData) > 1000:
		return "How many tickets are there?", nil
	default:
		return "Show ticket 5", nil
	}
}
