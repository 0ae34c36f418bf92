package stt

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/satriahrh/ticketgpt/domain/repositories"
)

func TestMockSpeechToText(t *testing.T) {
	s := NewMockSpeechToText(zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		size int
		want string
	}{
		{0, ""},
		{10, "Show ticket 5"},
		{2000, "How many tickets are there?"},
		{20000, "How many tickets are still open and who is assigned to most of them?"},
	}

	for _, tt := range tests {
		got, err := s.TranscribeAudio(ctx, make([]byte, tt.size), repositories.AudioConfig{})
		if err != nil {
			t.Fatalf("size %d: unexpected error %v", tt.size, err)
		}
		if got != tt.want {
			t.Errorf("size %d: expected %q, got %q", tt.size, tt.want, got)
		}
	}
}
