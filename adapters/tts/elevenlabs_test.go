package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestNewElevenLabsTTS(t *testing.T) {
	logger := zaptest.NewLogger(t)

	if _, err := NewElevenLabsTTS(ElevenLabsConfig{}, logger); err == nil {
		t.Error("Expected error when API key is not set")
	}

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "test-api-key"}, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	if tts.config.APIKey != "test-api-key" {
		t.Errorf("Expected API key 'test-api-key', got '%s'", tts.config.APIKey)
	}
	if tts.config.VoiceID != defaultVoiceID {
		t.Errorf("Expected default voice ID '%s', got '%s'", defaultVoiceID, tts.config.VoiceID)
	}
	if tts.config.OutputFormat != defaultOutputFormat {
		t.Errorf("Expected default output format '%s', got '%s'", defaultOutputFormat, tts.config.OutputFormat)
	}
	if tts.ContentType() != "audio/mpeg" {
		t.Errorf("Expected audio/mpeg, got %s", tts.ContentType())
	}
}

func TestValidateElevenLabsConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  ElevenLabsConfig
		wantErr bool
	}{
		{"valid", ElevenLabsConfig{APIKey: "k"}, false},
		{"missing key", ElevenLabsConfig{}, true},
		{"stability too high", ElevenLabsConfig{APIKey: "k", Stability: 1.5}, true},
		{"negative clarity", ElevenLabsConfig{APIKey: "k", Clarity: -0.1}, true},
		{"negative chunk size", ElevenLabsConfig{APIKey: "k", ChunkSize: -1}, true},
		{"negative timeout", ElevenLabsConfig{APIKey: "k", Timeout: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateElevenLabsConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateElevenLabsConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestElevenLabsTTS_ConvertTextToSpeech(t *testing.T) {
	audio := bytes.Repeat([]byte{0xff, 0xfb, 0x90, 0x64}, 100)

	var received speechRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/text-to-speech/voice-1/stream") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("output_format") != defaultOutputFormat {
			t.Errorf("Unexpected output format %s", r.URL.Query().Get("output_format"))
		}
		if r.Header.Get("xi-api-key") != "test-api-key" {
			t.Errorf("Missing API key header")
		}
		json.NewDecoder(r.Body).Decode(&received)

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(audio)
	}))
	defer server.Close()

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{
		APIKey:     "test-api-key",
		APIBaseURL: server.URL,
		VoiceID:    "voice-1",
		ChunkSize:  64,
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	chunks, err := tts.ConvertTextToSpeech(context.Background(), "There are 3 open tickets.")
	if err != nil {
		t.Fatalf("ConvertTextToSpeech failed: %v", err)
	}

	var streamed bytes.Buffer
	for chunk := range chunks {
		if len(chunk) > 64 {
			t.Errorf("Chunk larger than configured size: %d", len(chunk))
		}
		streamed.Write(chunk)
	}

	if !bytes.Equal(streamed.Bytes(), audio) {
		t.Errorf("Streamed %d bytes, expected %d", streamed.Len(), len(audio))
	}
	if received.Text != "There are 3 open tickets." {
		t.Errorf("Unexpected text sent %q", received.Text)
	}
	if received.ModelID != defaultModelID {
		t.Errorf("Unexpected model %q", received.ModelID)
	}
}

func TestElevenLabsTTS_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"invalid api key"}`))
	}))
	defer server.Close()

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "bad", APIBaseURL: server.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	_, err = tts.ConvertTextToSpeech(context.Background(), "hello")
	if err == nil {
		t.Fatal("Expected error for upstream failure")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("Expected status in error, got %v", err)
	}
}

func TestElevenLabsTTS_EmptyText(t *testing.T) {
	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "k"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	if _, err := tts.ConvertTextToSpeech(context.Background(), "   "); err == nil {
		t.Error("Expected error for empty text")
	}
}

// TestElevenLabsTTS_Integration calls the real API (skipped if ELEVEN_LABS_API_KEY is not set)
func TestElevenLabsTTS_Integration(t *testing.T) {
	apiKey := os.Getenv("ELEVEN_LABS_API_KEY")
	if apiKey == "" {
		t.Skip("Skipping Eleven Labs integration test - ELEVEN_LABS_API_KEY not set")
	}

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: apiKey}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	chunks, err := tts.ConvertTextToSpeech(ctx, "Ticket five is open.")
	if err != nil {
		t.Fatalf("ConvertTextToSpeech failed: %v", err)
	}

	total := 0
	for chunk := range chunks {
		total += len(chunk)
	}
	if total == 0 {
		t.Error("Expected audio data")
	}
}
