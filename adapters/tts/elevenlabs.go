package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/ticketgpt/domain/repositories"
)

const (
	defaultAPIBaseURL   = "https://api.elevenlabs.io/v1"
	defaultVoiceID      = "21m00Tcm4TlvDq8ikWAM" // Rachel voice
	defaultChunkSize    = 4096
	defaultOutputFormat = "mp3_44100_128"
	defaultModelID      = "eleven_multilingual_v2"
	defaultStability    = 0.5
	defaultClarity      = 0.75
	defaultTimeout      = 60 * time.Second

	maxErrorBody = 4096
)

// ElevenLabsConfig holds configuration for the ElevenLabsTTS adapter.
// Only APIKey is required; every other field falls back to a default.
type ElevenLabsConfig struct {
	APIKey       string
	APIBaseURL   string
	VoiceID      string
	ModelID      string
	OutputFormat string
	ChunkSize    int
	Stability    float64 // between 0 and 1
	Clarity      float64 // similarity boost, between 0 and 1
	Timeout      time.Duration
}

// ElevenLabsTTS reads answers aloud through the Eleven Labs streaming endpoint
type ElevenLabsTTS struct {
	config     ElevenLabsConfig
	httpClient *http.Client
	logger     *zap.Logger
}

var _ repositories.TextToSpeech = (*ElevenLabsTTS)(nil)

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

type speechRequest struct {
	Text                   string        `json:"text"`
	ModelID                string        `json:"model_id"`
	VoiceSettings          voiceSettings `json:"voice_settings"`
	ApplyTextNormalization string        `json:"apply_text_normalization,omitempty"`
}

// ValidateElevenLabsConfig validates the ElevenLabsConfig
func ValidateElevenLabsConfig(config ElevenLabsConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("eleven labs API key is required")
	}
	if config.Stability < 0 || config.Stability > 1 {
		return fmt.Errorf("stability must be between 0 and 1, got %f", config.Stability)
	}
	if config.Clarity < 0 || config.Clarity > 1 {
		return fmt.Errorf("clarity must be between 0 and 1, got %f", config.Clarity)
	}
	if config.ChunkSize < 0 {
		return fmt.Errorf("chunk size must be positive, got %d", config.ChunkSize)
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", config.Timeout)
	}
	return nil
}

// withDefaults fills every empty field, logging the identifiers a caller may want to know about
func (c ElevenLabsConfig) withDefaults(logger *zap.Logger) ElevenLabsConfig {
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaultAPIBaseURL
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")

	if c.VoiceID == "" {
		c.VoiceID = defaultVoiceID
		logger.Info("Using default voice ID", zap.String("voiceID", c.VoiceID))
	}
	if c.ModelID == "" {
		c.ModelID = defaultModelID
		logger.Info("Using default model ID", zap.String("modelID", c.ModelID))
	}
	if c.OutputFormat == "" {
		c.OutputFormat = defaultOutputFormat
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = defaultChunkSize
	}
	if c.Stability == 0 {
		c.Stability = defaultStability
	}
	if c.Clarity == 0 {
		c.Clarity = defaultClarity
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// NewElevenLabsTTS creates a new Eleven Labs TTS instance
func NewElevenLabsTTS(config ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsTTS, error) {
	if err := ValidateElevenLabsConfig(config); err != nil {
		return nil, err
	}

	config = config.withDefaults(logger)
	return &ElevenLabsTTS{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}, nil
}

// ContentType returns the MIME type of the produced audio
func (e *ElevenLabsTTS) ContentType() string {
	if strings.HasPrefix(e.config.OutputFormat, "pcm") {
		return "audio/pcm"
	}
	return "audio/mpeg"
}

func (e *ElevenLabsTTS) newRequest(ctx context.Context, text string) (*http.Request, error) {
	body, err := json.Marshal(speechRequest{
		Text:                   text,
		ModelID:                e.config.ModelID,
		ApplyTextNormalization: "auto",
		VoiceSettings: voiceSettings{
			Stability:       e.config.Stability,
			SimilarityBoost: e.config.Clarity,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	query := url.Values{
		"output_format":  {e.config.OutputFormat},
		"enable_logging": {"false"},
	}
	endpoint := fmt.Sprintf("%s/text-to-speech/%s/stream?%s",
		e.config.APIBaseURL, url.PathEscape(e.config.VoiceID), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Accept", e.ContentType())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.config.APIKey)
	return req, nil
}

// ConvertTextToSpeech starts a streaming synthesis and returns its audio chunks.
// Upstream errors are returned before any chunk is produced; the channel closes when the stream ends.
func (e *ElevenLabsTTS) ConvertTextToSpeech(ctx context.Context, text string) (<-chan []byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	req, err := e.newRequest(ctx, text)
	if err != nil {
		return nil, err
	}

	e.logger.Info("Synthesizing answer",
		zap.Int("textLength", len(text)),
		zap.String("voiceID", e.config.VoiceID))

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eleven labs request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("eleven labs API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	chunks := make(chan []byte, 10)
	go e.stream(ctx, resp.Body, chunks)
	return chunks, nil
}

// stream copies body to out in chunks of at most ChunkSize bytes and closes both
func (e *ElevenLabsTTS) stream(ctx context.Context, body io.ReadCloser, out chan<- []byte) {
	defer close(out)
	defer body.Close()

	var total int
	for {
		chunk := make([]byte, e.config.ChunkSize)
		n, err := body.Read(chunk)
		if n > 0 {
			total += n
			select {
			case out <- chunk[:n]:
			case <-ctx.Done():
				e.logger.Warn("Speech stream abandoned", zap.Int("bytes", total))
				return
			}
		}

		switch {
		case err == io.EOF:
			e.logger.Debug("Speech stream finished", zap.Int("bytes", total))
			return
		case err != nil:
			e.logger.Error("Speech stream interrupted", zap.Int("bytes", total), zap.Error(err))
			return
		}
	}
}
