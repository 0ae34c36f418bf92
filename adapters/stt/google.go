package stt

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/satriahrh/ticketgpt/domain/repositories"
)

// GoogleSpeechToText implements SpeechToText for Google Cloud using synchronous recognition.
// Credentials come from Application Default Credentials.
type GoogleSpeechToText struct {
	language string
	logger   *zap.Logger
}

var _ repositories.SpeechToText = (*GoogleSpeechToText)(nil)

// NewGoogleSpeechToText creates a Google Cloud Speech adapter; language is a BCP-47 code
func NewGoogleSpeechToText(language string, logger *zap.Logger) *GoogleSpeechToText {
	if language == "" {
		language = defaultWhisperLanguage
	}
	return &GoogleSpeechToText{language: language, logger: logger}
}

// TranscribeAudio converts audio data to text using Google Cloud Speech-to-Text (non-streaming)
func (g *GoogleSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	encoding := encodingFromFileName(config.FileName)

	language := config.Language
	if language == "" {
		language = g.language
	}

	client, err := speech.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create speech client: %w", err)
	}
	defer client.Close()

	recognitionConfig := &speechpb.RecognitionConfig{
		Encoding:     encoding,
		LanguageCode: language,
	}

	g.logger.Info("Sending audio to Google Speech",
		zap.String("encoding", encoding.String()),
		zap.String("language", language),
		zap.Int("audioSize", len(audioData)))

	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: recognitionConfig,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audioData},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to recognize speech: %w", err)
	}

	// Results arrive in order for consecutive portions of the audio
	var parts []string
	for _, result := range resp.Results {
		if len(result.Alternatives) > 0 {
			parts = append(parts, strings.TrimSpace(result.Alternatives[0].Transcript))
		}
	}

	return strings.Join(parts, " "), nil
}

// encodingFromFileName picks the recognition encoding from a clip extension.
// Containers Google cannot name here (mp3, m4a) are sent as ENCODING_UNSPECIFIED
// and left to the service to detect.
func encodingFromFileName(fileName string) speechpb.RecognitionConfig_AudioEncoding {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), ".")) {
	case "wav":
		return speechpb.RecognitionConfig_LINEAR16
	case "flac":
		return speechpb.RecognitionConfig_FLAC
	case "ogg", "opus":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "webm":
		return speechpb.RecognitionConfig_WEBM_OPUS
	case "amr":
		return speechpb.RecognitionConfig_AMR
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}
