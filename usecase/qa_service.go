package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/ticketgpt/domain"
	"github.com/satriahrh/ticketgpt/domain/entities"
	"github.com/satriahrh/ticketgpt/domain/repositories"
)

const (
	defaultTranscriptionLanguage = "en"
	defaultSpeechLanguage        = "en-US"

	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Observer receives the outcome of each pipeline stage
type Observer interface {
	ObserveTranscription(elapsed time.Duration, err error)
	ObserveAgent(elapsed time.Duration, err error)
	ClipSaved()
}

type noopObserver struct{}

func (noopObserver) ObserveTranscription(time.Duration, error) {}
func (noopObserver) ObserveAgent(time.Duration, error)         {}
func (noopObserver) ClipSaved()                                {}

// QAServiceConfig holds the fixed languages used by the pipeline
type QAServiceConfig struct {
	// Language is sent to the transcription provider
	Language string
	// SpeechLanguage is attached to answers for speech synthesis
	SpeechLanguage string
}

// QAService sequences capture, transcription and question answering
type QAService struct {
	audioStore     repositories.AudioStore
	responseStore  repositories.ResponseStore
	speechToText   repositories.SpeechToText
	agent          repositories.TabularQA
	exchanges      repositories.ExchangeRepository
	observer       Observer
	language       string
	speechLanguage string
	logger         *zap.Logger
}

// NewQAService creates a new question answering service.
// A nil observer disables stage reporting.
func NewQAService(
	audioStore repositories.AudioStore,
	responseStore repositories.ResponseStore,
	stt repositories.SpeechToText,
	agent repositories.TabularQA,
	exchanges repositories.ExchangeRepository,
	observer Observer,
	config QAServiceConfig,
	logger *zap.Logger,
) *QAService {
	if observer == nil {
		observer = noopObserver{}
	}

	language := config.Language
	if language == "" {
		language = defaultTranscriptionLanguage
	}

	speechLanguage := config.SpeechLanguage
	if speechLanguage == "" {
		speechLanguage = defaultSpeechLanguage
	}

	return &QAService{
		audioStore:     audioStore,
		responseStore:  responseStore,
		speechToText:   stt,
		agent:          agent,
		exchanges:      exchanges,
		observer:       observer,
		language:       language,
		speechLanguage: speechLanguage,
		logger:         logger,
	}
}

// SaveAudio persists a captured clip
func (s *QAService) SaveAudio(ctx context.Context, audio []byte, extension string) (*entities.AudioClip, error) {
	clip, err := s.audioStore.Save(ctx, audio, extension)
	if err != nil {
		return nil, err
	}

	s.observer.ClipSaved()
	return clip, nil
}

// TranscribeAudio sends a stored clip to the speech-to-text provider
func (s *QAService) TranscribeAudio(ctx context.Context, clipName string) (string, error) {
	audio, err := s.audioStore.Read(ctx, clipName)
	if err != nil {
		return "", err
	}

	start := time.Now()
	transcript, err := s.speechToText.TranscribeAudio(ctx, audio, repositories.AudioConfig{
		FileName: clipName,
		Language: s.language,
	})
	s.observer.ObserveTranscription(time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrTranscriptionFailed, err)
	}

	s.logger.Info("Transcription completed",
		zap.String("clip", clipName),
		zap.Int("transcriptLength", len(transcript)))

	return transcript, nil
}

// AskVoice transcribes a stored clip and answers the transcript
func (s *QAService) AskVoice(ctx context.Context, clipName string) (*domain.QueryResult, error) {
	transcript, err := s.TranscribeAudio(ctx, clipName)
	if err != nil {
		return nil, err
	}
	return s.AnswerTranscript(ctx, clipName, transcript)
}

// AnswerTranscript answers a transcript produced from clipName.
// An empty transcript is reported as NoSpeech without consulting the agent.
func (s *QAService) AnswerTranscript(ctx context.Context, clipName, transcript string) (*domain.QueryResult, error) {
	exchange := entities.NewExchange(entities.ExchangeSourceVoice)
	exchange.ClipName = clipName
	exchange.Transcript = transcript
	exchange.Query = transcript

	if transcript == "" {
		s.logger.Warn("No speech detected", zap.String("clip", clipName))
		return &domain.QueryResult{
			ExchangeID: exchange.ID,
			Source:     exchange.Source,
			ClipName:   clipName,
			NoSpeech:   true,
			Speech:     domain.SpeechPayload{Lang: s.speechLanguage},
		}, nil
	}

	return s.answer(ctx, exchange)
}

// AskLatestVoice answers the most recently stored clip
func (s *QAService) AskLatestVoice(ctx context.Context) (*domain.QueryResult, error) {
	clip, err := s.audioStore.Latest(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Selected newest clip", zap.String("clip", clip.Name))
	return s.AskVoice(ctx, clip.Name)
}

// AskAudio stores the given audio and answers it
func (s *QAService) AskAudio(ctx context.Context, audio []byte, extension string) (*domain.QueryResult, error) {
	clip, err := s.SaveAudio(ctx, audio, extension)
	if err != nil {
		return nil, err
	}
	return s.AskVoice(ctx, clip.Name)
}

// AskText answers a typed query
func (s *QAService) AskText(ctx context.Context, query string) (*domain.QueryResult, error) {
	exchange := entities.NewExchange(entities.ExchangeSourceText)
	exchange.Query = query
	return s.answer(ctx, exchange)
}

func (s *QAService) answer(ctx context.Context, exchange *entities.Exchange) (*domain.QueryResult, error) {
	start := time.Now()
	answer, err := s.agent.Answer(ctx, exchange.Query)
	s.observer.ObserveAgent(time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAgentFailed, err)
	}

	if err := s.responseStore.Write(ctx, answer); err != nil {
		return nil, err
	}

	exchange.Complete(answer)
	s.record(ctx, exchange)

	s.logger.Info("Query answered",
		zap.String("exchangeID", exchange.ID),
		zap.String("source", string(exchange.Source)),
		zap.Int64("durationMs", exchange.DurationMs))

	return &domain.QueryResult{
		ExchangeID: exchange.ID,
		Source:     exchange.Source,
		ClipName:   exchange.ClipName,
		Transcript: exchange.Transcript,
		Query:      exchange.Query,
		Answer:     answer,
		Speech:     domain.SpeechPayload{Text: answer, Lang: s.speechLanguage},
	}, nil
}

// record stores the exchange in history; failures never fail the request
func (s *QAService) record(ctx context.Context, exchange *entities.Exchange) {
	if s.exchanges == nil {
		return
	}
	if err := s.exchanges.Create(ctx, exchange); err != nil {
		s.logger.Warn("Failed to record exchange",
			zap.String("exchangeID", exchange.ID),
			zap.Error(err))
	}
}

// LastResponse returns the content of the response file
func (s *QAService) LastResponse(ctx context.Context) (string, error) {
	return s.responseStore.Read(ctx)
}

// History lists recent exchanges, newest first. The limit is clamped to MaxHistoryLimit.
func (s *QAService) History(ctx context.Context, limit int) ([]*entities.Exchange, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	if s.exchanges == nil {
		return []*entities.Exchange{}, nil
	}

	return s.exchanges.ListRecent(ctx, limit)
}

// Dataset describes the dataset bound to the agent
func (s *QAService) Dataset(ctx context.Context) (*repositories.DatasetInfo, error) {
	describer, ok := s.agent.(repositories.DatasetDescriber)
	if !ok {
		return nil, errors.New("agent does not describe its dataset")
	}
	return describer.Describe(ctx)
}
