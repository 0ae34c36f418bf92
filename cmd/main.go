package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/satriahrh/ticketgpt/adapters"
	"github.com/satriahrh/ticketgpt/adapters/llm"
	"github.com/satriahrh/ticketgpt/adapters/mongo"
	"github.com/satriahrh/ticketgpt/adapters/storage"
	"github.com/satriahrh/ticketgpt/adapters/stt"
	"github.com/satriahrh/ticketgpt/adapters/tabular"
	"github.com/satriahrh/ticketgpt/adapters/tts"
	"github.com/satriahrh/ticketgpt/domain/repositories"
	"github.com/satriahrh/ticketgpt/internal/api"
	"github.com/satriahrh/ticketgpt/internal/auth"
	"github.com/satriahrh/ticketgpt/internal/config"
	"github.com/satriahrh/ticketgpt/internal/metrics"
	"github.com/satriahrh/ticketgpt/internal/ui"
	"github.com/satriahrh/ticketgpt/internal/websocket"
	"github.com/satriahrh/ticketgpt/usecase"
)

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	flag.Parse()

	// .env is optional; real environment variables win
	envErr := godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn("Failed to load .env file", zap.Error(envErr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize adapters
	speechToText, err := newSpeechToText(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create transcription provider", zap.Error(err))
	}

	model, err := newLanguageModel(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create language model", zap.Error(err))
	}

	agent, err := tabular.NewCSVAgent(tabular.CSVAgentConfig{
		DatasetPath: cfg.DatasetPath(),
		MaxRows:     cfg.Agent.MaxRows,
	}, model, logger)
	if err != nil {
		logger.Fatal("Failed to create dataset agent", zap.Error(err))
	}

	exchanges, closeExchanges, err := newExchangeRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create exchange history", zap.Error(err))
	}
	defer closeExchanges()

	textToSpeech, err := newTextToSpeech(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create speech synthesis", zap.Error(err))
	}

	signer, err := newHandleSigner(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create handle signer", zap.Error(err))
	}

	renderer, err := ui.NewRenderer()
	if err != nil {
		logger.Fatal("Failed to load templates", zap.Error(err))
	}

	m := metrics.NewMetrics(nil)

	// Initialize usecase services
	service := usecase.NewQAService(
		storage.NewFileAudioStore(cfg.Storage.DataDir, logger),
		storage.NewFileResponseStore(cfg.ResponsePath()),
		speechToText,
		agent,
		exchanges,
		m,
		usecase.QAServiceConfig{
			Language:       cfg.Transcription.Language,
			SpeechLanguage: cfg.Speech.Lang,
		},
		logger,
	)

	// Initialize WebSocket hub
	hub := websocket.NewHub(service, m, logger)
	go hub.Run(ctx)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.CORSOrigins,
	}))
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	e.Use(m.Middleware())

	// Initialize routes
	var synthesizer repositories.TextToSpeech
	if textToSpeech != nil {
		synthesizer = textToSpeech
	}
	api.InitRoutes(e, api.NewHandler(service, signer, synthesizer, logger), hub, m)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Server.Port),
		zap.String("dataDir", cfg.Storage.DataDir),
		zap.String("transcription", cfg.Transcription.Provider),
		zap.String("llm", cfg.LLM.Provider))

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}

	atomicLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = atomicLevel
	return zapConfig.Build()
}

func newSpeechToText(cfg *config.Config, logger *zap.Logger) (repositories.SpeechToText, error) {
	switch cfg.Transcription.Provider {
	case config.ProviderOpenAI:
		return stt.NewWhisperSpeechToText(stt.WhisperConfig{
			APIKey:   cfg.OpenAI.APIKey,
			BaseURL:  cfg.OpenAI.BaseURL,
			Model:    cfg.Transcription.Model,
			Language: cfg.Transcription.Language,
			Timeout:  cfg.Transcription.Timeout,
		}, logger)
	case config.ProviderGoogle:
		return stt.NewGoogleSpeechToText(cfg.Transcription.Language, logger), nil
	case config.ProviderMock:
		logger.Warn("Using mock transcription")
		return stt.NewMockSpeechToText(logger), nil
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", cfg.Transcription.Provider)
	}
}

func newLanguageModel(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.LargeLanguageModel, error) {
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		return llm.NewOpenAILLM(llm.OpenAIConfig{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.ChatModel,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLM.Timeout,
		}, logger)
	case config.ProviderGemini:
		return llm.NewGeminiLLM(ctx, llm.GeminiConfig{
			APIKey:          cfg.Gemini.APIKey,
			Model:           cfg.Gemini.Model,
			Temperature:     cfg.LLM.Temperature,
			MaxOutputTokens: cfg.LLM.MaxTokens,
			Timeout:         cfg.LLM.Timeout,
		}, logger)
	case config.ProviderMock:
		logger.Warn("Using mock language model")
		return llm.NewMockLLM(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// newExchangeRepository uses MongoDB when a URI is configured and memory otherwise
func newExchangeRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.ExchangeRepository, func(), error) {
	if cfg.Mongo.URI == "" {
		logger.Info("MONGODB_URI not set, keeping exchange history in memory")
		return adapters.NewMemoryExchangeRepository(0), func() {}, nil
	}

	client, err := mongo.NewClient(ctx, mongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	repo := mongo.NewExchangeRepository(client.Database, logger)
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Warn("Failed to create exchange indexes", zap.Error(err))
	}

	closeFn := func() {
		if err := client.Close(context.Background()); err != nil {
			logger.Error("Failed to close MongoDB connection", zap.Error(err))
		}
	}
	return repo, closeFn, nil
}

// newTextToSpeech returns nil when no ElevenLabs key is configured
func newTextToSpeech(cfg *config.Config, logger *zap.Logger) (*tts.ElevenLabsTTS, error) {
	if cfg.ElevenLabs.APIKey == "" {
		logger.Info("ELEVEN_LABS_API_KEY not set, server-side speech disabled")
		return nil, nil
	}

	return tts.NewElevenLabsTTS(tts.ElevenLabsConfig{
		APIKey:       cfg.ElevenLabs.APIKey,
		VoiceID:      cfg.ElevenLabs.VoiceID,
		ModelID:      cfg.ElevenLabs.ModelID,
		OutputFormat: cfg.ElevenLabs.OutputFormat,
	}, logger)
}

func newHandleSigner(cfg *config.Config, logger *zap.Logger) (*auth.HandleSigner, error) {
	secret := []byte(cfg.Auth.HandleSecret)
	if len(secret) == 0 {
		logger.Warn("HANDLE_SECRET not set, clip handles will not survive a restart")

		var err error
		secret, err = auth.RandomSecret()
		if err != nil {
			return nil, err
		}
	}
	return auth.NewHandleSigner(secret, cfg.Auth.HandleTTL)
}
