package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider names accepted by the transcription and llm sections
const (
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"
	ProviderGemini = "gemini"
	ProviderMock   = "mock"
)

// Config represents the complete server configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	LLM           LLMConfig           `yaml:"llm"`
	Agent         AgentConfig         `yaml:"agent"`
	OpenAI        OpenAIConfig        `yaml:"openai"`
	Gemini        GeminiConfig        `yaml:"gemini"`
	ElevenLabs    ElevenLabsConfig    `yaml:"eleven_labs"`
	Mongo         MongoConfig         `yaml:"mongo"`
	Auth          AuthConfig          `yaml:"auth"`
	Speech        SpeechConfig        `yaml:"speech"`
	Log           LogConfig           `yaml:"log"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            string        `yaml:"port"`
	BodyLimit       string        `yaml:"body_limit"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig locates the data directory and the files inside it
type StorageConfig struct {
	DataDir      string `yaml:"data_dir"`
	DatasetFile  string `yaml:"dataset_file"`
	ResponseFile string `yaml:"response_file"`
}

type TranscriptionConfig struct {
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	Language string        `yaml:"language"`
	Timeout  time.Duration `yaml:"timeout"`
}

type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

type AgentConfig struct {
	MaxRows int `yaml:"max_rows"`
}

type OpenAIConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	ChatModel string `yaml:"chat_model"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type ElevenLabsConfig struct {
	APIKey       string `yaml:"api_key"`
	VoiceID      string `yaml:"voice_id"`
	ModelID      string `yaml:"model_id"`
	OutputFormat string `yaml:"output_format"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// AuthConfig configures clip handle signing
type AuthConfig struct {
	HandleSecret string        `yaml:"handle_secret"`
	HandleTTL    time.Duration `yaml:"handle_ttl"`
}

// SpeechConfig configures browser speech synthesis
type SpeechConfig struct {
	Lang string `yaml:"lang"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads the optional YAML file at path, applies environment overrides and defaults,
// and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.setDefaults()

	dataDir, err := filepath.Abs(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}
	cfg.Storage.DataDir = dataDir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnv overrides file values with non-empty environment variables
func (c *Config) applyEnv() error {
	setString := func(target *string, key string) {
		if value := os.Getenv(key); value != "" {
			*target = value
		}
	}

	setString(&c.Server.Port, "PORT")
	setString(&c.Storage.DataDir, "TICKETGPT_DATA_DIR")
	setString(&c.Transcription.Provider, "STT_PROVIDER")
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&c.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&c.ElevenLabs.APIKey, "ELEVEN_LABS_API_KEY")
	setString(&c.ElevenLabs.VoiceID, "ELEVEN_LABS_VOICE_ID")
	setString(&c.Mongo.URI, "MONGODB_URI")
	setString(&c.Mongo.Database, "MONGODB_DATABASE")
	setString(&c.Auth.HandleSecret, "HANDLE_SECRET")
	setString(&c.Log.Level, "LOG_LEVEL")

	if value := os.Getenv("AGENT_MAX_ROWS"); value != "" {
		maxRows, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("parsing AGENT_MAX_ROWS: %w", err)
		}
		c.Agent.MaxRows = maxRows
	}

	return nil
}

func (c *Config) setDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.BodyLimit == "" {
		c.Server.BodyLimit = "20M"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "."
	}
	if c.Storage.DatasetFile == "" {
		c.Storage.DatasetFile = "raw.csv"
	}
	if c.Storage.ResponseFile == "" {
		c.Storage.ResponseFile = "response.txt"
	}
	if c.Transcription.Provider == "" {
		c.Transcription.Provider = ProviderOpenAI
	}
	if c.Transcription.Model == "" {
		c.Transcription.Model = "whisper-1"
	}
	if c.Transcription.Language == "" {
		c.Transcription.Language = "en"
	}
	if c.Transcription.Timeout == 0 {
		c.Transcription.Timeout = 60 * time.Second
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderOpenAI
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 60 * time.Second
	}
	if c.Agent.MaxRows == 0 {
		c.Agent.MaxRows = 500
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "ticketgpt"
	}
	if c.Auth.HandleTTL == 0 {
		c.Auth.HandleTTL = 24 * time.Hour
	}
	if c.Speech.Lang == "" {
		c.Speech.Lang = "en-US"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	var errs []error

	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		errs = append(errs, fmt.Errorf("server.port must be numeric, got %q", c.Server.Port))
	}

	for _, name := range []string{c.Storage.DatasetFile, c.Storage.ResponseFile} {
		if strings.ContainsAny(name, `/\`) {
			errs = append(errs, fmt.Errorf("storage file %q must be a plain file name", name))
		}
	}

	switch c.Transcription.Provider {
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai transcription provider"))
		}
	case ProviderGoogle, ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unknown transcription provider %q", c.Transcription.Provider))
	}

	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai llm provider"))
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini llm provider"))
		}
	case ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature must be between 0 and 2, got %f", c.LLM.Temperature))
	}
	if c.Agent.MaxRows < 0 {
		errs = append(errs, fmt.Errorf("agent.max_rows must be positive, got %d", c.Agent.MaxRows))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}

	return errors.Join(errs...)
}

// DatasetPath returns the absolute path of the dataset file
func (c *Config) DatasetPath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.DatasetFile)
}

// ResponsePath returns the absolute path of the response file
func (c *Config) ResponsePath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.ResponseFile)
}
