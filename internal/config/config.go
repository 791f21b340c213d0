// Package config loads docent configuration from an optional YAML file and
// the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all docent configuration. Only structure is validated on
// load; missing credentials surface when they are first needed.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Vision VisionConfig `yaml:"vision"`
	Voice  VoiceConfig  `yaml:"voice"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Port int `yaml:"port" validate:"min=1,max=65535"`
}

// VisionConfig selects and tunes the vision model.
type VisionConfig struct {
	Provider    string        `yaml:"provider" validate:"oneof=openai gemini anthropic ollama"`
	MaxTokens   int           `yaml:"max_tokens" validate:"min=1,max=8192"`
	Temperature float64       `yaml:"temperature" validate:"min=0,max=2"`
	Timeout     time.Duration `yaml:"timeout" validate:"min=1s,max=5m"`
	MaxImageMB  int           `yaml:"max_image_mb" validate:"min=1,max=50"`

	OpenAI    ProviderConfig `yaml:"openai"`
	Gemini    ProviderConfig `yaml:"gemini"`
	Anthropic ProviderConfig `yaml:"anthropic"`
	Ollama    ProviderConfig `yaml:"ollama"`
}

// ProviderConfig holds one provider's endpoint and credentials.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
}

// VoiceConfig points at the ElevenLabs agent.
type VoiceConfig struct {
	AgentID string        `yaml:"agent_id"`
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"teardown_timeout" validate:"min=0,max=1m"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Vision: VisionConfig{
			Provider:   "openai",
			MaxTokens:  500,
			Timeout:    30 * time.Second,
			MaxImageMB: 10,
			OpenAI:     ProviderConfig{Model: "gpt-4o"},
			Gemini:     ProviderConfig{Model: "gemini-1.5-flash"},
			Anthropic:  ProviderConfig{Model: "claude-3-5-sonnet-latest"},
			Ollama:     ProviderConfig{Model: "llava", BaseURL: "http://localhost:11434"},
		},
		Voice: VoiceConfig{BaseURL: "https://api.elevenlabs.io", Timeout: 5 * time.Second},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the structure of c.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"VISION_PROVIDER":     &c.Vision.Provider,
		"OPENAI_API_KEY":      &c.Vision.OpenAI.APIKey,
		"OPENAI_MODEL":        &c.Vision.OpenAI.Model,
		"OPENAI_BASE_URL":     &c.Vision.OpenAI.BaseURL,
		"GEMINI_API_KEY":      &c.Vision.Gemini.APIKey,
		"GEMINI_MODEL":        &c.Vision.Gemini.Model,
		"ANTHROPIC_API_KEY":   &c.Vision.Anthropic.APIKey,
		"ANTHROPIC_MODEL":     &c.Vision.Anthropic.Model,
		"OLLAMA_URL":          &c.Vision.Ollama.BaseURL,
		"OLLAMA_MODEL":        &c.Vision.Ollama.Model,
		"ELEVENLABS_AGENT_ID": &c.Voice.AgentID,
		"ELEVENLABS_API_KEY":  &c.Voice.APIKey,
		"ELEVENLABS_BASE_URL": &c.Voice.BaseURL,
		"DOCENT_LOG_LEVEL":    &c.Log.Level,
		"DOCENT_LOG_FORMAT":   &c.Log.Format,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("DOCENT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DOCENT_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	return nil
}

// Model returns the model name configured for the selected provider.
func (v VisionConfig) Model() string {
	return v.Selected().Model
}

// Selected returns the settings of the selected provider.
func (v VisionConfig) Selected() ProviderConfig {
	switch v.Provider {
	case "gemini":
		return v.Gemini
	case "anthropic":
		return v.Anthropic
	case "ollama":
		return v.Ollama
	default:
		return v.OpenAI
	}
}

// MaxImageBytes is MaxImageMB in bytes.
func (v VisionConfig) MaxImageBytes() int {
	return v.MaxImageMB * 1024 * 1024
}

// SetModel overrides the model of the selected provider.
func (v *VisionConfig) SetModel(model string) {
	switch v.Provider {
	case "gemini":
		v.Gemini.Model = model
	case "anthropic":
		v.Anthropic.Model = model
	case "ollama":
		v.Ollama.Model = model
	default:
		v.OpenAI.Model = model
	}
}
