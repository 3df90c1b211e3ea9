package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override, e.g. FLOWFORGE_SERVER_PORT.
const EnvPrefix = "FLOWFORGE_"

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Log     LogConfig     `koanf:"log"`
	Prompts PromptsConfig `koanf:"prompts"`
	LLM     LLMConfig     `koanf:"llm"`
	Admin   AdminConfig   `koanf:"admin"`
	Metrics MetricsConfig `koanf:"metrics"`
	Tokens  TokensConfig  `koanf:"tokens"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimit       float64       `koanf:"rate_limit"` // LLM requests per second per client IP, 0 disables
	RateBurst       int           `koanf:"rate_burst"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	BodyLimit       string        `koanf:"body_limit"`
}

type LogConfig struct {
	Level    string `koanf:"level"`
	Format   string `koanf:"format"`
	File     string `koanf:"file"`
	TraceDir string `koanf:"trace_dir"` // per-generation prompt/response traces, empty disables
}

type PromptsConfig struct {
	Dir     string `koanf:"dir"`
	SeedDir string `koanf:"seed_dir"`
}

type LLMConfig struct {
	Backend         string        `koanf:"backend"`
	BaseURL         string        `koanf:"base_url"`
	APIKey          string        `koanf:"api_key"`
	Models          []string      `koanf:"models"`
	ValidationModel string        `koanf:"validation_model"`
	Temperature     float64       `koanf:"temperature"`
	MaxTokens       int           `koanf:"max_tokens"`
	Timeout         time.Duration `koanf:"timeout"`
	MaxRetries      int           `koanf:"max_retries"`
	Referer         string        `koanf:"referer"`
	AppTitle        string        `koanf:"app_title"`
}

type AdminConfig struct {
	Password  string        `koanf:"password"` // plaintext or bcrypt hash
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

type TokensConfig struct {
	Encoding string `koanf:"encoding"` // tiktoken encoding; empty uses the 4 chars/token heuristic
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.port":             8888,
		"server.cors_origins":     []string{"*"},
		"server.rate_limit":       1.0,
		"server.rate_burst":       5,
		"server.shutdown_timeout": "10s",
		"server.body_limit":       "2M",

		"log.level":  "info",
		"log.format": "console",

		"prompts.dir": "admin_data/prompts",

		"llm.backend":          "langchain",
		"llm.base_url":         "https://openrouter.ai/api/v1",
		"llm.models":           []string{"openai/gpt-3.5-turbo", "openai/gpt-4", "anthropic/claude-3-haiku-20240307"},
		"llm.validation_model": "openai/gpt-3.5-turbo",
		"llm.timeout":          "120s",
		"llm.max_retries":      0,
		"llm.app_title":        "FlowForge",

		"admin.token_ttl": "12h",

		"metrics.enabled": true,
		"metrics.path":    "/metrics",
	}
}

// envKey maps FLOWFORGE_LLM_MAX_RETRIES to llm.max_retries: the first segment
// names the section, the rest is the key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, key, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + key
}

// LoadConfig loads defaults, then the TOML file, then environment overrides.
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		defaultPaths := []string{"./flowforge.toml", "$HOME/.flowforge.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// variables used by earlier deployments
	if config.LLM.APIKey == "" {
		config.LLM.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if config.Admin.Password == "" {
		config.Admin.Password = os.Getenv("ADMIN_PASSWORD")
	}

	return &config, nil
}

// InitConfig writes a sample configuration file.
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# FlowForge Configuration

[server]
port = 8888
cors_origins = ["*"]
rate_limit = 1.0   # LLM requests per second per client IP
rate_burst = 5

[log]
level = "info"
format = "console"   # or "json"
# file = "logs/flowforge.log"
# trace_dir = "logs/traces"

[prompts]
dir = "admin_data/prompts"
# seed_dir = "prompts/seed"

[llm]
backend = "langchain"   # or "openai"
base_url = "https://openrouter.ai/api/v1"
api_key = "your-openrouter-api-key"
models = ["openai/gpt-3.5-turbo", "openai/gpt-4", "anthropic/claude-3-haiku-20240307"]
validation_model = "openai/gpt-3.5-turbo"
timeout = "120s"
max_retries = 0

[admin]
password = "change-me"
jwt_secret = "a-long-random-string"
token_ttl = "12h"

[metrics]
enabled = true
path = "/metrics"

[tokens]
# encoding = "cl100k_base"
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate validates the configuration
func Validate(config *Config) error {
	var errs []error

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", config.Server.Port))
	}
	if config.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit cannot be negative"))
	}
	if config.Prompts.Dir == "" {
		errs = append(errs, errors.New("prompts.dir is required"))
	}

	switch strings.ToLower(config.LLM.Backend) {
	case "", "langchain", "openai":
	default:
		errs = append(errs, fmt.Errorf("llm.backend must be \"langchain\" or \"openai\", got %q", config.LLM.Backend))
	}
	if len(config.LLM.Models) == 0 {
		errs = append(errs, errors.New("llm.models must list at least one model"))
	}
	if config.LLM.ValidationModel == "" {
		errs = append(errs, errors.New("llm.validation_model is required"))
	}
	if config.LLM.Timeout < 0 {
		errs = append(errs, errors.New("llm.timeout cannot be negative"))
	}
	if config.LLM.MaxRetries < 0 {
		errs = append(errs, errors.New("llm.max_retries cannot be negative"))
	}

	switch strings.ToLower(config.Log.Format) {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be \"console\" or \"json\", got %q", config.Log.Format))
	}

	return errors.Join(errs...)
}

// HasModel reports whether model is one of the configured models.
func (c LLMConfig) HasModel(model string) bool {
	for _, m := range c.Models {
		if m == model {
			return true
		}
	}
	return false
}
