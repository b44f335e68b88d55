// Package config loads the bot configuration from YAML with credentials
// sourced from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds everything the bot needs at startup.
type Config struct {
	// APIID and APIHash identify the Telegram application. Obtain them at
	// https://my.telegram.org/apps. Both are required.
	APIID   int    `yaml:"api_id"`
	APIHash string `yaml:"api_hash"`

	// Model is the Ollama model used for replies.
	Model string `yaml:"model"`

	// OllamaURL is the base URL of the local Ollama server.
	OllamaURL string `yaml:"ollama_url"`

	// SessionFile and ContactsFile are the two persisted artifacts: the
	// opaque reconnect credential and the allow-list mapping.
	SessionFile  string `yaml:"session_file"`
	ContactsFile string `yaml:"contacts_file"`

	// DialogLimit caps how many recent dialogs onboarding enumerates.
	DialogLimit int `yaml:"dialog_limit"`

	// HistoryLimit caps how many past messages are fetched per contact
	// when hydrating conversation state.
	HistoryLimit int `yaml:"history_limit"`

	// MaxReplyTokens bounds the model's output length per reply.
	MaxReplyTokens int `yaml:"max_reply_tokens"`

	// Streaming selects streamed completions with typing indicators.
	// When false the reply is requested as a single completion.
	Streaming bool `yaml:"streaming"`

	// TypingRefresh is how often the typing indicator is re-sent while
	// streamed chunks keep arriving. Telegram expires the indicator after
	// roughly six seconds.
	TypingRefresh time.Duration `yaml:"typing_refresh"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "text" or "json"
}

// Default returns the configuration defaults. Telegram credentials have no
// default and must come from the config file or the environment.
func Default() *Config {
	return &Config{
		Model:          "llama3.2",
		OllamaURL:      "http://localhost:11434",
		SessionFile:    "session.json",
		ContactsFile:   "contacts.json",
		DialogLimit:    100,
		HistoryLimit:   500,
		MaxReplyTokens: 250,
		Streaming:      true,
		TypingRefresh:  5 * time.Second,
		Logging:        LoggingConfig{Level: "info", Format: "text"},
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} references in config
// values.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// Load reads the YAML config at path, overlaying it on the defaults. A
// missing file is not an error: the defaults plus environment variables may
// be a complete configuration. .env and .env.local are loaded first, without
// overwriting variables already set in the environment. Callers that need a
// working Telegram connection should call Validate on the result.
func Load(path string) (*Config, error) {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
		resolveRelativePaths(cfg, path)
	}

	applyEnv(cfg)
	return cfg, nil
}

// Validate checks for the configuration errors that must surface as startup
// failures rather than first-use surprises.
func (c *Config) Validate() error {
	if c.APIID <= 0 {
		return fmt.Errorf("config error: api_id is required (set TELEGRAM_API_ID or api_id in config.yaml)")
	}
	if strings.TrimSpace(c.APIHash) == "" {
		return fmt.Errorf("config error: api_hash is required (set TELEGRAM_API_HASH or api_hash in config.yaml)")
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("config error: model must not be empty")
	}
	if c.DialogLimit <= 0 || c.HistoryLimit <= 0 {
		return fmt.Errorf("config error: dialog_limit and history_limit must be positive")
	}
	return nil
}

// applyEnv fills credentials and the model from the environment when the
// config file left them unset.
func applyEnv(cfg *Config) {
	if cfg.APIID <= 0 {
		if v := os.Getenv("TELEGRAM_API_ID"); v != "" {
			var id int
			if _, err := fmt.Sscanf(v, "%d", &id); err == nil {
				cfg.APIID = id
			}
		}
	}
	if cfg.APIHash == "" {
		cfg.APIHash = os.Getenv("TELEGRAM_API_HASH")
	}
	if v := os.Getenv("STANDIN_MODEL"); v != "" {
		cfg.Model = v
	}
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} references with their
// environment values. An unset ${VAR} without a default keeps the
// placeholder so the YAML still parses and validation reports the miss.
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		sub := envVarPattern.FindStringSubmatch(match)
		name, def := sub[1], sub[2]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		if def != "" {
			return def
		}
		return match
	})
}

// resolveRelativePaths anchors the artifact paths to the config file's
// directory so the bot behaves the same regardless of working directory.
func resolveRelativePaths(cfg *Config, configPath string) {
	dir := filepath.Dir(configPath)
	if cfg.SessionFile != "" && !filepath.IsAbs(cfg.SessionFile) {
		cfg.SessionFile = filepath.Join(dir, cfg.SessionFile)
	}
	if cfg.ContactsFile != "" && !filepath.IsAbs(cfg.ContactsFile) {
		cfg.ContactsFile = filepath.Join(dir, cfg.ContactsFile)
	}
}
