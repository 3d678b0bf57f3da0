// Package config loads the chat client's configuration from a YAML file,
// .env files and environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// AppDirName is the directory under ~/.config holding config, .env and history.
const AppDirName = "ollama-chat"

// Provider kinds
const (
	ProviderOllama  = "ollama"
	ProviderBedrock = "bedrock"
)

// Config represents the complete configuration for the chat client
type Config struct {
	Provider ProviderConfig `koanf:"provider"`
	Bedrock  BedrockConfig  `koanf:"bedrock"`
	Models   []string       `koanf:"models"`
	Session  SessionConfig  `koanf:"session"`
	Storage  StorageConfig  `koanf:"storage"`
	Output   OutputConfig   `koanf:"output"`
	Log      LogConfig      `koanf:"log"`
}

// ProviderConfig selects and tunes the inference backend
type ProviderConfig struct {
	Kind        string        `koanf:"kind"`
	Endpoint    string        `koanf:"endpoint"`
	APIKey      string        `koanf:"api_key"`
	Timeout     time.Duration `koanf:"timeout"`
	MaxTokens   int           `koanf:"max_tokens"`
	Temperature float64       `koanf:"temperature"`
}

// BedrockConfig contains AWS credentials and region.
// Empty keys fall back to the SDK's default credential chain.
type BedrockConfig struct {
	Region          string `koanf:"region"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
}

// SessionConfig controls interaction loop behavior
type SessionConfig struct {
	ResetOnModelSwitch bool   `koanf:"reset_on_model_switch"`
	HandshakePrompt    string `koanf:"handshake_prompt"`
}

// StorageConfig controls the session history database
type StorageConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// OutputConfig defines output settings
type OutputConfig struct {
	ReportFile string `koanf:"report_file"`
}

// LogConfig defines logging settings
type LogConfig struct {
	Level string `koanf:"level"`
}

// DefaultModels is the model menu used when none are configured.
var DefaultModels = []string{
	"llama3.2:latest",
	"phi3.5:latest",
	"phi3:latest",
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Kind:        ProviderOllama,
			Endpoint:    "http://localhost:11434/v1",
			APIKey:      "not-needed",
			Timeout:     5 * time.Minute,
			MaxTokens:   1024,
			Temperature: 0.7,
		},
		Bedrock: BedrockConfig{
			Region: "us-east-1",
		},
		Models: append([]string(nil), DefaultModels...),
		Session: SessionConfig{
			HandshakePrompt: "Say 'Ready!'",
		},
		Storage: StorageConfig{
			Enabled: true,
			Path:    filepath.Join(appDir(), "history.db"),
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// LoadConfig reads defaults, the YAML file at path (if present), .env files
// and environment variables, in that order, and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if err := loadFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	loadDotEnv()
	cfg.applyEnv()
	cfg.Storage.Path = expandHome(cfg.Storage.Path)
	cfg.Output.ReportFile = expandHome(cfg.Output.ReportFile)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFile merges a YAML file into cfg, silently skipping missing files.
func loadFile(path string, cfg *Config) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return err
	}
	// Lists replace the defaults instead of being merged element-wise.
	if k.Exists("models") {
		cfg.Models = nil
	}
	return k.Unmarshal("", cfg)
}

// loadDotEnv loads the first .env file found. Variables already present in
// the environment are not overwritten.
func loadDotEnv() {
	for _, path := range envPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

// envPaths returns a list of paths to check for .env files.
func envPaths() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}
	paths = append(paths, filepath.Join(appDir(), ".env"))
	return paths
}

func (c *Config) applyEnv() {
	c.Provider.Kind = getEnvString("OLLAMA_CHAT_PROVIDER", c.Provider.Kind)
	c.Provider.Endpoint = getEnvString("OLLAMA_CHAT_ENDPOINT", c.Provider.Endpoint)
	c.Provider.APIKey = getEnvString("OLLAMA_CHAT_API_KEY", c.Provider.APIKey)
	c.Provider.Timeout = getEnvDuration("OLLAMA_CHAT_TIMEOUT", c.Provider.Timeout)
	if models := getEnvString("OLLAMA_CHAT_MODELS", ""); models != "" {
		c.Models = splitList(models)
	}
	c.Session.ResetOnModelSwitch = getEnvBool("OLLAMA_CHAT_RESET_ON_MODEL_SWITCH", c.Session.ResetOnModelSwitch)
	c.Storage.Enabled = getEnvBool("OLLAMA_CHAT_HISTORY", c.Storage.Enabled)
	c.Storage.Path = getEnvString("OLLAMA_CHAT_HISTORY_PATH", c.Storage.Path)
	c.Output.ReportFile = getEnvString("OLLAMA_CHAT_REPORT_FILE", c.Output.ReportFile)
	c.Log.Level = getEnvString("OLLAMA_CHAT_LOG_LEVEL", c.Log.Level)

	c.Bedrock.Region = getEnvString("AWS_REGION", c.Bedrock.Region)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Provider.Kind {
	case ProviderOllama:
		if c.Provider.Endpoint == "" {
			return fmt.Errorf("provider.endpoint is required")
		}
		u, err := url.Parse(c.Provider.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("provider.endpoint must be an absolute URL, got %q", c.Provider.Endpoint)
		}
	case ProviderBedrock:
		if c.Bedrock.Region == "" {
			return fmt.Errorf("bedrock.region is required")
		}
	case "":
		return fmt.Errorf("provider.kind is required")
	default:
		return fmt.Errorf("provider.kind must be %q or %q, got %q", ProviderOllama, ProviderBedrock, c.Provider.Kind)
	}
	if c.Provider.Timeout < 0 {
		return fmt.Errorf("provider.timeout must not be negative")
	}
	if c.Provider.MaxTokens <= 0 {
		return fmt.Errorf("provider.max_tokens must be positive")
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("models must list at least one model")
	}
	for i, m := range c.Models {
		if strings.TrimSpace(m) == "" {
			return fmt.Errorf("models[%d] is empty", i)
		}
	}
	if c.Storage.Enabled && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required when storage is enabled")
	}
	return nil
}

// DefaultConfigPath returns ~/.config/ollama-chat/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(appDir(), "config.yaml")
}

func appDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", AppDirName)
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns the default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms", or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
