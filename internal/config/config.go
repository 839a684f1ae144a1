package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for the obfuscation service.
type Config struct {
	General   GeneralConfig   `json:"general"`
	Server    ServerConfig    `json:"server"`
	Engine    EngineConfig    `json:"engine"`
	Retention RetentionConfig `json:"retention"`
	Notify    NotifyConfig    `json:"notify"`
}

type GeneralConfig struct {
	DataDir  string `json:"dataDir"`
	LogLevel string `json:"logLevel"`
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// EngineConfig describes the external obfuscation engine command.
// The engine receives the option record as a JSON argument and the
// source text on stdin, and writes the transformed code to stdout.
type EngineConfig struct {
	Command        string   `json:"command"`
	Args           []string `json:"args,omitempty"`
	TimeoutSeconds int      `json:"timeoutSeconds,omitempty"` // 0 = no timeout
	MaxOutputBytes int      `json:"maxOutputBytes,omitempty"`
}

type RetentionConfig struct {
	Days          int `json:"days"`
	IntervalHours int `json:"intervalHours"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  string `json:"chatId"`
}

// UploadDir is the staging directory for uploaded source files.
func (c *Config) UploadDir() string {
	return filepath.Join(c.General.DataDir, "uploads")
}

// OutputDir holds persisted artifacts.
func (c *Config) OutputDir() string {
	return filepath.Join(c.General.DataDir, "output")
}

// DBPath is the job history database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.General.DataDir, "jobs.db")
}

// DefaultConfigDir returns ~/.obfuscator.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".obfuscator"
	}
	return filepath.Join(home, ".obfuscator")
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads and parses the config file, expanding ${VAR} references and
// ~/ paths. A missing file is an error; callers fall back to Defaults().
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	expanded := ExpandEnvVars(string(data))

	cfg := Defaults()
	if err := json.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config: %w", err)
	}

	cfg.General.DataDir = ExpandPath(cfg.General.DataDir)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as indented JSON, creating the directory if needed.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.General.DataDir == "" {
		errs = append(errs, "general.dataDir must not be empty")
	}
	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 0 and 65535")
	}

	if cfg.Engine.Command == "" {
		errs = append(errs, "engine.command must not be empty")
	}
	if cfg.Engine.TimeoutSeconds < 0 {
		errs = append(errs, "engine.timeoutSeconds must be >= 0")
	}

	if cfg.Retention.Days < 1 {
		errs = append(errs, "retention.days must be >= 1")
	}
	if cfg.Retention.IntervalHours < 1 {
		errs = append(errs, "retention.intervalHours must be >= 1")
	}

	if cfg.Notify.Telegram.Enabled && cfg.Notify.Telegram.Token == "" {
		errs = append(errs, "notify.telegram.token is required when telegram is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
