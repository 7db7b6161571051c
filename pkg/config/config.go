package config

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

// Config defines the business-level application configuration.
// This structure maps directly to config.json: channel credentials, LLM
// provider groups, and the identity presented in the user-context block.
type Config struct {
	// Channels maps channel identifiers (e.g., "web", "telegram") to their
	// raw JSON configuration payloads.
	Channels map[string]jsoniter.RawMessage `json:"channels"`
	// LLM holds the provider group list in raw JSON.
	LLM jsoniter.RawMessage `json:"llm"`
	// User describes the account on whose behalf the agent acts.
	User UserConfig `json:"user"`
}

// UserConfig identifies the user for the prompt's user-context block.
type UserConfig struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	// Timezone is an IANA identifier, e.g. "Europe/Berlin".
	Timezone string `json:"timezone,omitempty"`
}

// Validate ensures the configuration contains all mandatory fields.
func (c *Config) Validate() error {
	if len(c.LLM) == 0 {
		return fmt.Errorf("mandatory 'llm' configuration is missing or empty")
	}
	return nil
}

// SystemConfig defines engine-level technical parameters (system.json).
type SystemConfig struct {
	// MaxIterations caps the LLM↔tool loop depth for a single turn.
	MaxIterations int `json:"max_iterations"`
	// MaxHistoryEntries is the per-conversation prune threshold.
	MaxHistoryEntries int `json:"max_history_entries"`
	// ContextWindowEntries is how many recent entries are passed to the
	// LLM when history inclusion is on.
	ContextWindowEntries int `json:"context_window_entries"`
	// LLMTimeoutMs is the hard cutoff for a single LLM call.
	LLMTimeoutMs int `json:"llm_timeout_ms"`
	// MaxRetries is the number of recovery attempts for transient LLM
	// or network errors.
	MaxRetries int `json:"max_retries"`
	// RetryDelayMs is the wait between consecutive retry attempts.
	RetryDelayMs int `json:"retry_delay_ms"`
	// WordDelayMs shapes client animation when streaming final text
	// word-by-word. Zero disables the delay.
	WordDelayMs int `json:"word_delay_ms"`
	// InternalChannelBuffer sizes the Go channels buffering stream chunks.
	InternalChannelBuffer int `json:"internal_channel_buffer"`
	// OllamaDefaultURL is the fallback endpoint for a local Ollama instance.
	OllamaDefaultURL string `json:"ollama_default_url"`
	// Environment selects the fixed calendar API base URL ("staging" or
	// "production"). Email APIs use the per-session base URL instead.
	Environment string `json:"environment"`
	// EnableTools globally toggles tool calling. When off, the prompt's
	// tools block reads "No tools available."
	EnableTools bool `json:"enable_tools"`
	// UseMockAgent bypasses the orchestrator with the scripted scenario
	// engine. Demo use only.
	UseMockAgent bool `json:"use_mock_agent"`
	// DebugChunks saves every raw LLM chunk under debug/ for inspection.
	DebugChunks bool `json:"debug_chunks"`
	// LogLevel sets the minimum severity: "debug", "info", "warn", "error".
	LogLevel string `json:"log_level"`
}

// DefaultSystemConfig returns a SystemConfig with safe defaults, used as a
// fallback when system.json is missing or corrupt.
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		MaxIterations:         5,
		MaxHistoryEntries:     50,
		ContextWindowEntries:  10,
		LLMTimeoutMs:          300000,
		MaxRetries:            3,
		RetryDelayMs:          500,
		WordDelayMs:           0,
		InternalChannelBuffer: 100,
		OllamaDefaultURL:      "http://localhost:11434",
		Environment:           "staging",
		EnableTools:           true,
		LogLevel:              "info",
	}
}

// Load reads config.json and system.json from the working directory.
// config.json is mandatory; system.json falls back to defaults.
func Load() (*Config, *SystemConfig, error) {
	appPath := "config.json"
	if _, err := os.Stat(appPath); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("config file '%s' not found. please create one", appPath)
	}

	appFile, err := os.ReadFile(appPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(appFile, &cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	sysCfg := LoadSystemConfig("system.json")

	return &cfg, sysCfg, nil
}

// LoadSystemConfig attempts to load system settings, returning defaults on
// any failure.
func LoadSystemConfig(path string) *SystemConfig {
	cfg := DefaultSystemConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(file, cfg); err != nil {
		return cfg
	}

	return cfg
}
