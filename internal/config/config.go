package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the bot configuration. Non-secret settings live in a TOML
// file; secrets (Mongo URI, OpenAI key) come from the environment and are
// overlaid by FromEnv.
type Config struct {
	BotName string `toml:"bot_name"`
	LogPath string `toml:"log_path"`

	HTTPAddr string `toml:"http_addr"`

	MongoURI      string `toml:"-"`
	MongoDatabase string `toml:"mongo_database"`

	OpenAIKey   string `toml:"-"`
	ChatModel   string `toml:"chat_model"`
	SpeechModel string `toml:"speech_model"`
	SpeechVoice string `toml:"speech_voice"`

	// MirrorMode requires inbound messages to be self-addressed (the
	// operating account talking to itself as a private interface).
	MirrorMode bool `toml:"mirror_mode"`

	ReconnectDelay        time.Duration `toml:"-"`
	ReconnectDelaySeconds int           `toml:"reconnect_delay_seconds"`

	BackendTimeout        time.Duration `toml:"-"`
	BackendTimeoutSeconds int           `toml:"backend_timeout_seconds"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BotName:               "lingozap",
		HTTPAddr:              ":3000",
		MongoDatabase:         "lingozap",
		ChatModel:             "gpt-4o",
		SpeechModel:           "tts-1-hd",
		SpeechVoice:           "onyx",
		ReconnectDelaySeconds: 5,
		BackendTimeoutSeconds: 60,
	}
}

// Load reads config from the given path on top of the defaults.
// A missing file is not an error: defaults plus environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	cfg.FromEnv()
	cfg.ReconnectDelay = time.Duration(cfg.ReconnectDelaySeconds) * time.Second
	cfg.BackendTimeout = time.Duration(cfg.BackendTimeoutSeconds) * time.Second
	return cfg, nil
}

// FromEnv overlays secrets and deployment overrides from the environment.
func (c *Config) FromEnv() {
	if v := os.Getenv("MONGODB_URI"); v != "" {
		c.MongoURI = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAIKey = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.HTTPAddr = ":" + v
	}
	if v := os.Getenv("MIRROR_MODE"); v == "1" || v == "true" {
		c.MirrorMode = true
	}
}

// Validate reports configuration that cannot work at runtime.
func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGODB_URI is not set")
	}
	if c.OpenAIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set")
	}
	return nil
}
