// Package config loads the YAML application configuration.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/metcalfc/hetang/internal/annotate"
	"github.com/metcalfc/hetang/internal/playback"
)

// GeminiConfig configures the Gemini classifier.
type GeminiConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"` // unset keeps the default of 3
}

// Timeout returns the request timeout.
func (g GeminiConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// ClassifierConfig selects the classifier: "gemini", "local", or "auto" (Gemini when
// its API key is set, local otherwise).
type ClassifierConfig struct {
	Type   string       `yaml:"type"`
	Gemini GeminiConfig `yaml:"gemini"`
}

// AnnotationConfig bounds the annotated text.
type AnnotationConfig struct {
	MaxChars int `yaml:"max_chars"`
}

// PlaybackConfig sets focus playback defaults.
type PlaybackConfig struct {
	Rate    int `yaml:"rate"`
	FloorMS int `yaml:"floor_ms"`
}

// Floor returns the minimum unit duration.
func (p PlaybackConfig) Floor() time.Duration {
	return time.Duration(p.FloorMS) * time.Millisecond
}

// GlossaryConfig locates the explanation cache. A relative path is resolved
// against the state directory.
type GlossaryConfig struct {
	Path string `yaml:"path"`
}

// LogConfig configures logging. An empty path discards logs.
type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Classifier ClassifierConfig         `yaml:"classifier"`
	Annotation AnnotationConfig         `yaml:"annotation"`
	Playback   PlaybackConfig           `yaml:"playback"`
	Highlight  annotate.HighlightConfig `yaml:"highlight"`
	Glossary   GlossaryConfig           `yaml:"glossary"`
	Log        LogConfig                `yaml:"log"`
	Server     ServerConfig             `yaml:"server"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./hetang.yaml first, then ~/.config/hetang/config.yaml.
// If neither exists, it writes defaults to ~/.config/hetang/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "hetang.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadEnv loads .env files into the environment. Missing files are ignored and
// variables already set win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return err
		}
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "hetang", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := &AppConfig{
		Classifier: ClassifierConfig{Type: "auto", Gemini: GeminiConfig{MaxRetries: 3}},
		Highlight:  annotate.DefaultHighlightConfig(),
		Log:        LogConfig{Level: "info"},
	}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Classifier.Type == "" {
		cfg.Classifier.Type = "auto"
	}
	g := &cfg.Classifier.Gemini
	if g.BaseURL == "" {
		g.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if g.APIKeyEnv == "" {
		g.APIKeyEnv = "GEMINI_API_KEY"
	}
	if g.Model == "" {
		g.Model = "gemini-2.5-flash"
	}
	if g.TimeoutSecs == 0 {
		g.TimeoutSecs = 60
	}
	// an explicit max_retries: 0 disables retries
	if g.MaxRetries < 0 {
		g.MaxRetries = 0
	}
	if cfg.Annotation.MaxChars <= 0 {
		cfg.Annotation.MaxChars = annotate.DefaultMaxChars
	}
	cfg.Playback.Rate = playback.ClampRate(cfg.Playback.Rate)
	if cfg.Playback.FloorMS <= 0 {
		cfg.Playback.FloorMS = int(playback.DefaultFloor / time.Millisecond)
	}
	h := &cfg.Highlight
	h.Nouns.Color = annotate.ResolveColor(annotate.Noun, h.Nouns.Color)
	h.Verbs.Color = annotate.ResolveColor(annotate.Verb, h.Verbs.Color)
	h.Adjectives.Color = annotate.ResolveColor(annotate.Adjective, h.Adjectives.Color)
	if cfg.Glossary.Path == "" {
		cfg.Glossary.Path = "glossary.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8080"
	}
}
