package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metcalfc/hetang/internal/annotate"
	"github.com/metcalfc/hetang/internal/playback"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "auto", cfg.Classifier.Type)
	assert.Equal(t, "GEMINI_API_KEY", cfg.Classifier.Gemini.APIKeyEnv)
	assert.Equal(t, 60*time.Second, cfg.Classifier.Gemini.Timeout())
	assert.Equal(t, 3, cfg.Classifier.Gemini.MaxRetries)
	assert.Equal(t, annotate.DefaultMaxChars, cfg.Annotation.MaxChars)
	assert.Equal(t, playback.DefaultRate, cfg.Playback.Rate)
	assert.Equal(t, time.Second, cfg.Playback.Floor())
	assert.True(t, cfg.Highlight.Nouns.Enabled)
	assert.False(t, cfg.Highlight.Verbs.Enabled)
	assert.Equal(t, "#f97316", cfg.Highlight.Nouns.Color)
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hetang.yaml")
	data := `
classifier:
  type: local
playback:
  rate: 40
highlight:
  verbs:
    enabled: true
    color: "#00FF00"
  adjectives:
    color: "red; position: fixed"
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Classifier.Type)
	assert.Equal(t, playback.MaxRate, cfg.Playback.Rate)
	assert.True(t, cfg.Highlight.Nouns.Enabled, "unset sections keep defaults")
	assert.True(t, cfg.Highlight.Verbs.Enabled)
	assert.Equal(t, "#00ff00", cfg.Highlight.Verbs.Color)
	assert.Equal(t, annotate.AdjectiveColor, cfg.Highlight.Adjectives.Color)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "glossary.db", cfg.Glossary.Path)
}

func TestLoadRetries(t *testing.T) {
	tests := []struct {
		data string
		want int
	}{
		{"classifier:\n  type: gemini\n", 3},
		{"classifier:\n  gemini:\n    max_retries: 0\n", 0},
		{"classifier:\n  gemini:\n    max_retries: 5\n", 5},
		{"classifier:\n  gemini:\n    max_retries: -2\n", 0},
	}
	for _, tt := range tests {
		path := filepath.Join(t.TempDir(), "hetang.yaml")
		require.NoError(t, os.WriteFile(path, []byte(tt.data), 0o644))
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, tt.want, cfg.Classifier.Gemini.MaxRetries, "config %q", tt.data)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("classifier: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Server.Addr = ":9999"
	cfg.Highlight = cfg.Highlight.Toggle(annotate.Adjective)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadDefaultWritesUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "hetang", "config.yaml"), path)
	assert.Equal(t, Default(), cfg)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte("HETANG_TEST_VAR=from-file\n"), 0o644))
	t.Setenv("HETANG_TEST_VAR", "")
	os.Unsetenv("HETANG_TEST_VAR")

	require.NoError(t, LoadEnv(env, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("HETANG_TEST_VAR"))
}
