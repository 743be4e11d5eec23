package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

const sampleConfigYAML = `
server:
  address: ":9090"
  readTimeout: 5s
  rateLimit:
    enabled: true
    requestsPerSecond: 10
    burst: 20
logging:
  level: debug
  format: console
locale: de
policy:
  strategy: linear
  initialDelayMs: "100"
  maxRetries: "4"
  incrementMs: "250"
`

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(sampleConfigYAML), 0o600))

	cfg, err := NewLoaderWithLookup(lookupFrom(nil)).Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout.Duration())
	assert.Equal(t, DefaultWriteTimeout, cfg.Server.WriteTimeout.Duration())
	assert.Equal(t, 10.0, cfg.Server.RateLimit.RequestsPerSecond)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, "de", cfg.Locale)

	assert.Equal(t, "linear", cfg.Policy.Strategy)
	assert.Equal(t, "100", cfg.Policy.InitialDelayMs)
	assert.Equal(t, "4", cfg.Policy.MaxRetries)
	assert.Equal(t, "250", cfg.Policy.IncrementMs)
	// Untouched policy fields keep their defaults.
	assert.Equal(t, "2", cfg.Policy.Factor)
	assert.Equal(t, "none", cfg.Policy.Jitter)

	assert.NoError(t, ValidateConfig(cfg))
}

func TestLoader_Load_EmptyPathUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoaderWithLookup(lookupFrom(nil)).Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_Load_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().Load("/nonexistent/path/config.yaml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoader_LoadFromReader_InvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().LoadFromReader(strings.NewReader("server: [unclosed"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Parallel()

	loader := NewLoaderWithLookup(lookupFrom(map[string]string{
		EnvListenAddr: "127.0.0.1:7000",
		EnvLogLevel:   "warn",
		EnvLogFormat:  "console",
		EnvLocale:     "fr",
	}))

	cfg, err := loader.LoadFromReader(strings.NewReader(sampleConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Address)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "fr", cfg.Locale)
}

func TestLoader_EnvOverrides_EmptyValueIgnored(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoaderWithLookup(lookupFrom(map[string]string{EnvLocale: ""})).Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultLocale, cfg.Locale)
}

func TestLoader_SubstituteEnvVars(t *testing.T) {
	t.Parallel()

	loader := NewLoaderWithLookup(lookupFrom(map[string]string{
		"PORT":  "8443",
		"EMPTY": "",
	}))

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "set variable", input: "address: :${PORT}", want: "address: :8443"},
		{name: "default used", input: "level: ${LEVEL:-debug}", want: "level: debug"},
		{name: "set beats default", input: "port: ${PORT:-80}", want: "port: 8443"},
		{name: "set but empty", input: "x: ${EMPTY:-fallback}", want: "x: "},
		{name: "missing without default", input: "x: ${MISSING}", want: "x: "},
		{name: "escaped dollar", input: "cost: $$5", want: "cost: $5"},
		{name: "no variables", input: "plain: text", want: "plain: text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, loader.substituteEnvVars(tt.input))
		})
	}
}

func TestLoad_UsesProcessEnvironment(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
}
