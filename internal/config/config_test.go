package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SWIM24_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swim24.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9000"
log_format: console
request_timeout: 5s
early_bird_hour: 6
cors_origins: ["http://localhost:5173"]
`), 0o600))

	t.Setenv("SWIM24_EARLY_BIRD_HOUR", "7")
	t.Setenv("SWIM24_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 7, cfg.EarlyBirdHour, "env wins over file")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoad_BadValues(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{name: "hour not a number", env: map[string]string{"SWIM24_LATE_BIRD_HOUR": "midnight"}},
		{name: "hour out of range", env: map[string]string{"SWIM24_EARLY_BIRD_HOUR": "24"}},
		{name: "negative timeout", env: map[string]string{"SWIM24_DEFAULT_DOUBLE_COUNT_TIMEOUT": "-1"}},
		{name: "postgres without url", env: map[string]string{"SWIM24_STORE": "postgres", "DATABASE_URL": ""}},
		{name: "unknown store", env: map[string]string{"SWIM24_STORE": "redis"}},
		{name: "bad duration", env: map[string]string{"SWIM24_REQUEST_TIMEOUT": "soon"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("SWIM24_CONFIG", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_CollectsAll(t *testing.T) {
	cfg := Default()
	cfg.LateBirdHour = -1
	cfg.EarlyBirdHour = 30
	cfg.Store = "bogus"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "late bird")
	assert.Contains(t, err.Error(), "early bird")
	assert.Contains(t, err.Error(), "unknown store")
}
