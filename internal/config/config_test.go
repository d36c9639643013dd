package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaultOpener(t *testing.T) {
	expected := map[string]string{
		"darwin":  "open",
		"linux":   "xdg-open",
		"windows": "start",
	}

	opener := getDefaultOpener()

	if expectedOpener, ok := expected[runtime.GOOS]; ok {
		assert.Equal(t, expectedOpener, opener)
	} else {
		assert.Equal(t, "open", opener)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	assert.Equal(t, 15, cfg.Source.PageSize)
	assert.Equal(t, "geonames-all-cities-with-a-population-1000", cfg.Source.Dataset)
	assert.Equal(t, 20*time.Second, cfg.Source.FetchTimeout)
	assert.NotEmpty(t, cfg.Source.UserAgent)

	assert.Equal(t, "metric", cfg.Weather.Units)
	assert.Equal(t, 10*time.Minute, cfg.Weather.CacheTTL)

	assert.Equal(t, 3, cfg.UI.List.ScrollThreshold)
	assert.Equal(t, 300*time.Millisecond, cfg.UI.List.SearchDebounce)
	assert.Empty(t, cfg.UI.List.Sort)

	assert.Equal(t, "off", cfg.Log.Level)
	assert.Equal(t, "ctrl", cfg.Keys.Modifier)
	assert.Equal(t, "q", cfg.Keys.Bindings.Quit)

	require.NoError(t, cfg.Validate())
}

func TestLoad_DefaultConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 15, cfg.Source.PageSize)
	assert.Equal(t, 300*time.Millisecond, cfg.UI.List.SearchDebounce)
}

func TestLoad_FromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "test-config.toml")
	configContent := `
[source]
page_size = 25
fetch_timeout = "5s"
user_agent = "test-agent"

[weather]
api_key = "abc"
cache_ttl = "1m"

[ui.colors]
primary = "#FF0000"

[ui.list]
scroll_threshold = 7
sort = "timezone"
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Source.PageSize)
	assert.Equal(t, 5*time.Second, cfg.Source.FetchTimeout)
	assert.Equal(t, "test-agent", cfg.Source.UserAgent)
	assert.Equal(t, "abc", cfg.Weather.APIKey)
	assert.Equal(t, time.Minute, cfg.Weather.CacheTTL)
	assert.Equal(t, "#FF0000", cfg.UI.Colors.Primary)
	assert.Equal(t, 7, cfg.UI.List.ScrollThreshold)
	assert.Equal(t, "timezone", cfg.UI.List.Sort)

	// Values absent from the file keep their defaults.
	assert.Equal(t, "https://public.opendatasoft.com", cfg.Source.BaseURL)
	assert.Equal(t, "#8E44AD", cfg.UI.Colors.Secondary)
	assert.Equal(t, 300*time.Millisecond, cfg.UI.List.SearchDebounce)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CITYCAST_SOURCE_PAGE_SIZE", "40")
	t.Setenv("OPENWEATHER_API_KEY", "from-env")

	configPath := filepath.Join(t.TempDir(), "empty.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(""), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 40, cfg.Source.PageSize)
	assert.Equal(t, "from-env", cfg.Weather.APIKey)
}

func TestLoad_InvalidFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("[source\npage_size = "), 0o644))

	_, err := Load(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "zero page size", mutate: func(c *Config) { c.Source.PageSize = 0 }, wantErr: "page_size"},
		{name: "zero fetch timeout", mutate: func(c *Config) { c.Source.FetchTimeout = 0 }, wantErr: "fetch_timeout"},
		{name: "negative threshold", mutate: func(c *Config) { c.UI.List.ScrollThreshold = -1 }, wantErr: "scroll_threshold"},
		{name: "bad source scheme", mutate: func(c *Config) { c.Source.BaseURL = "ftp://cities.test" }, wantErr: "source.base_url"},
		{
			name:    "loopback weather endpoint without allow_local",
			mutate:  func(c *Config) { c.Weather.BaseURL = "http://127.0.0.1:8080" },
			wantErr: "weather.base_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSave(t *testing.T) {
	cfg := defaultConfig()
	cfg.Source.PageSize = 30
	cfg.Source.UserAgent = "test-save-agent"
	cfg.Weather.APIKey = "secret"
	cfg.UI.List.SearchDebounce = 150 * time.Millisecond
	cfg.Keys.Modifier = "alt"

	savePath := filepath.Join(t.TempDir(), "nested", "saved-config.toml")
	require.NoError(t, Save(cfg, savePath))

	loaded, err := Load(savePath)
	require.NoError(t, err)

	assert.Equal(t, 30, loaded.Source.PageSize)
	assert.Equal(t, "test-save-agent", loaded.Source.UserAgent)
	assert.Equal(t, "secret", loaded.Weather.APIKey)
	assert.Equal(t, 150*time.Millisecond, loaded.UI.List.SearchDebounce)
	assert.Equal(t, "alt", loaded.Keys.Modifier)
}

func TestGenerateDefaultConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "generated.toml")
	require.NoError(t, GenerateDefaultConfig(configPath))

	raw, err := os.ReadFile(configPath)
	require.NoError(t, err)

	// The file is meant to be edited by hand: durations are strings and keys
	// are snake_case.
	var doc map[string]any
	require.NoError(t, toml.Unmarshal(raw, &doc))

	source, ok := doc["source"].(map[string]any)
	require.True(t, ok, "source table present")
	assert.Equal(t, "20s", source["fetch_timeout"])

	ui, ok := doc["ui"].(map[string]any)
	require.True(t, ok, "ui table present")
	list, ok := ui["list"].(map[string]any)
	require.True(t, ok, "ui.list table present")
	assert.Equal(t, "300ms", list["search_debounce"])

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "ctrl", cfg.Keys.Modifier)
	assert.Equal(t, 15, cfg.Source.PageSize)
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "citycast-test/1.0", cfg.Source.UserAgent)
	assert.True(t, cfg.Source.AllowLocal)
	require.NoError(t, cfg.Validate())
}
