package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pders01/citycast/internal/validation"
)

type Config struct {
	Source  SourceConfig  `mapstructure:"source"`
	Weather WeatherConfig `mapstructure:"weather"`
	UI      UIConfig      `mapstructure:"ui"`
	Log     LogConfig     `mapstructure:"log"`
	Keys    KeyConfig     `mapstructure:"keys"`
}

type SourceConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Dataset      string        `mapstructure:"dataset"`
	PageSize     int           `mapstructure:"page_size"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	UserAgent    string        `mapstructure:"user_agent"`
	AllowLocal   bool          `mapstructure:"allow_local"`
}

type WeatherConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Units       string        `mapstructure:"units"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	CacheSize   int           `mapstructure:"cache_size"`
	Retries     uint64        `mapstructure:"retries"`
	AllowLocal  bool          `mapstructure:"allow_local"`
}

type UIConfig struct {
	Colors UIColors   `mapstructure:"colors"`
	List   ListConfig `mapstructure:"list"`
	Opener string     `mapstructure:"opener"`
}

type UIColors struct {
	Primary   string `mapstructure:"primary"`
	Secondary string `mapstructure:"secondary"`
	Accent    string `mapstructure:"accent"`
	Text      string `mapstructure:"text"`
	Muted     string `mapstructure:"muted"`
	Error     string `mapstructure:"error"`
	Success   string `mapstructure:"success"`
}

type ListConfig struct {
	ScrollThreshold int           `mapstructure:"scroll_threshold"`
	SearchDebounce  time.Duration `mapstructure:"search_debounce"`
	Sort            string        `mapstructure:"sort"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier"`
	Bindings KeyBindings `mapstructure:"bindings"`
}

type KeyBindings struct {
	Quit    string `mapstructure:"quit"`
	Search  string `mapstructure:"search"`
	Retry   string `mapstructure:"retry"`
	OpenMap string `mapstructure:"open_map"`
	Back    string `mapstructure:"back"`
	Help    string `mapstructure:"help"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	logPath := filepath.Join(homeDir, ".citycast", "citycast.log")

	return &Config{
		Source: SourceConfig{
			BaseURL:      "https://public.opendatasoft.com",
			Dataset:      "geonames-all-cities-with-a-population-1000",
			PageSize:     15,
			HTTPTimeout:  15 * time.Second,
			FetchTimeout: 20 * time.Second,
			UserAgent:    "citycast/1.0 (https://github.com/pders01/citycast)",
		},
		Weather: WeatherConfig{
			BaseURL:     "https://api.openweathermap.org",
			Units:       "metric",
			HTTPTimeout: 10 * time.Second,
			CacheTTL:    10 * time.Minute,
			CacheSize:   64,
			Retries:     2,
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:   "#F39C12",
				Secondary: "#8E44AD",
				Accent:    "#4ECDC4",
				Text:      "#EAEAEA",
				Muted:     "#94A3B8",
				Error:     "#F87171",
				Success:   "#4ADE80",
			},
			List: ListConfig{
				ScrollThreshold: 3,
				SearchDebounce:  300 * time.Millisecond,
			},
			Opener: getDefaultOpener(),
		},
		Log: LogConfig{
			Level: "off",
			File:  logPath,
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:    "q",
				Search:  "/",
				Retry:   "r",
				OpenMap: "o",
				Back:    "esc",
				Help:    "?",
			},
		},
	}
}

func getDefaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "linux":
		return "xdg-open"
	case "windows":
		return "start"
	default:
		return "open"
	}
}

// Path returns the default config file location.
func Path() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "citycast", "config.toml")
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, defaultConfig())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(filepath.Dir(Path()))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CITYCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("weather.api_key", "CITYCAST_WEATHER_API_KEY", "OPENWEATHER_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	config.Log.File = expandPath(config.Log.File)

	return &config, nil
}

// setDefaults registers every leaf so partial config files and env vars
// override single values instead of whole sections.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("source.base_url", cfg.Source.BaseURL)
	v.SetDefault("source.dataset", cfg.Source.Dataset)
	v.SetDefault("source.page_size", cfg.Source.PageSize)
	v.SetDefault("source.http_timeout", cfg.Source.HTTPTimeout)
	v.SetDefault("source.fetch_timeout", cfg.Source.FetchTimeout)
	v.SetDefault("source.user_agent", cfg.Source.UserAgent)
	v.SetDefault("source.allow_local", cfg.Source.AllowLocal)

	v.SetDefault("weather.base_url", cfg.Weather.BaseURL)
	v.SetDefault("weather.api_key", cfg.Weather.APIKey)
	v.SetDefault("weather.units", cfg.Weather.Units)
	v.SetDefault("weather.http_timeout", cfg.Weather.HTTPTimeout)
	v.SetDefault("weather.cache_ttl", cfg.Weather.CacheTTL)
	v.SetDefault("weather.cache_size", cfg.Weather.CacheSize)
	v.SetDefault("weather.retries", cfg.Weather.Retries)
	v.SetDefault("weather.allow_local", cfg.Weather.AllowLocal)

	v.SetDefault("ui.colors.primary", cfg.UI.Colors.Primary)
	v.SetDefault("ui.colors.secondary", cfg.UI.Colors.Secondary)
	v.SetDefault("ui.colors.accent", cfg.UI.Colors.Accent)
	v.SetDefault("ui.colors.text", cfg.UI.Colors.Text)
	v.SetDefault("ui.colors.muted", cfg.UI.Colors.Muted)
	v.SetDefault("ui.colors.error", cfg.UI.Colors.Error)
	v.SetDefault("ui.colors.success", cfg.UI.Colors.Success)
	v.SetDefault("ui.list.scroll_threshold", cfg.UI.List.ScrollThreshold)
	v.SetDefault("ui.list.search_debounce", cfg.UI.List.SearchDebounce)
	v.SetDefault("ui.list.sort", cfg.UI.List.Sort)
	v.SetDefault("ui.opener", cfg.UI.Opener)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)

	v.SetDefault("keys.modifier", cfg.Keys.Modifier)
	v.SetDefault("keys.bindings.quit", cfg.Keys.Bindings.Quit)
	v.SetDefault("keys.bindings.search", cfg.Keys.Bindings.Search)
	v.SetDefault("keys.bindings.retry", cfg.Keys.Bindings.Retry)
	v.SetDefault("keys.bindings.open_map", cfg.Keys.Bindings.OpenMap)
	v.SetDefault("keys.bindings.back", cfg.Keys.Bindings.Back)
	v.SetDefault("keys.bindings.help", cfg.Keys.Bindings.Help)
}

// Validate checks the values the rest of the program relies on.
func (c *Config) Validate() error {
	if c.Source.PageSize <= 0 {
		return fmt.Errorf("source.page_size must be positive, got %d", c.Source.PageSize)
	}
	if c.Source.FetchTimeout <= 0 {
		return fmt.Errorf("source.fetch_timeout must be positive, got %s", c.Source.FetchTimeout)
	}
	if c.UI.List.ScrollThreshold < 0 {
		return fmt.Errorf("ui.list.scroll_threshold must not be negative")
	}
	if _, err := c.SourceEndpoint(); err != nil {
		return fmt.Errorf("source.base_url: %w", err)
	}
	if _, err := c.WeatherEndpoint(); err != nil {
		return fmt.Errorf("weather.base_url: %w", err)
	}
	return nil
}

// SourceEndpoint returns the validated, normalized city listing base URL.
func (c *Config) SourceEndpoint() (string, error) {
	return endpointValidator(c.Source.AllowLocal).ValidateAndNormalize(c.Source.BaseURL)
}

// WeatherEndpoint returns the validated, normalized weather API base URL.
func (c *Config) WeatherEndpoint() (string, error) {
	return endpointValidator(c.Weather.AllowLocal).ValidateAndNormalize(c.Weather.BaseURL)
}

func endpointValidator(allowLocal bool) *validation.EndpointValidator {
	if allowLocal {
		return validation.NewPermissiveEndpointValidator()
	}
	return validation.NewEndpointValidator()
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func Save(config *Config, path string) error {
	v := viper.New()

	// Convert durations to strings for TOML readability
	sourceCfg := map[string]interface{}{
		"base_url":      config.Source.BaseURL,
		"dataset":       config.Source.Dataset,
		"page_size":     config.Source.PageSize,
		"http_timeout":  config.Source.HTTPTimeout.String(),
		"fetch_timeout": config.Source.FetchTimeout.String(),
		"user_agent":    config.Source.UserAgent,
		"allow_local":   config.Source.AllowLocal,
	}

	weatherCfg := map[string]interface{}{
		"base_url":     config.Weather.BaseURL,
		"api_key":      config.Weather.APIKey,
		"units":        config.Weather.Units,
		"http_timeout": config.Weather.HTTPTimeout.String(),
		"cache_ttl":    config.Weather.CacheTTL.String(),
		"cache_size":   config.Weather.CacheSize,
		"retries":      config.Weather.Retries,
		"allow_local":  config.Weather.AllowLocal,
	}

	uiCfg := map[string]interface{}{
		"opener": config.UI.Opener,
		"colors": map[string]interface{}{
			"primary":   config.UI.Colors.Primary,
			"secondary": config.UI.Colors.Secondary,
			"accent":    config.UI.Colors.Accent,
			"text":      config.UI.Colors.Text,
			"muted":     config.UI.Colors.Muted,
			"error":     config.UI.Colors.Error,
			"success":   config.UI.Colors.Success,
		},
		"list": map[string]interface{}{
			"scroll_threshold": config.UI.List.ScrollThreshold,
			"search_debounce":  config.UI.List.SearchDebounce.String(),
			"sort":             config.UI.List.Sort,
		},
	}

	v.Set("source", sourceCfg)
	v.Set("weather", weatherCfg)
	v.Set("ui", uiCfg)
	v.Set("log", map[string]interface{}{
		"level": config.Log.Level,
		"file":  config.Log.File,
	})
	v.Set("keys", map[string]interface{}{
		"modifier": config.Keys.Modifier,
		"bindings": map[string]interface{}{
			"quit":     config.Keys.Bindings.Quit,
			"search":   config.Keys.Bindings.Search,
			"retry":    config.Keys.Bindings.Retry,
			"open_map": config.Keys.Bindings.OpenMap,
			"back":     config.Keys.Bindings.Back,
			"help":     config.Keys.Bindings.Help,
		},
	})

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
