package config

import "time"

// TestConfig returns a config suitable for testing. Endpoints may point at
// httptest servers on the loopback interface.
func TestConfig() *Config {
	d := defaultConfig()
	return &Config{
		Source: SourceConfig{
			BaseURL:      "http://127.0.0.1",
			Dataset:      "test-cities",
			PageSize:     15,
			HTTPTimeout:  2 * time.Second,
			FetchTimeout: 2 * time.Second,
			UserAgent:    "citycast-test/1.0",
			AllowLocal:   true,
		},
		Weather: WeatherConfig{
			BaseURL:     "http://127.0.0.1",
			APIKey:      "test-key",
			Units:       "metric",
			HTTPTimeout: 2 * time.Second,
			CacheTTL:    time.Minute,
			CacheSize:   8,
			Retries:     0,
			AllowLocal:  true,
		},
		UI:   d.UI,
		Log:  LogConfig{Level: "off"},
		Keys: d.Keys,
	}
}
