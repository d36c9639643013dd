package weather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sethvargo/go-retry"
	"github.com/tidwall/gjson"

	"github.com/pders01/citycast/internal/config"
	"github.com/pders01/citycast/internal/debuglog"
	"github.com/pders01/citycast/internal/validation"
)

const currentPath = "/data/2.5/weather"

// ErrMissingAPIKey is returned when no OpenWeatherMap key is configured.
var ErrMissingAPIKey = errors.New("no weather API key configured (set weather.api_key or OPENWEATHER_API_KEY)")

// APIError is a non-success answer from the weather service.
type APIError struct {
	City       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("weather for %q: HTTP %d", e.City, e.StatusCode)
	}
	return fmt.Sprintf("weather for %q: HTTP %d: %s", e.City, e.StatusCode, e.Message)
}

// NotFound reports whether the service did not recognise the city.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client fetches current weather from OpenWeatherMap. Reports are cached
// per city for the configured TTL.
type Client struct {
	http        *resty.Client
	apiKey      string
	units       string
	retries     uint64
	backoffBase time.Duration
	cache       *expirable.LRU[string, Report]
	now         func() time.Time
}

func NewClient(cfg *config.Config) (*Client, error) {
	baseURL, err := cfg.WeatherEndpoint()
	if err != nil {
		return nil, fmt.Errorf("weather endpoint: %w", err)
	}

	size := cfg.Weather.CacheSize
	if size <= 0 {
		size = 1
	}
	units := cfg.Weather.Units
	if units == "" {
		units = "metric"
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Weather.HTTPTimeout).
		SetHeader("Accept", "application/json")
	if cfg.Source.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.Source.UserAgent)
	}

	return &Client{
		http:        client,
		apiKey:      cfg.Weather.APIKey,
		units:       units,
		retries:     cfg.Weather.Retries,
		backoffBase: 200 * time.Millisecond,
		cache:       expirable.NewLRU[string, Report](size, nil, cfg.Weather.CacheTTL),
		now:         time.Now,
	}, nil
}

// Current returns the weather for a city. countryCode is optional and
// disambiguates cities that share a name.
func (c *Client) Current(ctx context.Context, name, countryCode string) (Report, error) {
	city, err := validation.CityName(name)
	if err != nil {
		return Report{}, err
	}
	if c.apiKey == "" {
		return Report{}, ErrMissingAPIKey
	}

	query := city
	if cc := strings.TrimSpace(countryCode); cc != "" {
		query = city + "," + strings.ToUpper(cc)
	}
	key := strings.ToLower(query) + "|" + c.units

	log := debuglog.WithFields(map[string]any{"city": query})
	if report, ok := c.cache.Get(key); ok {
		log.Debugf("weather cache hit")
		return report, nil
	}

	backoff := retry.WithMaxRetries(c.retries, retry.NewExponential(c.backoffBase))

	var body []byte
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var fetchErr error
		body, fetchErr = c.fetch(ctx, query)
		if fetchErr == nil {
			return nil
		}
		var apiErr *APIError
		if errors.As(fetchErr, &apiErr) && !apiErr.retryable() {
			return fetchErr
		}
		if ctx.Err() != nil {
			return fetchErr
		}
		log.Debugf("retrying weather request: %v", fetchErr)
		return retry.RetryableError(fetchErr)
	})
	if err != nil {
		log.Warnf("weather request failed: %v", err)
		return Report{}, err
	}

	report, err := decodeReport(body, c.units)
	if err != nil {
		return Report{}, fmt.Errorf("weather for %q: %w", query, err)
	}
	report.FetchedAt = c.now()

	c.cache.Add(key, report)
	log.Infof("weather fetched: %s", report.Description)
	return report, nil
}

func (c *Client) fetch(ctx context.Context, query string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":     query,
			"appid": c.apiKey,
			"units": c.units,
		}).
		Get(currentPath)
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{
			City:       query,
			StatusCode: resp.StatusCode(),
			Message:    gjson.GetBytes(resp.Body(), "message").String(),
		}
	}
	return resp.Body(), nil
}

// Purge drops every cached report.
func (c *Client) Purge() {
	c.cache.Purge()
}

func decodeReport(body []byte, units string) (Report, error) {
	if !gjson.ValidBytes(body) {
		return Report{}, errors.New("invalid JSON in weather response")
	}
	doc := gjson.ParseBytes(body)

	temp := doc.Get("main.temp")
	if temp.Type != gjson.Number {
		return Report{}, errors.New("weather response has no temperature")
	}

	r := Report{
		City:          doc.Get("name").String(),
		Country:       doc.Get("sys.country").String(),
		Units:         units,
		Temperature:   temp.Float(),
		Description:   doc.Get("weather.0.description").String(),
		Icon:          doc.Get("weather.0.icon").String(),
		Humidity:      int(doc.Get("main.humidity").Int()),
		WindSpeed:     doc.Get("wind.speed").Float(),
		Pressure:      int(doc.Get("main.pressure").Int()),
		Precipitation: precipitation(doc),
		UTCOffset:     int(doc.Get("timezone").Int()),
	}
	if ts := doc.Get("sys.sunrise").Int(); ts > 0 {
		r.Sunrise = time.Unix(ts, 0).UTC()
	}
	if ts := doc.Get("sys.sunset").Int(); ts > 0 {
		r.Sunset = time.Unix(ts, 0).UTC()
	}
	return r, nil
}

func precipitation(doc gjson.Result) float64 {
	if rain := doc.Get("rain"); rain.Exists() {
		return rain.Get("1h").Float()
	}
	if snow := doc.Get("snow"); snow.Exists() {
		return snow.Get("1h").Float()
	}
	return 0
}
