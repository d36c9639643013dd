package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/citycast/internal/config"
)

const helsinkiJSON = `{
  "weather": [{"id": 500, "main": "Rain", "description": "light rain", "icon": "10d"}],
  "main": {"temp": 7.34, "pressure": 1012, "humidity": 87},
  "wind": {"speed": 4.6},
  "rain": {"1h": 0.42},
  "sys": {"country": "FI", "sunrise": 1700000000, "sunset": 1700030000},
  "timezone": 7200,
  "name": "Helsinki",
  "cod": 200
}`

func newTestClient(t *testing.T, retries uint64, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.TestConfig()
	cfg.Weather.BaseURL = server.URL
	cfg.Weather.Retries = retries

	c, err := NewClient(cfg)
	require.NoError(t, err)
	c.backoffBase = time.Millisecond
	return c
}

func TestClient_Current(t *testing.T) {
	c := newTestClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, currentPath, r.URL.Path)
		assert.Equal(t, "Helsinki,FI", r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		_, _ = w.Write([]byte(helsinkiJSON))
	})

	report, err := c.Current(context.Background(), "Helsinki", "fi")
	require.NoError(t, err)

	assert.Equal(t, "Helsinki", report.City)
	assert.Equal(t, "FI", report.Country)
	assert.InDelta(t, 7.34, report.Temperature, 1e-9)
	assert.Equal(t, "light rain", report.Description)
	assert.Equal(t, "10d", report.Icon)
	assert.Equal(t, 87, report.Humidity)
	assert.InDelta(t, 4.6, report.WindSpeed, 1e-9)
	assert.Equal(t, 1012, report.Pressure)
	assert.InDelta(t, 0.42, report.Precipitation, 1e-9)
	assert.Equal(t, int64(1700000000), report.Sunrise.Unix())
	assert.Equal(t, int64(1700030000), report.Sunset.Unix())
	assert.Equal(t, 7200, report.UTCOffset)
	assert.Equal(t, ConditionRainy, report.Condition())
	assert.False(t, report.FetchedAt.IsZero())
}

func TestClient_CachesReports(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(helsinkiJSON))
	})

	for i := 0; i < 3; i++ {
		_, err := c.Current(context.Background(), "helsinki", "")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())

	c.Purge()
	_, err := c.Current(context.Background(), "Helsinki", "")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, 2, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(helsinkiJSON))
	})

	report, err := c.Current(context.Background(), "Helsinki", "")
	require.NoError(t, err)
	assert.Equal(t, "Helsinki", report.City)
	assert.Equal(t, int32(3), hits.Load())
}

func TestClient_DoesNotRetryNotFound(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, 3, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"cod": "404", "message": "city not found"}`))
	})

	_, err := c.Current(context.Background(), "Atlantis", "")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.NotFound())
	assert.Equal(t, "city not found", apiErr.Message)
	assert.Contains(t, err.Error(), "Atlantis")
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, 1, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Current(context.Background(), "Helsinki", "")
	require.Error(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_InputErrors(t *testing.T) {
	c := newTestClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := c.Current(context.Background(), "  ", "")
	assert.Error(t, err)

	_, err = c.Current(context.Background(), "a/b", "")
	assert.Error(t, err)

	c.apiKey = ""
	_, err = c.Current(context.Background(), "Helsinki", "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestDecodeReport(t *testing.T) {
	t.Run("snow without rain", func(t *testing.T) {
		r, err := decodeReport([]byte(`{"main": {"temp": -3}, "snow": {"1h": 1.5}, "weather": [{"description": "snow"}]}`), "metric")
		require.NoError(t, err)
		assert.InDelta(t, 1.5, r.Precipitation, 1e-9)
		assert.True(t, r.Sunrise.IsZero())
	})

	t.Run("rain object without hourly value", func(t *testing.T) {
		r, err := decodeReport([]byte(`{"main": {"temp": 10}, "rain": {"3h": 2}, "snow": {"1h": 1}}`), "metric")
		require.NoError(t, err)
		assert.Zero(t, r.Precipitation)
	})

	t.Run("dry", func(t *testing.T) {
		r, err := decodeReport([]byte(`{"main": {"temp": 21.5}}`), "metric")
		require.NoError(t, err)
		assert.Zero(t, r.Precipitation)
	})

	t.Run("missing temperature", func(t *testing.T) {
		_, err := decodeReport([]byte(`{"main": {}}`), "metric")
		assert.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := decodeReport([]byte(`{`), "metric")
		assert.Error(t, err)
	})
}

func TestClassifyCondition(t *testing.T) {
	tests := []struct {
		description string
		want        Condition
	}{
		{"clear sky", ConditionSunny},
		{"few clouds", ConditionCloudy},
		{"overcast clouds", ConditionCloudy},
		{"moderate rain", ConditionRainy},
		{"light snow", ConditionRainy},
		{"Mist", ConditionDefault},
		{"", ConditionDefault},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyCondition(tt.description), tt.description)
	}
}
