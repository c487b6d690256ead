package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"weather_favorites/internal/config"
	"weather_favorites/internal/metrics"
)

const (
	forecastCurrentFields = "temperature_2m,relative_humidity_2m,weather_code,wind_speed_10m"
	forecastDailyFields   = "weather_code,temperature_2m_max,temperature_2m_min"
	geocodingCount        = "5"
	geocodingLanguage     = "en"

	maxUpstreamBody = 4 << 20 // 4 MB

	msgForecastFailed  = "Failed to fetch weather data"
	msgGeocodingFailed = "Failed to fetch geocoding data"
)

// WeatherClient proxies Open-Meteo. No retries and no caching.
type WeatherClient struct {
	client       *http.Client
	forecastURL  string
	geocodingURL string
}

func NewWeatherClient(cfg config.WeatherConfig) *WeatherClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WeatherClient{
		client:       &http.Client{Timeout: timeout},
		forecastURL:  cfg.ForecastURL,
		geocodingURL: cfg.GeocodingURL,
	}
}

func (w *WeatherClient) Forecast(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, validationError(errors.New("lat/lon out of range"))
	}
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("current", forecastCurrentFields)
	q.Set("daily", forecastDailyFields)
	q.Set("timezone", "auto")

	return w.fetch(ctx, w.forecastURL, q, metrics.ProviderForecast, msgForecastFailed)
}

func (w *WeatherClient) Search(ctx context.Context, query string) (json.RawMessage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validationError(errors.New("q is required"))
	}
	q := url.Values{}
	q.Set("name", query)
	q.Set("count", geocodingCount)
	q.Set("language", geocodingLanguage)
	q.Set("format", "json")

	return w.fetch(ctx, w.geocodingURL, q, metrics.ProviderGeocoding, msgGeocodingFailed)
}

// fetch GETs base?query and returns the body when it is a 2xx JSON document.
func (w *WeatherClient) fetch(ctx context.Context, base string, query url.Values, provider, failMsg string) (json.RawMessage, error) {
	start := time.Now()
	body, err := w.get(ctx, base+"?"+query.Encode())
	if err != nil {
		metrics.ObserveUpstream(provider, metrics.OutcomeError, start)
		return nil, upstreamError(failMsg, err)
	}
	metrics.ObserveUpstream(provider, metrics.OutcomeOK, start)
	return body, nil
}

func (w *WeatherClient) get(ctx context.Context, target string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("upstream status %d", resp.StatusCode)
	}
	if !json.Valid(body) {
		return nil, errors.New("upstream returned invalid JSON")
	}
	return json.RawMessage(body), nil
}
