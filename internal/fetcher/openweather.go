package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/airtrace-io/pollution-collector/internal/failure"
	"github.com/airtrace-io/pollution-collector/internal/model"
	"github.com/airtrace-io/pollution-collector/internal/observability"
)

// DefaultBaseURL is the OpenWeatherMap API root.
const DefaultBaseURL = "http://api.openweathermap.org"

// Client fetches air-quality readings for one resolved location. Resolve must
// succeed before the first Fetch.
type Client struct {
	log     *slog.Logger
	apiKey  string
	baseURL string
	client  *http.Client

	location string
	lat      float64
	lon      float64
}

func New(log *slog.Logger, apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		log:     log,
		apiKey:  apiKey,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type zipLocation struct {
	Zip     string   `json:"zip"`
	Name    string   `json:"name"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
	Country string   `json:"country"`
}

// Resolve geocodes the configured postal code into coordinates. Called once
// at startup; the result is fixed for the process lifetime.
func (c *Client) Resolve(ctx context.Context, zip, country string) error {
	u := fmt.Sprintf("%s/geo/1.0/zip?zip=%s,%s&appid=%s",
		c.baseURL, url.QueryEscape(zip), url.QueryEscape(country), url.QueryEscape(c.apiKey))

	body, err := c.get(ctx, u)
	if err != nil {
		return fmt.Errorf("resolve location: %w", err)
	}

	var loc zipLocation
	if err := json.Unmarshal(body, &loc); err != nil {
		return failure.New(failure.ClassMalformedResponse, "resolve location: parse response: %v", err)
	}
	if loc.Lat == nil || loc.Lon == nil {
		return failure.New(failure.ClassMalformedResponse, "resolve location: response missing coordinates")
	}

	c.lat = *loc.Lat
	c.lon = *loc.Lon
	c.location = loc.Name
	if c.location == "" {
		c.location = zip
	}

	return nil
}

// Location is the resolved location name used to tag readings.
func (c *Client) Location() string {
	return c.location
}

// pollutionResponse mirrors the air_pollution payload. Components are
// pointers so that an absent field is distinguishable from zero; unknown
// fields the provider may add are ignored.
type pollutionResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			AQI *int `json:"aqi"`
		} `json:"main"`
		Components map[string]json.RawMessage `json:"components"`
	} `json:"list"`
}

// Fetch performs one air-pollution request and returns a typed reading or a
// classified failure. No retries happen here; the poll loop owns that policy.
func (c *Client) Fetch(ctx context.Context) (model.Reading, error) {
	start := time.Now()

	u := fmt.Sprintf("%s/data/2.5/air_pollution?lat=%s&lon=%s&appid=%s",
		c.baseURL,
		strconv.FormatFloat(c.lat, 'f', -1, 64),
		strconv.FormatFloat(c.lon, 'f', -1, 64),
		url.QueryEscape(c.apiKey))

	body, err := c.get(ctx, u)
	if err != nil {
		return model.Reading{}, err
	}
	observability.FetchDuration.Observe(time.Since(start).Seconds())

	var resp pollutionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.Reading{}, failure.New(failure.ClassMalformedResponse, "parse response: %v", err)
	}
	if len(resp.List) == 0 {
		return model.Reading{}, failure.New(failure.ClassMalformedResponse, "response contains no measurements")
	}

	// Multiple entries never happen for a single-coordinate request; if the
	// provider returns more, all but the first are discarded.
	entry := resp.List[0]

	if entry.Main.AQI == nil {
		return model.Reading{}, failure.New(failure.ClassMalformedResponse, "response missing aqi")
	}

	components := make(map[string]float64, len(model.Pollutants))
	for _, name := range model.Pollutants {
		raw, ok := entry.Components[name]
		if !ok {
			return model.Reading{}, failure.New(failure.ClassMalformedResponse, "response missing component %q", name)
		}
		// Pointer target so a JSON null cannot silently decode to zero.
		var value *float64
		if err := json.Unmarshal(raw, &value); err != nil {
			return model.Reading{}, failure.New(failure.ClassMalformedResponse, "component %q is not numeric: %v", name, err)
		}
		if value == nil {
			return model.Reading{}, failure.New(failure.ClassMalformedResponse, "component %q is null", name)
		}
		components[name] = *value
	}

	ts := time.Now().UTC()
	if entry.Dt > 0 {
		ts = time.Unix(entry.Dt, 0).UTC()
	}

	return model.Reading{
		Timestamp:  ts,
		Location:   c.location,
		AQI:        *entry.Main.AQI,
		Components: components,
	}, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, failure.New(failure.ClassNetwork, "create request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, failure.New(failure.ClassNetwork, "execute request: %v", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failure.New(failure.ClassNetwork, "read response body: %v", err)
	}

	return body, nil
}

func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return failure.New(failure.ClassAuthRejected, "provider rejected API key (status %d)", code)
	case code == http.StatusNotFound:
		return failure.New(failure.ClassLocationNotFound, "location not found (status %d)", code)
	case code == http.StatusTooManyRequests:
		return failure.New(failure.ClassRateLimited, "provider rate limit hit (status %d)", code)
	default:
		return failure.New(failure.ClassNetwork, "unexpected status code %d", code)
	}
}
