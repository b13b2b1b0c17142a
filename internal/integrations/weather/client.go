// Package weather queries the external observation feed for one location.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// favorable spray conditions: light wind, no rain.
const (
	maxFavorableWindKmh = 10.0
	msToKmh             = 3.6
)

// Credentials is the JSON credential bundle stored in the parameter store.
type Credentials struct {
	APIKey  string `json:"API_KEY"`
	BaseURL string `json:"BASE_URL"`
}

// Observation is the condition snapshot for one location.
type Observation struct {
	Location     string
	WindSpeedKmh float64
	RainMm       float64
	Favorable    bool
}

// Client fetches current conditions from the feed.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a feed client from resolved credentials.
func NewClient(creds Credentials, opts ...Option) (*Client, error) {
	if strings.TrimSpace(creds.APIKey) == "" || strings.TrimSpace(creds.BaseURL) == "" {
		return nil, errors.New("weather: api key and base url must not be empty")
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		apiKey:     creds.APIKey,
		baseURL:    strings.TrimRight(creds.BaseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// feedResponse is the subset of the feed's shape the core reads. Wind speed
// arrives in m/s; rain in mm over the last hour.
type feedResponse struct {
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
}

// Check returns the current observation for a location, with the favorable
// flag computed.
func (c *Client) Check(ctx context.Context, location string) (Observation, error) {
	q := url.Values{}
	q.Set("q", location)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/weather?"+q.Encode(), nil)
	if err != nil {
		return Observation{}, fmt.Errorf("weather: create request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return Observation{}, fmt.Errorf("weather: fetch %s: %w", location, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return Observation{}, fmt.Errorf("weather: unexpected status %d for %s: %s", res.StatusCode, location, string(buf))
	}

	var payload feedResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return Observation{}, fmt.Errorf("weather: decode response: %w", err)
	}

	windKmh := payload.Wind.Speed * msToKmh
	return Observation{
		Location:     location,
		WindSpeedKmh: windKmh,
		RainMm:       payload.Rain.OneHour,
		Favorable:    windKmh < maxFavorableWindKmh && payload.Rain.OneHour == 0,
	}, nil
}
