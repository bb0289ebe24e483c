// internal/reporter/backend/client.go
package backend

import (
	"bytes"
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

// Event log tags.
const (
	EventStolen   = "stolen"
	EventReturned = "returned"
)

// Client speaks the web backend's JSON API.
// Stateless: every call is one request with its own deadline.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

type Config struct {
	BaseURL string
	Timeout time.Duration

	// HTTPClient overrides the default transport; tests use it.
	HTTPClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend: base url required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("backend: base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		http:    hc,
	}, nil
}

// StatusError is a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend: %s %s: status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("backend: %s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// ---- endpoints ----

type statusBody struct {
	IsStolen bool `json:"is_stolen"`
}

// UpdateStatus sets the stolen flag for one laptop.
func (c *Client) UpdateStatus(ctx context.Context, serial string, stolen bool) error {
	return c.post(ctx, "/api/laptop_status/"+url.PathEscape(serial), statusBody{IsStolen: stolen})
}

type eventBody struct {
	SerialNumber string `json:"serial_number"`
	EventType    string `json:"event_type"`
}

// LogEvent appends a stolen/returned entry to the event log.
func (c *Client) LogEvent(ctx context.Context, serial, eventType string) error {
	return c.post(ctx, "/api/log_event", eventBody{SerialNumber: serial, EventType: eventType})
}

// SensorData is one telemetry reading for one laptop.
type SensorData struct {
	SerialNumber        string    `json:"serial_number"`
	IBeaconRSSI         int16     `json:"ibeacon_rssi"`
	UltrasonicDistances []float64 `json:"ultrasonic_distances"`
}

func (c *Client) SendSensorData(ctx context.Context, d SensorData) error {
	return c.post(ctx, "/api/sensor_data", d)
}

// ---- transport ----

// maxErrBody bounds how much of an error response is kept.
const maxErrBody = 256

func (c *Client) post(ctx context.Context, path string, body any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("backend: encode %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("backend: build %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return &StatusError{
			Method: http.MethodPost,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(msg)),
		}
	}
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
