// internal/reporter/backend/client_test.go
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type captured struct {
	path string
	body map[string]any
}

func newServer(t *testing.T, code int, got *[]captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method=%s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type=%q", ct)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		*got = append(*got, captured{path: r.URL.Path, body: body})
		w.WriteHeader(code)
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, base string, timeout time.Duration) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: base + "/", Timeout: timeout})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestUpdateStatus(t *testing.T) {
	var got []captured
	srv := newServer(t, http.StatusOK, &got)
	c := newClient(t, srv.URL, time.Second)

	if err := c.UpdateStatus(context.Background(), "00032072025", true); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("want 1 request, got %d", len(got))
	}
	if got[0].path != "/api/laptop_status/00032072025" {
		t.Fatalf("path=%q", got[0].path)
	}
	if v, ok := got[0].body["is_stolen"].(bool); !ok || !v {
		t.Fatalf("body=%v", got[0].body)
	}
}

func TestLogEvent_Created(t *testing.T) {
	var got []captured
	srv := newServer(t, http.StatusCreated, &got)
	c := newClient(t, srv.URL, time.Second)

	if err := c.LogEvent(context.Background(), "00032072025", EventReturned); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	b := got[0].body
	if got[0].path != "/api/log_event" || b["serial_number"] != "00032072025" || b["event_type"] != "returned" {
		t.Fatalf("request=%+v", got[0])
	}
}

func TestSendSensorData(t *testing.T) {
	var got []captured
	srv := newServer(t, http.StatusOK, &got)
	c := newClient(t, srv.URL, time.Second)

	err := c.SendSensorData(context.Background(), SensorData{
		SerialNumber:        "00001082025",
		IBeaconRSSI:         -61,
		UltrasonicDistances: []float64{3, 10, 8, 20},
	})
	if err != nil {
		t.Fatalf("SendSensorData: %v", err)
	}
	b := got[0].body
	if got[0].path != "/api/sensor_data" || b["ibeacon_rssi"] != float64(-61) {
		t.Fatalf("request=%+v", got[0])
	}
	if d, ok := b["ultrasonic_distances"].([]any); !ok || len(d) != 4 {
		t.Fatalf("distances=%v", b["ultrasonic_distances"])
	}
}

func TestNon2xxIsStatusError(t *testing.T) {
	var got []captured
	srv := newServer(t, http.StatusNotFound, &got)
	c := newClient(t, srv.URL, time.Second)

	err := c.UpdateStatus(context.Background(), "X", false)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("want *StatusError, got %v", err)
	}
	if se.Code != http.StatusNotFound {
		t.Fatalf("code=%d", se.Code)
	}
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newClient(t, srv.URL, 50*time.Millisecond)

	start := time.Now()
	err := c.UpdateStatus(context.Background(), "X", true)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("timeout not enforced")
	}
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatalf("expected error")
	}
}
