package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/deusflow/aznews/internal/metrics"
)

func get(t *testing.T, m *metrics.Metrics, path string) (int, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	newMonitorRouter(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return rec.Code, body
}

func TestHealthEndpoint(t *testing.T) {
	m := metrics.New()
	m.RunFinished("success", true, 3, time.Second)

	code, body := get(t, m, "/health")
	if code != http.StatusOK || body["status"] != "ok" || body["last_status"] != "success" {
		t.Errorf("unexpected health: %d %v", code, body)
	}

	m.SetError("Database transaction failed")
	code, body = get(t, m, "/health")
	if code != http.StatusServiceUnavailable || body["last_error"] != "Database transaction failed" {
		t.Errorf("unhealthy process reported as %d %v", code, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.AddSaved(12)

	code, body := get(t, m, "/metrics")
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if body["articles_saved"].(float64) != 12 {
		t.Errorf("articles_saved = %v", body["articles_saved"])
	}
}
