package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"life-os/internal/metrics"
	"life-os/internal/model"
	"life-os/internal/service"
)

type stubCapturer struct {
	texts  []string
	result service.CaptureResult
	err    error
}

func (s *stubCapturer) Capture(_ context.Context, text string) (service.CaptureResult, error) {
	s.texts = append(s.texts, text)
	return s.result, s.err
}

func newTestServer(key string, capture Capturer) *Server {
	reg := prometheus.NewRegistry()
	return New(Config{APIKey: key}, capture, metrics.MustNew(reg), reg, nil)
}

func do(t *testing.T, s *Server, method, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, "/capture", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

var bearer = map[string]string{"Authorization": "Bearer secret"}

func TestCaptureSuccess(t *testing.T) {
	due := time.Date(2025, 1, 21, 0, 0, 0, 0, time.UTC)
	clock := model.ClockTime(14, 0)
	stub := &stubCapturer{result: service.CaptureResult{
		ID:              "cap-1",
		Processed:       true,
		Destination:     service.DestEvents,
		CalendarCreated: true,
		Summary:         "📅 Dentist",
		Item: model.StructuredItem{
			ItemType:    model.ItemEvent,
			Description: "Dentist",
			Category:    model.CategoryHealth,
			Urgency:     model.UrgencyMedium,
			DueDate:     &due,
			DueTime:     &clock,
			Location:    "Main St",
			People:      []string{"Sarah"},
		},
	}}
	s := newTestServer("secret", stub)

	rec, body := do(t, s, http.MethodPost, `{"text":"  dentist tue 2pm "}`, bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, []string{"dentist tue 2pm"}, stub.texts)

	assert.Equal(t, true, body["success"])
	assert.Equal(t, "cap-1", body["id"])
	processed := body["processed"].(map[string]any)
	assert.Equal(t, "Event", processed["type"])
	assert.Equal(t, "2025-01-21", processed["due_date"])
	assert.Equal(t, "14:00", processed["due_time"])
	assert.Equal(t, "Main St", processed["location"])
	assert.Equal(t, "Events", processed["routed_to"])
	assert.Equal(t, true, processed["calendar_created"])
	assert.Equal(t, []any{"Sarah"}, processed["people"])
	assert.Equal(t, "📅 Dentist", processed["summary"])
}

func TestCaptureDegraded(t *testing.T) {
	stub := &stubCapturer{result: service.CaptureResult{
		ID:      "cap-2",
		Item:    model.StructuredItem{Description: "hmm"},
		Summary: service.DegradedSummary,
	}}
	s := newTestServer("secret", stub)

	rec, body := do(t, s, http.MethodPost, `{"text":"hmm"}`, map[string]string{"X-API-Key": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	processed := body["processed"].(map[string]any)
	assert.Contains(t, processed, "type")
	assert.Nil(t, processed["type"])
	assert.Equal(t, false, processed["calendar_created"])
	assert.Equal(t, service.DegradedSummary, processed["summary"])
}

func TestCaptureStatusCodes(t *testing.T) {
	cases := []struct {
		name    string
		key     string
		method  string
		body    string
		headers map[string]string
		capture Capturer
		want    int
	}{
		{"preflight needs no key", "secret", http.MethodOptions, "", nil, &stubCapturer{}, http.StatusOK},
		{"get not allowed", "secret", http.MethodGet, "", bearer, &stubCapturer{}, http.StatusMethodNotAllowed},
		{"missing key", "secret", http.MethodPost, `{"text":"x"}`, nil, &stubCapturer{}, http.StatusUnauthorized},
		{"wrong key", "secret", http.MethodPost, `{"text":"x"}`, map[string]string{"X-API-Key": "nope"}, &stubCapturer{}, http.StatusUnauthorized},
		{"unconfigured key", "", http.MethodPost, `{"text":"x"}`, map[string]string{"X-API-Key": ""}, &stubCapturer{}, http.StatusUnauthorized},
		{"not json", "secret", http.MethodPost, `text=x`, bearer, &stubCapturer{}, http.StatusBadRequest},
		{"empty text", "secret", http.MethodPost, `{"text":"   "}`, bearer, &stubCapturer{}, http.StatusBadRequest},
		{"no service", "secret", http.MethodPost, `{"text":"x"}`, bearer, nil, http.StatusInternalServerError},
		{"inbox failure", "secret", http.MethodPost, `{"text":"x"}`, bearer, &stubCapturer{err: errors.New("sheet down")}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(tc.key, tc.capture)
			rec, body := do(t, s, tc.method, tc.body, tc.headers)
			assert.Equal(t, tc.want, rec.Code)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
			if tc.want != http.StatusOK {
				assert.Equal(t, false, body["success"])
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer("secret", &stubCapturer{})
	do(t, s, http.MethodPost, `{"text":"x"}`, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `lifeos_http_captures_total{status="4xx"} 1`)
}
