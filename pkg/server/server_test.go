package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gatherlens/gatherlens/pkg/serializer"
)

func TestHealthEndpoint(t *testing.T) {
	s := New()
	h := s.setupRoutes()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Fatalf("expected status healthy, got %q", resp.Status)
	}
}

func TestReadyEndpointBeforeStartup(t *testing.T) {
	s := New()
	h := s.setupRoutes()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d before startup, got %d", http.StatusServiceUnavailable, w.Code)
	}

	s.setReady(true)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d once ready, got %d", http.StatusOK, w.Code)
	}
}

func TestDefaultRouteListsMountedHandlers(t *testing.T) {
	s := New(
		WithName("gatherlens-test"),
		WithVersion("1.2.3"),
		WithHandler(map[string]http.HandlerFunc{
			"GET /v1/captures": func(w http.ResponseWriter, r *http.Request) {
				serializer.RespondJSON(w, http.StatusOK, nil)
			},
		}),
	)
	h := s.setupRoutes()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp struct {
		Name    string   `json:"name"`
		Version string   `json:"version"`
		Routes  []string `json:"routes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Name != "gatherlens-test" || resp.Version != "1.2.3" {
		t.Fatalf("unexpected identity: %+v", resp)
	}

	found := false
	for _, route := range resp.Routes {
		if route == "GET /v1/captures" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected mounted route in listing, got %v", resp.Routes)
	}
}

func TestMiddlewareSetsRequestID(t *testing.T) {
	s := New(WithHandler(map[string]http.HandlerFunc{
		"GET /v1/captures": func(w http.ResponseWriter, r *http.Request) {
			serializer.RespondJSON(w, http.StatusOK, nil)
		},
	}))
	h := s.setupRoutes()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/captures", nil))

	if w.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected X-Request-Id header")
	}
	if got := w.Header().Get("X-Api-Version"); got != DefaultAPIVersion {
		t.Fatalf("expected X-Api-Version %q, got %q", DefaultAPIVersion, got)
	}
}

func TestMiddlewarePreservesClientRequestID(t *testing.T) {
	s := New(WithHandler(map[string]http.HandlerFunc{
		"GET /v1/captures": func(w http.ResponseWriter, r *http.Request) {
			serializer.RespondJSON(w, http.StatusOK, nil)
		},
	}))
	h := s.setupRoutes()

	req := httptest.NewRequest(http.MethodGet, "/v1/captures", nil)
	req.Header.Set("X-Request-Id", "client-42")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-Id"); got != "client-42" {
		t.Fatalf("expected client request id to be preserved, got %q", got)
	}
}

func TestMiddlewareRateLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit = 1
	cfg.RateLimitBurst = 1

	s := New(
		WithConfig(cfg),
		WithHandler(map[string]http.HandlerFunc{
			"GET /v1/captures": func(w http.ResponseWriter, r *http.Request) {
				serializer.RespondJSON(w, http.StatusOK, nil)
			},
		}),
	)
	h := s.setupRoutes()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/captures", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/captures", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d when rate limited, got %d", http.StatusTooManyRequests, w.Code)
	}
}
