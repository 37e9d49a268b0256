package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	mylog "github.com/mohammed-shakir/digipin-grid/internal/logger"
)

func TestLogging_AssignsAndEchoesRequestID(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var seen string
	h := Logging(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = mylog.RequestID(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/encode", nil))
	if seen == "" || rr.Header().Get("X-Request-ID") != seen {
		t.Fatalf("request id not propagated: ctx=%q header=%q", seen, rr.Header().Get("X-Request-ID"))
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/decode", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if seen != "abc123" || rr.Header().Get("X-Request-ID") != "abc123" {
		t.Fatalf("incoming id not kept: %q", seen)
	}
	if !strings.Contains(buf.String(), "path=/v1/decode") {
		t.Fatalf("request not logged: %s", buf.String())
	}
}

func TestRecover_Returns500(t *testing.T) {
	h := Recover(slog.New(slog.DiscardHandler))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d want 500", rr.Code)
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	h := CORS()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/v1/share", nil))
	if rr.Code != http.StatusNoContent || called {
		t.Fatalf("preflight status=%d called=%v", rr.Code, called)
	}
	if m := rr.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(m, "POST") {
		t.Fatalf("POST not allowed: %q", m)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/encode", nil))
	if !called || rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("GET not passed through with CORS header")
	}
}

func TestMetrics_CapturesStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics())
	r.Get("/s/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusFound)
		w.WriteHeader(http.StatusTeapot) // ignored by net/http, must not change the label
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/s/abc", nil))
	if rr.Code != http.StatusFound {
		t.Fatalf("status=%d", rr.Code)
	}
}
