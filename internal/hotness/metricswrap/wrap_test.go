package metricswrap

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammed-shakir/digipin-grid/internal/core/observability"
	"github.com/mohammed-shakir/digipin-grid/internal/hotness/expdecay"
	"github.com/mohammed-shakir/digipin-grid/internal/metrics"
)

func Test_HotAreasGauge_Updates(t *testing.T) {
	p := metrics.Init(metrics.Config{})
	observability.Init(p.Registerer(), true)

	w := New(expdecay.New(30*time.Second), 0, nil)

	w.Inc("39J4")
	w.Inc("4P3J")
	w.Reset("39J4")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	body := rr.Body.String()

	if !strings.Contains(body, "hot_areas_tracked 1") {
		t.Fatalf("expected hot_areas_tracked == 1, got:\n%s", body)
	}
	if top := w.Top(5); len(top) != 1 || top[0].Area != "4P3J" {
		t.Fatalf("Top=%+v", top)
	}
}

func Test_ThresholdCrossingLoggedOnce(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	w := New(expdecay.New(time.Hour), 3, log)

	for range 5 {
		w.Inc("39J4")
	}
	if n := strings.Count(buf.String(), "area above hot threshold"); n != 1 {
		t.Fatalf("crossing logged %d times, want 1:\n%s", n, buf.String())
	}
	if !strings.Contains(buf.String(), `"area":"39J4"`) {
		t.Fatalf("missing area attr: %s", buf.String())
	}
}
