package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

type ReadinessReporter interface {
	Readiness() (ready bool, partitions []int32)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

type readyResp struct {
	Status     string  `json:"status"`
	Redis      string  `json:"redis,omitempty"`
	Ingest     string  `json:"ingest,omitempty"`
	Partitions []int32 `json:"partitions,omitempty"`
}

// Readiness checks the store and the ingest consumer; either may be nil when
// that part is not configured.
func Readiness(store Pinger, consumer ReadinessReporter, timeout time.Duration) http.HandlerFunc {
	if timeout <= 0 {
		timeout = time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		out := readyResp{Status: "ready"}
		ok := true

		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			err := store.Ping(ctx)
			cancel()
			if err != nil {
				ok = false
				out.Redis = "down"
			} else {
				out.Redis = "up"
			}
		}
		if consumer != nil {
			ready, parts := consumer.Readiness()
			if ready {
				out.Ingest = "assigned"
				out.Partitions = parts
			} else {
				ok = false
				out.Ingest = "waiting"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if !ok {
			out.Status = "not_ready"
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
