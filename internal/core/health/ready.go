// Package health serves the liveness and readiness endpoints.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

type ReadinessReporter interface {
	Readiness() (ready bool, partitions []int32)
}

// Pinger is a dependency that must answer before traffic is accepted.
type Pinger interface {
	Ping(ctx context.Context) error
}

const pingTimeout = time.Second

// Readiness reports ready when every pinger answers and, if rr is set, the
// invalidation consumer holds partitions.
func Readiness(rr ReadinessReporter, pingers map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type resp struct {
			Status     string            `json:"status"`
			Partitions []int32           `json:"partitions,omitempty"`
			Checks     map[string]string `json:"checks,omitempty"`
		}
		ready := true
		out := resp{}
		if rr != nil {
			var parts []int32
			if ready, parts = rr.Readiness(); ready {
				out.Partitions = parts
			}
		}
		if len(pingers) > 0 {
			out.Checks = make(map[string]string, len(pingers))
			ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
			defer cancel()
			for name, p := range pingers {
				if err := p.Ping(ctx); err != nil {
					out.Checks[name] = err.Error()
					ready = false
					continue
				}
				out.Checks[name] = "ok"
			}
		}
		out.Status = "not_ready"
		if ready {
			out.Status = "ready"
		}
		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
