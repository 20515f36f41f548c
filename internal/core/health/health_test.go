package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLiveness_Handler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	Liveness()(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	ct := rr.Header().Get("Content-Type")
	if !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content-type=%q want text/plain", ct)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "ok" {
		t.Fatalf("body=%q want ok", got)
	}
}

type fakeReporter struct {
	ready bool
	parts []int32
}

func (f fakeReporter) Readiness() (bool, []int32) { return f.ready, f.parts }

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestReadiness(t *testing.T) {
	cases := []struct {
		name    string
		rr      ReadinessReporter
		pingers map[string]Pinger
		code    int
		body    string
	}{
		{"no deps", nil, nil, http.StatusOK, `{"status":"ready"}`},
		{"assigned", fakeReporter{true, []int32{1}}, nil, http.StatusOK, `{"status":"ready","partitions":[1]}`},
		{"unassigned", fakeReporter{}, nil, http.StatusServiceUnavailable, `{"status":"not_ready"}`},
		{"redis ok", nil, map[string]Pinger{"redis": fakePinger{}}, http.StatusOK, `{"status":"ready","checks":{"redis":"ok"}}`},
		{"redis down", nil, map[string]Pinger{"redis": fakePinger{errors.New("dial tcp: refused")}},
			http.StatusServiceUnavailable, `{"status":"not_ready","checks":{"redis":"dial tcp: refused"}}`},
	}
	for _, c := range cases {
		rr := httptest.NewRecorder()
		Readiness(c.rr, c.pingers)(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		if rr.Code != c.code {
			t.Fatalf("%s: status=%d want %d", c.name, rr.Code, c.code)
		}
		if got := strings.TrimSpace(rr.Body.String()); got != c.body {
			t.Fatalf("%s: body=%s want %s", c.name, got, c.body)
		}
	}
}
