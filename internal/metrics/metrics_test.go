package metrics

import (
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestProvider_BuildInfoAndStandardCollectors(t *testing.T) {
	p := Init(Config{Build: BuildInfo{Version: "1.2.0", Revision: "abc123", Time: "2025-01-01T00:00:00Z", StorageDriver: "dir"}})

	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("expected go collector output; got:\n%s", body)
	}
	assertHasMetricLine(t, body, "survey_build_info",
		`version="1.2.0"`, `revision="abc123"`, `storage_driver="dir"`,
		`go_version="`+runtime.Version()+`"`)
}

func TestBuildInfo_DefaultsVersion(t *testing.T) {
	b := BuildInfo{Revision: "keep"}.resolved()
	if b.Version != "dev" || b.Revision != "keep" {
		t.Fatalf("resolved=%+v", b)
	}
}

func TestProvider_Register(t *testing.T) {
	p := Init(Config{})
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "objects_evicted_test", Help: "test"})
	p.Register(c)
	c.Add(3)
	if n, err := testutil.GatherAndCount(p.reg, "objects_evicted_test"); err != nil || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if v := testutil.ToFloat64(c); v != 3 {
		t.Fatalf("value=%v", v)
	}
}

func TestInit_DefaultsAddrAndPath(t *testing.T) {
	p := Init(Config{})
	if p.cfg.Addr != ":9090" || p.cfg.Path != "/metrics" {
		t.Fatalf("defaults=%q %q", p.cfg.Addr, p.cfg.Path)
	}
}
