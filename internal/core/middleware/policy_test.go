package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

func TestCORS_AnyOriginWithCredentials(t *testing.T) {
	h := CORS()(okHandler)
	req := httptest.NewRequest(http.MethodOptions, "/v1/calc/", nil)
	req.Header.Set("Origin", "https://haigfras.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://haigfras.example.org" {
		t.Fatalf("allow-origin=%q", got)
	}
	if rr.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("credentials not allowed")
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(2)(okHandler)
	codes := make([]int, 3)
	for i := range codes {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(rr, req)
		codes[i] = rr.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes=%v", codes)
	}

	off := RateLimit(0)(okHandler)
	for range 5 {
		rr := httptest.NewRecorder()
		off.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("disabled limiter rejected a request")
		}
	}
}
