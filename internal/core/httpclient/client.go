// Package httpclient configures the HTTP client used to read survey objects
// from the object store.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

const DefaultUserAgent = "survey-stats"

type Option func(*options)

type options struct {
	timeout   time.Duration
	userAgent string
}

// WithTimeout bounds one whole fetch, body included. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(o *options) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// NewOutbound returns a client tuned for a few large CSV downloads from one
// host at a time.
func NewOutbound(opts ...Option) *http.Client {
	o := options{timeout: 30 * time.Second, userAgent: DefaultUserAgent}
	for _, f := range opts {
		f(&o)
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: o.timeout,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Transport: userAgent{next: transport, ua: o.userAgent},
		Timeout:   o.timeout,
	}
}

type userAgent struct {
	next http.RoundTripper
	ua   string
}

func (t userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(r)
	}
	r2 := r.Clone(r.Context())
	r2.Header.Set("User-Agent", t.ua)
	return t.next.RoundTrip(r2)
}
