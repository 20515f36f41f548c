package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mohammed-shakir/survey-stats/internal/core/observability"
)

// HTTP reads objects from an S3-style endpoint laid out as <base>/<bucket>/<path>.
type HTTP struct {
	logger   *slog.Logger
	client   *http.Client
	base     *url.URL
	bucket   string
	startNow func() time.Time // for tests
}

func NewHTTP(logger *slog.Logger, client *http.Client, base, bucket string) (*HTTP, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse storage url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("storage url %q needs scheme and host", base)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{
		logger:   logger,
		client:   client,
		base:     u,
		bucket:   strings.Trim(bucket, "/"),
		startNow: time.Now,
	}, nil
}

func (h *HTTP) objectURL(path string) *url.URL {
	u := *h.base
	u.Path = h.base.Path + "/" + h.bucket + "/" + strings.TrimLeft(path, "/")
	u.RawPath = ""
	return &u
}

func (h *HTTP) Fetch(ctx context.Context, path string) ([]byte, error) {
	u := h.objectURL(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, */*")

	start := h.startNow()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	dur := time.Since(start)
	observability.ObserveUpstreamLatency("storage", dur.Seconds())
	h.logger.Debug("storage fetch", "path", path, "status", resp.StatusCode, "duration", dur.String())

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden {
		// S3-compatible stores answer 403 for missing keys in buckets without list rights
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, fmt.Errorf("upstream status %d: %s", resp.StatusCode, string(b))
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return b, nil
}
