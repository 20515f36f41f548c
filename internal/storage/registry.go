package storage

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/mohammed-shakir/survey-stats/internal/core/config"
)

type Factory func(cfg config.Config, logger *slog.Logger, client *http.Client) (Fetcher, error)

var reg = map[string]Factory{}

func Register(name string, f Factory) {
	reg[name] = f
}

func New(name string, cfg config.Config, logger *slog.Logger, client *http.Client) (Fetcher, error) {
	if f, ok := reg[name]; ok {
		return f(cfg, logger, client)
	}
	return nil, fmt.Errorf("unknown storage driver %q (have %v)", name, names())
}

func names() []string {
	out := make([]string, 0, len(reg))
	for n := range reg {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func init() {
	Register("http", func(cfg config.Config, logger *slog.Logger, client *http.Client) (Fetcher, error) {
		return NewHTTP(logger, client, cfg.StorageBaseURL, cfg.StorageBucket)
	})
	Register("dir", func(cfg config.Config, _ *slog.Logger, _ *http.Client) (Fetcher, error) {
		return NewDir(cfg.StorageDir)
	})
}
