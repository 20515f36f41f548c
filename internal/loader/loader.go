// Package loader fetches survey CSV files and merges them into one table.
package loader

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	"github.com/mohammed-shakir/survey-stats/internal/core/apperr"
	"github.com/mohammed-shakir/survey-stats/internal/core/observability"
	"github.com/mohammed-shakir/survey-stats/internal/geo"
	"github.com/mohammed-shakir/survey-stats/internal/storage"
	"github.com/mohammed-shakir/survey-stats/internal/table"
)

// DefaultDrop is the index column pandas writes when a frame is saved with it.
var DefaultDrop = []string{"Unnamed: 0"}

type Options struct {
	Extension string
	// dropped from each file before merging; absent names are ignored
	Drop []string
	// explicit join columns used for every merge instead of the shared ones
	MergeOn     []table.JoinKey
	Directives  []table.Directive
	ConvertGeom bool
}

type Loader struct {
	fetcher storage.Fetcher
	logger  *slog.Logger
}

func New(f storage.Fetcher, logger *slog.Logger) *Loader {
	return &Loader{fetcher: f, logger: logger}
}

// Load fetches refs in order and outer-joins them into a single table.
// Directives are applied after the merge; geometry is derived last.
func (l *Loader) Load(ctx context.Context, refs []string, opts Options) (*table.Table, error) {
	ext := opts.Extension
	if ext == "" {
		ext = "csv"
	}
	if ext != "csv" {
		return nil, apperr.Param("load", "unsupported extension %q", ext)
	}
	if len(refs) == 0 {
		return nil, apperr.Param("load", "no filenames given")
	}

	var merged *table.Table
	for _, ref := range refs {
		path, err := storage.ObjectPath(ref, ext)
		if err != nil {
			return nil, apperr.Param("load", "%w", err)
		}
		b, err := l.fetcher.Fetch(ctx, path)
		if err != nil {
			return nil, apperr.Load("fetch", "%s: %w", path, err)
		}
		t, err := table.ReadCSV(bytes.NewReader(b))
		if err != nil {
			return nil, apperr.Load("parse", "%s: %w", path, err)
		}
		t.DropColumns(opts.Drop...)
		l.logger.DebugContext(ctx, "file loaded", "path", path, "rows", t.NumRows(), "cols", t.NumCols())

		if merged == nil {
			merged = t
			continue
		}
		keys := opts.MergeOn
		if len(keys) == 0 {
			keys = table.SharedKeys(merged, t)
			if len(keys) == 0 {
				return nil, apperr.Load("merge", "%s: no shared columns; pass merge_columns", path)
			}
		}
		if merged, err = table.OuterJoin(merged, t, keys); err != nil {
			return nil, apperr.Load("merge", "%s: %w", path, err)
		}
	}

	table.Apply(merged, opts.Directives)
	observability.ObserveRowsLoaded(merged.NumRows())

	if opts.ConvertGeom {
		if err := convertGeom(merged); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// convertGeom replaces latitude/longitude with a point per row.
func convertGeom(t *table.Table) error {
	pts, err := geo.Points(t, geo.DefaultLatLon)
	if err != nil {
		return err
	}
	if err := t.SetGeometry(pts); err != nil {
		return apperr.Clip("convert_geom", "%w", err)
	}
	t.DropColumns(geo.DefaultLatLon[:]...)
	return nil
}

// ParseMergeColumns reads "left[=right],..." into join keys.
func ParseMergeColumns(s string) ([]table.JoinKey, error) {
	var out []table.JoinKey
	for _, part := range SplitList(s) {
		l, r, ok := strings.Cut(part, "=")
		if !ok {
			r = l
		}
		l, r = strings.TrimSpace(l), strings.TrimSpace(r)
		if l == "" || r == "" {
			return nil, apperr.Param("merge_columns", "bad join column %q", part)
		}
		out = append(out, table.JoinKey{Left: l, Right: r})
	}
	return out, nil
}

// SplitList splits a comma-separated parameter, dropping empty items.
// Items are not trimmed: column names may carry spaces.
func SplitList(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
