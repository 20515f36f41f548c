package calc

import (
	"strings"
	"time"

	"github.com/mohammed-shakir/survey-stats/internal/core/apperr"
	"github.com/mohammed-shakir/survey-stats/internal/shaper"
	"github.com/mohammed-shakir/survey-stats/internal/table"
)

// count reports how many distinct values the target column holds.
func (r *run) count() error {
	vals, err := r.t.Distinct(r.target)
	if err != nil {
		return apperr.Schema("count", "%w", err)
	}
	r.metrics.Set("Number", []any{len(vals)})
	return nil
}

// firstRows keeps the first row of each target group, groups in key order.
func (r *run) firstRows(k Kind) (*table.Table, []table.Group, error) {
	groups, err := r.t.GroupBy(r.target, true)
	if err != nil {
		return nil, nil, apperr.Schema(string(k), "%w", err)
	}
	out := table.New(r.t.Columns()...)
	for _, g := range groups {
		out.AppendRow(r.t.Row(g.Rows[0]))
	}
	return out, groups, nil
}

const fileNameColumn = "filename"

func (r *run) uniqueNarrow() error {
	if err := r.requireColumns(KindUnique, fileNameColumn); err != nil {
		return err
	}
	first, _, err := r.firstRows(KindUnique)
	if err != nil {
		return err
	}
	types := make([]any, first.NumRows())
	for i := range types {
		types[i] = []any{first.Cell(i, r.target), first.Cell(i, fileNameColumn)}
	}
	r.metrics.Set("Types", types)
	return nil
}

const (
	startDateColumn = "Start date"
	startDateLayout = "02/01/2006"
)

// uniqueWide lists, for every column, the distinct values found in the
// first rows of the target groups. The survey start date is summarized as
// its [earliest, latest] range instead.
func (r *run) uniqueWide() error {
	first, _, err := r.firstRows(KindUnique)
	if err != nil {
		return err
	}
	for _, col := range first.Columns() {
		if col == startDateColumn {
			span, err := dateSpan(first, col)
			if err != nil {
				return err
			}
			r.metrics.Set(col, span)
			continue
		}
		groups, _ := first.GroupBy(col, true)
		opts := make([]*shaper.Record, len(groups))
		for i, g := range groups {
			opts[i] = shaper.NewRecord().Set("value", g.Key).Set("label", g.Key)
		}
		r.metrics.Set(col, opts)
	}
	return nil
}

func dateSpan(t *table.Table, col string) ([]any, error) {
	vals, _ := t.Column(col)
	var lo, hi time.Time
	for _, v := range vals {
		if v.IsEmpty() {
			continue
		}
		d, err := time.Parse("2/1/2006", strings.TrimSpace(v.String()))
		if err != nil {
			return nil, apperr.Schema("unique", "%s %q is not dd/mm/yyyy", col, v.String())
		}
		if lo.IsZero() || d.Before(lo) {
			lo = d
		}
		if hi.IsZero() || d.After(hi) {
			hi = d
		}
	}
	if lo.IsZero() {
		return []any{nil, nil}, nil
	}
	return []any{lo.Format(startDateLayout), hi.Format(startDateLayout)}, nil
}
