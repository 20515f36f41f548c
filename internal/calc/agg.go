package calc

import (
	"github.com/mohammed-shakir/survey-stats/internal/core/apperr"
	"github.com/mohammed-shakir/survey-stats/internal/shaper"
	"github.com/mohammed-shakir/survey-stats/internal/table"
)

// aggColumn is one output column of agg: op applied to source, written as label.
type aggColumn struct {
	op     Op
	source string
	label  string
}

func (r *run) aggPlan() ([]aggColumn, string, error) {
	spec, err := ParseAggSpec(KindAgg, r.req.AggSpec)
	if err != nil {
		return nil, "", err
	}
	var (
		plan   []aggColumn
		sortBy string
		seen   = map[string]bool{}
		// the group key is the first output column
		labels = map[string]bool{r.target: true}
	)
	add := func(c aggColumn) error {
		if seen[c.source] {
			return apperr.Param("agg", "column %q is aggregated twice", c.source)
		}
		if labels[c.label] {
			return apperr.Param("agg", "output column %q is produced twice", c.label)
		}
		seen[c.source] = true
		labels[c.label] = true
		plan = append(plan, c)
		return nil
	}
	for _, a := range spec {
		switch a.Op {
		case OpDensity:
			set, err := r.organismColumns()
			if err != nil {
				return nil, "", err
			}
			for _, c := range set {
				if err := add(aggColumn{op: OpSum, source: c, label: c}); err != nil {
					return nil, "", err
				}
			}
			continue
		case OpFirst:
			sortBy = a.Column
		}
		label := a.Column
		if a.Op == OpCount {
			label = "Number"
		}
		if err := add(aggColumn{op: a.Op, source: a.Column, label: label}); err != nil {
			return nil, "", err
		}
	}
	for _, c := range plan {
		if err := r.requireColumns(KindAgg, c.source); err != nil {
			return nil, "", err
		}
	}
	return plan, sortBy, nil
}

// agg groups on the target column (keys ascending) and reduces each planned
// column. Numeric results are rounded to whole numbers. The grouped table
// replaces the working table.
func (r *run) agg() error {
	plan, sortBy, err := r.aggPlan()
	if err != nil {
		return err
	}
	if sortBy != "" {
		if err := r.t.SortBy(sortBy, true); err != nil {
			return apperr.Schema("agg", "%w", err)
		}
	}
	groups, err := r.t.GroupBy(r.target, true)
	if err != nil {
		return apperr.Schema("agg", "%w", err)
	}

	cols := []string{r.target}
	for _, c := range plan {
		cols = append(cols, c.label)
	}
	grouped := table.New(cols...)
	types := make([]*shaper.Record, 0, len(groups))

	for _, g := range groups {
		row := make([]table.Value, 0, len(cols))
		row = append(row, g.Key)
		rec := shaper.NewRecord().Set(r.target, g.Key)
		for _, c := range plan {
			vals := pick(r.t, g.Rows, c.source)
			v, err := reduce(c.op, c.source, vals)
			if err != nil {
				return err
			}
			if f, ok := v.Float(); ok && v.Kind() == table.KindNumber {
				v = table.Number(round(f, 0))
			}
			row = append(row, v)
			rec.Set(c.label, v)
		}
		grouped.AppendRow(row)
		types = append(types, rec)
	}

	r.metrics.Set("Types", types)
	r.t = grouped
	return nil
}

func pick(t *table.Table, rows []int, col string) []table.Value {
	ci, _ := t.ColIndex(col)
	out := make([]table.Value, len(rows))
	for i, ri := range rows {
		out[i] = t.Row(ri)[ci]
	}
	return out
}
