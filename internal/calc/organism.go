package calc

import (
	"github.com/mohammed-shakir/survey-stats/internal/core/apperr"
	"github.com/mohammed-shakir/survey-stats/internal/shaper"
	"github.com/mohammed-shakir/survey-stats/internal/table"
)

const (
	densityHaLabel   = "Density (individuals ha-1)"
	specimensLabel   = "Number of Specimens"
	squareMetresInHa = 10000
)

// organism summarizes one morphotype column: values from the first row where
// it was seen, its density over the sampled area, and reductions over the
// rows where it is present.
func (r *run) organism() error {
	spec, err := ParseAggSpec(KindOrganism, r.req.AggSpec)
	if err != nil {
		return err
	}
	var (
		firsts  []string
		density string
		ops     []AggOp
		seen    = map[string]bool{}
	)
	for _, a := range spec {
		switch a.Op {
		case OpFirst:
			firsts = append(firsts, a.Column)
		case OpDensity:
			if a.Column == "" {
				return apperr.Param("organism", "density needs an area column")
			}
			density = a.Column
		default:
			if seen[a.Column] {
				return apperr.Param("organism", "column %q is aggregated twice", a.Column)
			}
			seen[a.Column] = true
			ops = append(ops, a)
		}
	}
	for _, c := range firsts {
		if err := r.requireColumns(KindOrganism, c); err != nil {
			return err
		}
	}
	for _, a := range ops {
		if err := r.requireColumns(KindOrganism, a.Column); err != nil {
			return err
		}
	}
	if density != "" {
		if err := r.requireColumns(KindOrganism, density); err != nil {
			return err
		}
	}

	// the target is coerced in the working table; non-numbers become Empty
	vals, _ := r.t.Column(r.target)
	for i, v := range vals {
		if f, ok := v.Float(); ok && !v.IsEmpty() {
			vals[i] = table.Number(f)
		} else {
			vals[i] = table.Empty()
		}
	}
	_ = r.t.SetColumn(r.target, vals)

	var present []int
	for i, v := range vals {
		if f, ok := v.Float(); ok && f > 0 {
			present = append(present, i)
		}
	}

	rec := shaper.NewRecord()
	for _, c := range firsts {
		v := table.Empty()
		if len(present) > 0 {
			v = r.t.Cell(present[0], c)
		}
		rec.Set(c, v)
	}
	if density != "" {
		rec.Set(densityHaLabel, table.Number(r.density(vals, density)))
	}
	for _, a := range ops {
		v, err := reduce(a.Op, a.Column, pick(r.t, present, a.Column))
		if err != nil {
			return err
		}
		if a.Column != r.target {
			rec.Set(a.Column, v)
			continue
		}
		if density != "" {
			f, _ := v.Float()
			rec.Set(specimensLabel, table.Text(formatInt(f)))
		} else {
			rec.Set("Number", v)
		}
	}

	r.metrics.Set("Information", []*shaper.Record{rec})
	return nil
}

// density is individuals per hectare over the whole table.
func (r *run) density(target []table.Value, areaCol string) float64 {
	var n, area float64
	for _, v := range target {
		if f, ok := v.Float(); ok {
			n += f
		}
	}
	areas, _ := r.t.Column(areaCol)
	for _, v := range areas {
		if f, ok := v.Float(); ok {
			area += f
		}
	}
	return n / area * squareMetresInHa
}
