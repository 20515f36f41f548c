package calc

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/mohammed-shakir/survey-stats/internal/core/apperr"
	"github.com/mohammed-shakir/survey-stats/internal/shaper"
	"github.com/mohammed-shakir/survey-stats/internal/table"
)

const densityM2Label = "Density (individuals m-2)"

// abundance returns the organism values of one row, non-numbers as 0.
func abundance(t *table.Table, row int, idx []int) []float64 {
	cells := t.Row(row)
	out := make([]float64, len(idx))
	for i, ci := range idx {
		out[i] = organismValue(cells[ci])
	}
	return out
}

func columnIndexes(t *table.Table, cols []string) []int {
	out := make([]int, len(cols))
	for i, c := range cols {
		out[i], _ = t.ColIndex(c)
	}
	return out
}

// biodiversity1 is organism density per square metre by target group:
// mean and sample deviation of (sum of organisms / area) over the rows,
// groups in key order. The grouped table replaces the working table.
func (r *run) biodiversity1() error {
	set, err := r.organismColumns()
	if err != nil {
		return err
	}
	area := r.req.AreaColumn
	if err := r.requireColumns(KindBiodiversity1, area); err != nil {
		return err
	}
	idx := columnIndexes(r.t, set)
	groups, err := r.t.GroupBy(r.target, true)
	if err != nil {
		return apperr.Schema("biodiversity1", "%w", err)
	}

	grouped := table.New(r.target, densityM2Label)
	types := make([]*shaper.Record, 0, len(groups))
	for _, g := range groups {
		var ratios []float64
		for _, row := range g.Rows {
			a, ok := r.t.Cell(row, area).Float()
			if !ok {
				continue
			}
			v := floats.Sum(abundance(r.t, row, idx)) / a
			if math.IsNaN(v) {
				continue
			}
			ratios = append(ratios, v)
		}
		mean, std := sampleMeanStd(ratios)
		s := table.Text(meanStd(mean, std, 3))
		grouped.AppendRow([]table.Value{g.Key, s})
		types = append(types, shaper.NewRecord().Set(r.target, g.Key).Set(densityM2Label, s))
	}

	r.metrics.Set("Types", types)
	r.t = grouped
	return nil
}

// biodiversity2 counts the morphotypes seen anywhere in the table. The
// working table becomes the single row of per-organism totals.
func (r *run) biodiversity2() error {
	set, err := r.organismColumns()
	if err != nil {
		return err
	}
	idx := columnIndexes(r.t, set)
	totals := make([]float64, len(set))
	for row := range r.t.NumRows() {
		for i, v := range abundance(r.t, row, idx) {
			totals[i] += v
		}
	}
	n := 0
	row := make([]table.Value, len(set))
	for i, v := range totals {
		if v > 0 {
			n++
		}
		row[i] = table.Number(v)
	}

	summed := table.New(set...)
	summed.AppendRow(row)
	r.metrics.Set("Number of morphotypes", []any{n})
	r.t = summed
	return nil
}

// perGroup applies score to every row of each target group (groups in order
// of first appearance) and formats mean and population deviation. Rows for
// which score reports false are left out.
func (r *run) perGroup(k Kind, label string, decimals int, score func([]float64) (float64, bool)) error {
	set, err := r.organismColumns()
	if err != nil {
		return err
	}
	idx := columnIndexes(r.t, set)
	groups, err := r.t.GroupBy(r.target, false)
	if err != nil {
		return apperr.Schema(string(k), "%w", err)
	}
	types := make([]*shaper.Record, 0, len(groups))
	for _, g := range groups {
		var xs []float64
		for _, row := range g.Rows {
			if v, ok := score(abundance(r.t, row, idx)); ok {
				xs = append(xs, v)
			}
		}
		mean, std := popMeanStd(xs)
		types = append(types, shaper.NewRecord().
			Set(r.target, g.Key).
			Set(label, meanStd(mean, std, decimals)))
	}
	r.metrics.Set("Types", types)
	return nil
}

// biodiversity3 is the number of morphotypes present per row.
func (r *run) biodiversity3() error {
	return r.perGroup(KindBiodiversity3, "Number", 1, func(vals []float64) (float64, bool) {
		n := 0
		for _, v := range vals {
			if v > 0 {
				n++
			}
		}
		return float64(n), true
	})
}

// biodiversity4 is the exponential of the Shannon index per row.
func (r *run) biodiversity4() error {
	return r.perGroup(KindBiodiversity4, "Result", 2, func(vals []float64) (float64, bool) {
		s := floats.Sum(vals)
		var h float64
		for _, v := range vals {
			if v > 0 {
				p := v / s
				h += p * math.Log(p)
			}
		}
		return math.Exp(-h), true
	})
}

// biodiversity5 is the reciprocal Simpson index per row; empty rows are skipped.
func (r *run) biodiversity5() error {
	return r.perGroup(KindBiodiversity5, "Result", 2, func(vals []float64) (float64, bool) {
		s := floats.Sum(vals)
		if s == 0 {
			return 0, false
		}
		var d float64
		for _, v := range vals {
			p := v / s
			d += p * p
		}
		return 1 / d, true
	})
}
