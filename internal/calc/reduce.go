package calc

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/mohammed-shakir/survey-stats/internal/core/apperr"
	"github.com/mohammed-shakir/survey-stats/internal/table"
)

// numeric collects the numbers in vals, skipping Empty cells. A non-empty
// cell that is not a number fails the op.
func numeric(op Op, col string, vals []table.Value) ([]float64, error) {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if v.IsEmpty() {
			continue
		}
		if v.Kind() != table.KindNumber && v.Kind() != table.KindBool {
			return nil, apperr.Param(string(op), "column %q holds non-numeric value %q", col, v.String())
		}
		f, _ := v.Float()
		out = append(out, f)
	}
	return out, nil
}

// reduce applies op to one group's values of col.
func reduce(op Op, col string, vals []table.Value) (table.Value, error) {
	switch op {
	case OpFirst:
		if len(vals) == 0 {
			return table.Empty(), nil
		}
		return vals[0], nil
	case OpLast:
		if len(vals) == 0 {
			return table.Empty(), nil
		}
		return vals[len(vals)-1], nil
	case OpSize, OpCount:
		// cells are filled with Empty after loading, so every row counts
		return table.Number(float64(len(vals))), nil
	case OpNUnique:
		seen := map[table.Value]struct{}{}
		for _, v := range vals {
			if v.IsEmpty() {
				continue
			}
			seen[v] = struct{}{}
		}
		return table.Number(float64(len(seen))), nil
	case OpMin, OpMax:
		return extreme(op, vals), nil
	}

	xs, err := numeric(op, col, vals)
	if err != nil {
		return table.Value{}, err
	}
	switch op {
	case OpSum:
		return table.Number(floats.Sum(xs)), nil
	case OpMean:
		if len(xs) == 0 {
			return table.Number(math.NaN()), nil
		}
		return table.Number(stat.Mean(xs, nil)), nil
	case OpMedian:
		if len(xs) == 0 {
			return table.Number(math.NaN()), nil
		}
		sort.Float64s(xs)
		n := len(xs)
		if n%2 == 1 {
			return table.Number(xs[n/2]), nil
		}
		return table.Number((xs[n/2-1] + xs[n/2]) / 2), nil
	case OpStd, OpVar:
		if len(xs) < 2 {
			return table.Number(math.NaN()), nil
		}
		v := stat.Variance(xs, nil)
		if op == OpStd {
			v = math.Sqrt(v)
		}
		return table.Number(v), nil
	}
	return table.Value{}, apperr.Param(string(op), "operation not supported here")
}

func extreme(op Op, vals []table.Value) table.Value {
	var best table.Value
	found := false
	for _, v := range vals {
		if v.IsEmpty() {
			continue
		}
		if !found {
			best, found = v, true
			continue
		}
		c := table.Compare(v, best)
		if (op == OpMin && c < 0) || (op == OpMax && c > 0) {
			best = v
		}
	}
	return best
}

// organismValue reads an abundance cell; anything that is not a number is 0.
func organismValue(v table.Value) float64 {
	if v.Kind() != table.KindNumber {
		return 0
	}
	f, _ := v.Float()
	if math.IsNaN(f) {
		return 0
	}
	return f
}
