package calc

import (
	"strings"

	"github.com/mohammed-shakir/survey-stats/internal/core/apperr"
)

type Op string

const (
	OpSum     Op = "sum"
	OpMean    Op = "mean"
	OpMedian  Op = "median"
	OpMin     Op = "min"
	OpMax     Op = "max"
	OpStd     Op = "std"
	OpVar     Op = "var"
	OpCount   Op = "count"
	OpSize    Op = "size"
	OpNUnique Op = "nunique"
	OpFirst   Op = "first"
	OpLast    Op = "last"
	// OpDensity sums every organism column under agg and yields individuals
	// per hectare under organism.
	OpDensity Op = "density"
)

var knownOps = map[Op]bool{
	OpSum: true, OpMean: true, OpMedian: true, OpMin: true, OpMax: true,
	OpStd: true, OpVar: true, OpCount: true, OpSize: true, OpNUnique: true,
	OpFirst: true, OpLast: true, OpDensity: true,
}

// AggOp is one "op:column" item of the agg_columns parameter.
type AggOp struct {
	Op     Op
	Column string
}

// ParseAggSpec reads "op:column,...". The column may be blank only for density.
func ParseAggSpec(kind Kind, s string) ([]AggOp, error) {
	op := string(kind)
	if strings.TrimSpace(s) == "" {
		return nil, apperr.Param(op, "agg_columns is required")
	}
	var out []AggOp
	for item := range strings.SplitSeq(s, ",") {
		name, col, ok := strings.Cut(item, ":")
		if !ok {
			return nil, apperr.Param(op, "missing ':' in %q", item)
		}
		o := Op(strings.TrimSpace(name))
		if !knownOps[o] {
			return nil, apperr.Param(op, "unknown operation %q", name)
		}
		if col == "" && o != OpDensity {
			return nil, apperr.Param(op, "%q needs a column", item)
		}
		out = append(out, AggOp{Op: o, Column: col})
	}
	return out, nil
}
