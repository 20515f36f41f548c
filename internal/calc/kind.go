// Package calc computes survey statistics over a loaded table.
package calc

import (
	"strings"

	"github.com/mohammed-shakir/survey-stats/internal/core/apperr"
)

type Kind string

const (
	KindCount         Kind = "count"
	KindUnique        Kind = "unique"
	KindAgg           Kind = "agg"
	KindOrganism      Kind = "organism"
	KindBiodiversity1 Kind = "biodiversity1"
	KindBiodiversity2 Kind = "biodiversity2"
	KindBiodiversity3 Kind = "biodiversity3"
	KindBiodiversity4 Kind = "biodiversity4"
	KindBiodiversity5 Kind = "biodiversity5"
)

var knownKinds = map[Kind]bool{
	KindCount: true, KindUnique: true, KindAgg: true, KindOrganism: true,
	KindBiodiversity1: true, KindBiodiversity2: true, KindBiodiversity3: true,
	KindBiodiversity4: true, KindBiodiversity5: true,
}

// ParseKinds reads the comma-separated calc parameter; blank means count.
func ParseKinds(s string) ([]Kind, error) {
	if strings.TrimSpace(s) == "" {
		return []Kind{KindCount}, nil
	}
	var out []Kind
	for p := range strings.SplitSeq(s, ",") {
		k := Kind(strings.TrimSpace(p))
		if !knownKinds[k] {
			return nil, apperr.Schema("calc", "unknown calculation %q", p)
		}
		out = append(out, k)
	}
	return out, nil
}

// DefaultAreaColumn holds the sampled seabed area for biodiversity1.
const DefaultAreaColumn = "Area_m2"

type Request struct {
	Kinds   []Kind
	Columns []string
	// raw "op:column,..." list used by agg and organism
	AggSpec    string
	AllColumns bool
	AreaColumn string
}
