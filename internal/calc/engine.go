package calc

import (
	"context"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/survey-stats/internal/core/apperr"
	"github.com/mohammed-shakir/survey-stats/internal/core/observability"
	"github.com/mohammed-shakir/survey-stats/internal/logger"
	"github.com/mohammed-shakir/survey-stats/internal/shaper"
	"github.com/mohammed-shakir/survey-stats/internal/table"
)

type Engine struct {
	sets   OrganismSets
	logger *slog.Logger
}

func NewEngine(sets OrganismSets, logger *slog.Logger) *Engine {
	if len(sets) == 0 {
		sets = DefaultOrganismSets()
	}
	return &Engine{sets: sets, logger: logger}
}

// run is the working state for one target column. Kinds run in request
// order against t; agg, organism and the biodiversity1/2 kinds leave a
// changed table behind for the kinds that follow.
type run struct {
	t       *table.Table
	target  string
	req     Request
	sets    OrganismSets
	metrics *shaper.Metrics
}

// Run computes every requested kind for every target column. Each column
// starts from its own copy of t, so t itself is never modified.
func (e *Engine) Run(ctx context.Context, t *table.Table, req Request) (*shaper.Result, error) {
	if len(req.Columns) == 0 {
		return nil, apperr.Param("calc", "calc_columns is required")
	}
	kinds := req.Kinds
	if len(kinds) == 0 {
		kinds = []Kind{KindCount}
	}
	if req.AreaColumn == "" {
		req.AreaColumn = DefaultAreaColumn
	}

	res := shaper.NewResult()
	for _, col := range req.Columns {
		r := &run{t: t.Clone(), target: col, req: req, sets: e.sets, metrics: shaper.NewMetrics()}
		for _, k := range kinds {
			kctx := logger.WithCalc(ctx, string(k))
			start := time.Now()
			err := r.do(k)
			observability.ObserveCalc(string(k), err, time.Since(start).Seconds())
			if err != nil {
				e.logger.DebugContext(kctx, "calc failed", "column", col, "err", err)
				return nil, err
			}
			e.logger.DebugContext(kctx, "calc done", "column", col, "rows", r.t.NumRows())
		}
		res.Set(col, r.metrics)
	}
	return res, nil
}

func (r *run) do(k Kind) error {
	if k != KindBiodiversity2 && !r.t.Has(r.target) {
		return apperr.Schema(string(k), "column %q not found", r.target)
	}
	switch k {
	case KindCount:
		return r.count()
	case KindUnique:
		if r.req.AllColumns {
			return r.uniqueWide()
		}
		return r.uniqueNarrow()
	case KindAgg:
		return r.agg()
	case KindOrganism:
		return r.organism()
	case KindBiodiversity1:
		return r.biodiversity1()
	case KindBiodiversity2:
		return r.biodiversity2()
	case KindBiodiversity3:
		return r.biodiversity3()
	case KindBiodiversity4:
		return r.biodiversity4()
	case KindBiodiversity5:
		return r.biodiversity5()
	}
	return apperr.Schema("calc", "unknown calculation %q", k)
}

func (r *run) organismColumns() ([]string, error) {
	return r.sets.Resolve(r.t)
}

func (r *run) requireColumns(k Kind, cols ...string) error {
	for _, c := range cols {
		if !r.t.Has(c) {
			return apperr.Schema(string(k), "column %q not found", c)
		}
	}
	return nil
}
