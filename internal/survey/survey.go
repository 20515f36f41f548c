// Package survey runs the per-request pipeline: load, clip, then either
// shape the table or compute statistics over it.
package survey

import (
	"context"
	"log/slog"

	"github.com/mohammed-shakir/survey-stats/internal/calc"
	"github.com/mohammed-shakir/survey-stats/internal/geo"
	"github.com/mohammed-shakir/survey-stats/internal/loader"
	"github.com/mohammed-shakir/survey-stats/internal/logger"
	"github.com/mohammed-shakir/survey-stats/internal/shaper"
	"github.com/mohammed-shakir/survey-stats/internal/table"
)

// Area selects the rows to keep. A nil BBox keeps everything.
type Area struct {
	BBox   *geo.BBox
	CRS    geo.CRSPair
	LatLon [2]string
}

type DataRequest struct {
	Filenames []string
	Load      loader.Options
	Area      Area
	Orient    string
	SkipLines int
	// H3Res > -1 adds an h3_cell column at that resolution
	H3Res int
}

type CalcRequest struct {
	Filenames []string
	Load      loader.Options
	Area      Area
	Calc      calc.Request
}

type Service struct {
	loader *loader.Loader
	engine *calc.Engine
	logger *slog.Logger
}

func New(l *loader.Loader, e *calc.Engine, log *slog.Logger) *Service {
	return &Service{loader: l, engine: e, logger: log}
}

// Data returns the loaded rows in the requested orientation, or a GeoJSON
// FeatureCollection when geometry was converted.
func (s *Service) Data(ctx context.Context, req DataRequest) (any, error) {
	ctx = logger.WithFiles(ctx, req.Filenames)
	t, err := s.table(ctx, req.Filenames, req.Load, req.Area)
	if err != nil {
		return nil, err
	}
	t.Skip(req.SkipLines)
	if req.H3Res >= 0 {
		if err := geo.AnnotateH3(t, req.Area.LatLon, req.H3Res); err != nil {
			return nil, err
		}
	}
	s.logger.DebugContext(ctx, "data ready", "rows", t.NumRows(), "cols", t.NumCols())
	if req.Load.ConvertGeom {
		return geo.FeatureCollection(t), nil
	}
	return shaper.Orient(t, req.Orient)
}

// Calculate computes the requested statistics for every target column.
func (s *Service) Calculate(ctx context.Context, req CalcRequest) (*shaper.Result, error) {
	ctx = logger.WithFiles(ctx, req.Filenames)
	t, err := s.table(ctx, req.Filenames, req.Load, req.Area)
	if err != nil {
		return nil, err
	}
	return s.engine.Run(ctx, t, req.Calc)
}

func (s *Service) table(ctx context.Context, refs []string, opts loader.Options, area Area) (*table.Table, error) {
	t, err := s.loader.Load(ctx, refs, opts)
	if err != nil {
		return nil, err
	}
	if area.BBox == nil {
		return t, nil
	}
	before := t.NumRows()
	if err := geo.Clip(t, *area.BBox, area.CRS, area.LatLon); err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "clipped", "before", before, "after", t.NumRows())
	return t, nil
}
