package router

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/mohammed-shakir/survey-stats/internal/calc"
	"github.com/mohammed-shakir/survey-stats/internal/core/apperr"
	"github.com/mohammed-shakir/survey-stats/internal/core/config"
	"github.com/mohammed-shakir/survey-stats/internal/core/observability"
	"github.com/mohammed-shakir/survey-stats/internal/geo"
	"github.com/mohammed-shakir/survey-stats/internal/loader"
	"github.com/mohammed-shakir/survey-stats/internal/logger"
	"github.com/mohammed-shakir/survey-stats/internal/shaper"
	"github.com/mohammed-shakir/survey-stats/internal/storage"
	"github.com/mohammed-shakir/survey-stats/internal/survey"
	"github.com/mohammed-shakir/survey-stats/internal/table"
)

// Service receives validated requests and serves them
type Service interface {
	Data(ctx context.Context, req survey.DataRequest) (any, error)
	Calculate(ctx context.Context, req survey.CalcRequest) (*shaper.Result, error)
}

const (
	RouteData = "/v1/data/csv"
	RouteCalc = "/v1/calc/"
)

func Alive() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"API": "I'm alive"})
	}
}

// HandleData validates data query params and returns the loaded rows
func HandleData(log *slog.Logger, cfg config.Config, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logger.WithRoute(r.Context(), RouteData)

		code := http.StatusOK
		req, err := ParseDataRequest(r.URL.Query(), cfg)
		var out any
		if err == nil {
			out, err = svc.Data(ctx, req)
		}
		if err != nil {
			code = writeError(ctx, w, log, err)
		} else {
			writeJSON(w, code, out)
		}
		observability.ObserveHTTP(r.Method, RouteData, code, time.Since(start).Seconds())
	}
}

// HandleCalc validates calc query params and returns the nested statistics
func HandleCalc(log *slog.Logger, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logger.WithRoute(r.Context(), RouteCalc)

		code := http.StatusOK
		req, err := ParseCalcRequest(r.URL.Query())
		var res *shaper.Result
		if err == nil {
			res, err = svc.Calculate(ctx, req)
		}
		if err != nil {
			code = writeError(ctx, w, log, err)
		} else {
			writeJSON(w, code, res)
		}
		observability.ObserveHTTP(r.Method, RouteCalc, code, time.Since(start).Seconds())
	}
}

func ParseDataRequest(q url.Values, cfg config.Config) (survey.DataRequest, error) {
	files, opts, area, err := parseCommon(q)
	if err != nil {
		return survey.DataRequest{}, err
	}
	if opts.ConvertGeom, err = parseBool(q, "convert_geom"); err != nil {
		return survey.DataRequest{}, err
	}
	req := survey.DataRequest{
		Filenames: files,
		Load:      opts,
		Area:      area,
		Orient:    strings.TrimSpace(q.Get("orient")),
		H3Res:     -1,
	}
	if s := strings.TrimSpace(q.Get("skip_lines")); s != "" {
		if req.SkipLines, err = strconv.Atoi(s); err != nil {
			return survey.DataRequest{}, apperr.Param("skip_lines", "not an integer: %q", s)
		}
	}
	// h3_res without a value uses the configured resolution
	if q.Has("h3_res") {
		req.H3Res = cfg.DefaultH3Res
		if s := strings.TrimSpace(q.Get("h3_res")); s != "" {
			if req.H3Res, err = strconv.Atoi(s); err != nil {
				return survey.DataRequest{}, apperr.Param("h3_res", "not an integer: %q", s)
			}
		}
	}
	return req, nil
}

func ParseCalcRequest(q url.Values) (survey.CalcRequest, error) {
	files, opts, area, err := parseCommon(q)
	if err != nil {
		return survey.CalcRequest{}, err
	}
	if ext := strings.TrimSpace(q.Get("extension")); ext != "" {
		opts.Extension = ext
	}
	kinds, err := calc.ParseKinds(q.Get("calc"))
	if err != nil {
		return survey.CalcRequest{}, err
	}
	// exclude_index is accepted for compatibility and has no effect
	if _, err := parseBool(q, "exclude_index"); err != nil {
		return survey.CalcRequest{}, err
	}
	all, err := parseBool(q, "all_columns")
	if err != nil {
		return survey.CalcRequest{}, err
	}
	return survey.CalcRequest{
		Filenames: files,
		Load:      opts,
		Area:      area,
		Calc: calc.Request{
			Kinds:      kinds,
			Columns:    loader.SplitList(q.Get("calc_columns")),
			AggSpec:    q.Get("agg_columns"),
			AllColumns: all,
			AreaColumn: strings.TrimSpace(q.Get("area_column")),
		},
	}, nil
}

// parseCommon reads the parameters shared by both endpoints.
func parseCommon(q url.Values) ([]string, loader.Options, survey.Area, error) {
	files := loader.SplitList(q.Get("filenames"))
	if len(files) == 0 {
		return nil, loader.Options{}, survey.Area{}, apperr.Param("filenames", "missing required parameter: filenames")
	}

	opts := loader.Options{Drop: loader.DefaultDrop}
	if q.Has("drop_columns") {
		opts.Drop = loader.SplitList(q.Get("drop_columns"))
	}
	var err error
	if opts.MergeOn, err = loader.ParseMergeColumns(q.Get("merge_columns")); err != nil {
		return nil, loader.Options{}, survey.Area{}, err
	}
	if s := q.Get("columns"); s != "" {
		if opts.Directives, err = table.ParseDirectives(s); err != nil {
			return nil, loader.Options{}, survey.Area{}, apperr.Param("columns", "%w", err)
		}
	}

	area := survey.Area{CRS: geo.DefaultCRS(), LatLon: geo.DefaultLatLon}
	if s := strings.TrimSpace(q.Get("bbox")); s != "" {
		bb, err := geo.ParseBBox(s)
		if err != nil {
			return nil, loader.Options{}, survey.Area{}, err
		}
		area.BBox = &bb
	}
	if area.CRS, err = geo.ParseCRSPair(q.Get("crs")); err != nil {
		return nil, loader.Options{}, survey.Area{}, err
	}
	if s := q.Get("lat_lon_columns"); s != "" {
		ll := loader.SplitList(s)
		if len(ll) != 2 {
			return nil, loader.Options{}, survey.Area{}, apperr.Param("lat_lon_columns", "expected latitude,longitude, got %q", s)
		}
		area.LatLon = [2]string{ll[0], ll[1]}
	}
	return files, opts, area, nil
}

func parseBool(q url.Values, name string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(q.Get(name))) {
	case "", "false", "0", "no", "off":
		return false, nil
	case "true", "1", "yes", "on":
		return true, nil
	}
	return false, apperr.Param(name, "not a boolean: %q", q.Get(name))
}

// StatusFor maps a pipeline error to its HTTP status.
func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindParameter:
		return http.StatusBadRequest
	case apperr.KindSchema, apperr.KindClip:
		return http.StatusUnprocessableEntity
	case apperr.KindLoad:
		if errors.Is(err, storage.ErrNotFound) {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(ctx context.Context, w http.ResponseWriter, log *slog.Logger, err error) int {
	code := StatusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		log.ErrorContext(ctx, "request failed", "err", err)
		msg = "internal server error"
	} else {
		log.DebugContext(ctx, "request rejected", "status", code, "err", err)
	}
	writeJSON(w, code, map[string]string{"detail": msg})
	return code
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		code = http.StatusInternalServerError
		b = []byte(`{"detail":"encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(b)
}
