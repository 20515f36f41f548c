package router

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/mohammed-shakir/survey-stats/internal/core/apperr"
	"github.com/mohammed-shakir/survey-stats/internal/core/config"
	"github.com/mohammed-shakir/survey-stats/internal/shaper"
	"github.com/mohammed-shakir/survey-stats/internal/storage"
	"github.com/mohammed-shakir/survey-stats/internal/survey"
)

type fakeService struct {
	lastData survey.DataRequest
	lastCalc survey.CalcRequest
	err      error
}

func (f *fakeService) Data(_ context.Context, req survey.DataRequest) (any, error) {
	f.lastData = req
	if f.err != nil {
		return nil, f.err
	}
	return []int{1, 2}, nil
}

func (f *fakeService) Calculate(_ context.Context, req survey.CalcRequest) (*shaper.Result, error) {
	f.lastCalc = req
	if f.err != nil {
		return nil, f.err
	}
	m := shaper.NewMetrics().Set("Number", []any{2})
	return shaper.NewResult().Set("habitat", m), nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func get(t *testing.T, h http.HandlerFunc, path string, q url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.URL.RawQuery = q.Encode()
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func TestHandleCalc_SeamDispatch(t *testing.T) {
	svc := &fakeService{}
	q := url.Values{}
	q.Set("filenames", "haig-fras:hf2012:summary,haig-fras:hf2012:meta")
	q.Set("calc", "count,agg")
	q.Set("calc_columns", "habitat")
	q.Set("agg_columns", "density:,count:area_seabed_m2")

	rr := get(t, HandleCalc(discard(), svc), RouteCalc, q)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := rr.Body.String(); got != `{"habitat":{"Number":[2]}}` {
		t.Fatalf("body=%s", got)
	}
	got := svc.lastCalc
	if len(got.Filenames) != 2 || got.Calc.AggSpec != "density:,count:area_seabed_m2" || len(got.Calc.Kinds) != 2 {
		t.Fatalf("service did not receive parsed request: %+v", got)
	}
}

func TestHandleData_SeamDispatch(t *testing.T) {
	svc := &fakeService{}
	q := url.Values{}
	q.Set("filenames", "hf:meta")
	q.Set("orient", "split")
	q.Set("skip_lines", "-1")

	rr := get(t, HandleData(discard(), config.FromEnv(), svc), RouteData, q)
	if rr.Code != http.StatusOK || rr.Body.String() != "[1,2]" {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if svc.lastData.Orient != "split" || svc.lastData.SkipLines != -1 || svc.lastData.H3Res != -1 {
		t.Fatalf("parsed=%+v", svc.lastData)
	}
}

func TestHandlers_ErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{apperr.Param("agg", "agg_columns is required"), http.StatusBadRequest},
		{apperr.Schema("count", "column %q not found", "habitat"), http.StatusUnprocessableEntity},
		{apperr.Clip("clip", "column %q not found", "latitude"), http.StatusUnprocessableEntity},
		{apperr.Load("fetch", "a.csv: %w", storage.ErrNotFound), http.StatusNotFound},
		{apperr.Load("parse", "a.csv: bad quote"), http.StatusBadGateway},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	q := url.Values{}
	q.Set("filenames", "hf:meta")
	q.Set("calc_columns", "habitat")
	for _, c := range cases {
		rr := get(t, HandleCalc(discard(), &fakeService{err: c.err}), RouteCalc, q)
		if rr.Code != c.code {
			t.Fatalf("%v: status=%d want %d", c.err, rr.Code, c.code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
			t.Fatalf("content-type=%q", ct)
		}
	}
}

func TestHandleCalc_DetailBody(t *testing.T) {
	q := url.Values{}
	q.Set("calc_columns", "habitat")
	rr := get(t, HandleCalc(discard(), &fakeService{}), RouteCalc, q)
	want := `{"detail":"ParameterError: filenames: missing required parameter: filenames"}`
	if rr.Code != http.StatusBadRequest || rr.Body.String() != want {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestAlive(t *testing.T) {
	rr := httptest.NewRecorder()
	Alive()(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != `{"API":"I'm alive"}` {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
}
