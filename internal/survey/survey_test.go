package survey

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/mohammed-shakir/survey-stats/internal/calc"
	"github.com/mohammed-shakir/survey-stats/internal/core/apperr"
	"github.com/mohammed-shakir/survey-stats/internal/geo"
	"github.com/mohammed-shakir/survey-stats/internal/loader"
	"github.com/mohammed-shakir/survey-stats/internal/storage"
)

func newService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"hf/meta.csv": "Unnamed: 0,filename,latitude,longitude,habitat\n" +
			"0,f0,50,-7,sand\n1,f1,51,-6,rock\n2,f2,52,-5,sand\n",
		"hf/counts.csv": "filename,a\nf0,3\nf1,0\nf2,1\n",
	}
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	d, err := storage.NewDir(dir)
	if err != nil {
		t.Fatalf("dir: %v", err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(loader.New(d, log), calc.NewEngine(calc.OrganismSets{{"a"}}, log), log)
}

func area(bb *geo.BBox) Area {
	return Area{BBox: bb, CRS: geo.DefaultCRS(), LatLon: geo.DefaultLatLon}
}

func dataReq(bb *geo.BBox) DataRequest {
	return DataRequest{
		Filenames: []string{"hf:meta", "hf:counts"},
		Load:      loader.Options{Drop: loader.DefaultDrop},
		Area:      area(bb),
		H3Res:     -1,
	}
}

func encode(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestData_ClipThenSkip(t *testing.T) {
	s := newService(t)
	req := dataReq(&geo.BBox{XMin: -6.5, YMin: 50.5, XMax: -4.5, YMax: 52.5})
	req.SkipLines = 1

	out, err := s.Data(context.Background(), req)
	if err != nil {
		t.Fatalf("data: %v", err)
	}
	want := `[{"filename":"f2","latitude":52,"longitude":-5,"habitat":"sand","a":1}]`
	if got := encode(t, out); got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestData_Orientation(t *testing.T) {
	s := newService(t)
	req := dataReq(nil)
	req.Orient = "list"
	out, err := s.Data(context.Background(), req)
	if err != nil {
		t.Fatalf("data: %v", err)
	}
	if got := encode(t, out); !strings.HasPrefix(got, `{"filename":["f0","f1","f2"]`) {
		t.Fatalf("got %s", got)
	}

	req.Orient = "table"
	if _, err := s.Data(context.Background(), req); !apperr.Is(err, apperr.KindParameter) {
		t.Fatalf("want ParameterError, got %v", err)
	}
}

func TestData_ConvertGeom(t *testing.T) {
	s := newService(t)
	req := dataReq(&geo.BBox{XMin: -7, YMin: 50, XMax: -6, YMax: 51})
	req.Load.ConvertGeom = true

	out, err := s.Data(context.Background(), req)
	if err != nil {
		t.Fatalf("data: %v", err)
	}
	got := encode(t, out)
	if !strings.HasPrefix(got, `{"type":"FeatureCollection"`) {
		t.Fatalf("got %s", got)
	}
	if strings.Contains(got, `"latitude"`) || strings.Count(got, `"Feature"`) != 2 {
		t.Fatalf("unexpected features: %s", got)
	}
}

func TestData_H3(t *testing.T) {
	s := newService(t)
	req := dataReq(nil)
	req.H3Res = 6
	out, err := s.Data(context.Background(), req)
	if err != nil {
		t.Fatalf("data: %v", err)
	}
	if got := encode(t, out); strings.Count(got, `"h3_cell":"86`) != 3 {
		t.Fatalf("got %s", got)
	}
}

func TestCalculate_CountNarrowsWithBBox(t *testing.T) {
	s := newService(t)
	req := CalcRequest{
		Filenames: []string{"hf:meta", "hf:counts"},
		Load:      loader.Options{Drop: loader.DefaultDrop},
		Calc:      calc.Request{Kinds: []calc.Kind{calc.KindCount}, Columns: []string{"habitat"}},
		Area:      area(nil),
	}
	res, err := s.Calculate(context.Background(), req)
	if err != nil {
		t.Fatalf("calc: %v", err)
	}
	if got := encode(t, res); got != `{"habitat":{"Number":[2]}}` {
		t.Fatalf("got %s", got)
	}

	req.Area = area(&geo.BBox{XMin: -5.5, YMin: 51.5, XMax: -4.5, YMax: 52.5})
	res, err = s.Calculate(context.Background(), req)
	if err != nil {
		t.Fatalf("calc: %v", err)
	}
	if got := encode(t, res); got != `{"habitat":{"Number":[1]}}` {
		t.Fatalf("got %s", got)
	}
}

func TestCalculate_MissingFile(t *testing.T) {
	s := newService(t)
	_, err := s.Calculate(context.Background(), CalcRequest{
		Filenames: []string{"hf:nope"},
		Calc:      calc.Request{Columns: []string{"habitat"}},
		Area:      area(nil),
	})
	if !apperr.Is(err, apperr.KindLoad) || !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want LoadError wrapping ErrNotFound, got %v", err)
	}
}

func TestCalculate_ClipNeedsCoordinates(t *testing.T) {
	s := newService(t)
	a := area(&geo.BBox{XMin: 0, YMin: 0, XMax: 1, YMax: 1})
	a.LatLon = [2]string{"lat", "lon"}
	_, err := s.Calculate(context.Background(), CalcRequest{
		Filenames: []string{"hf:meta"},
		Calc:      calc.Request{Columns: []string{"habitat"}},
		Area:      a,
	})
	if !apperr.Is(err, apperr.KindClip) {
		t.Fatalf("want ClipError, got %v", err)
	}
}
