// Package geo clips survey rows to a bounding box and derives point geometry.
package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/mohammed-shakir/survey-stats/internal/core/apperr"
)

// BBox is xmin,ymin,xmax,ymax in the source CRS of the request.
type BBox struct {
	XMin, YMin, XMax, YMax float64
}

func (b BBox) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{b.XMin, b.YMin}, Max: orb.Point{b.XMax, b.YMax}}
}

func ParseBBox(s string) (BBox, error) {
	bb, err := parseBBox(s)
	if err != nil {
		return BBox{}, apperr.Param("bbox", "%w", err)
	}
	return bb, nil
}

func parseBBox(s string) (BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, errors.New("expected 4 comma-separated values: xmin,ymin,xmax,ymax")
	}
	xMin, err := parseFloat(parts[0])
	if err != nil {
		return BBox{}, fmt.Errorf("xmin: %w", err)
	}
	yMin, err := parseFloat(parts[1])
	if err != nil {
		return BBox{}, fmt.Errorf("ymin: %w", err)
	}
	xMax, err := parseFloat(parts[2])
	if err != nil {
		return BBox{}, fmt.Errorf("xmax: %w", err)
	}
	yMax, err := parseFloat(parts[3])
	if err != nil {
		return BBox{}, fmt.Errorf("ymax: %w", err)
	}
	if xMax < xMin || yMax < yMin {
		return BBox{}, errors.New("coordinates must satisfy xmax>=xmin and ymax>=ymin")
	}
	return BBox{XMin: xMin, YMin: yMin, XMax: xMax, YMax: yMax}, nil
}

func parseFloat(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("parse float: %w", err)
	}
	return f, nil
}

// CRS is a normalized EPSG code.
type CRS string

const (
	WGS84       CRS = "EPSG:4326"
	WebMercator CRS = "EPSG:3857"
)

var crsAliases = map[string]CRS{
	"EPSG:4326":   WGS84,
	"EPSG:3857":   WebMercator,
	"EPSG:900913": WebMercator,
	"EPSG:102100": WebMercator,
}

// CRSPair names the CRS the bbox is written in and the CRS clipping runs in.
type CRSPair struct {
	Source, Dest CRS
}

func DefaultCRS() CRSPair { return CRSPair{Source: WGS84, Dest: WGS84} }

// ParseCRSPair reads "source[,destination]"; blank means EPSG:4326 for both.
func ParseCRSPair(s string) (CRSPair, error) {
	out := DefaultCRS()
	s = strings.TrimSpace(s)
	if s == "" {
		return out, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) > 2 {
		return CRSPair{}, apperr.Param("crs", "expected source[,destination], got %q", s)
	}
	src, err := lookupCRS(parts[0])
	if err != nil {
		return CRSPair{}, err
	}
	out.Source = src
	if len(parts) == 2 {
		if out.Dest, err = lookupCRS(parts[1]); err != nil {
			return CRSPair{}, err
		}
	}
	return out, nil
}

func lookupCRS(s string) (CRS, error) {
	c, ok := crsAliases[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return "", apperr.Param("crs", "unsupported CRS %q (use EPSG:4326 or EPSG:3857)", strings.TrimSpace(s))
	}
	return c, nil
}

// transform maps a point between the supported systems.
func transform(p orb.Point, from, to CRS) orb.Point {
	switch {
	case from == to:
		return p
	case from == WGS84 && to == WebMercator:
		return project.Point(p, project.WGS84.ToMercator)
	default:
		return project.Point(p, project.Mercator.ToWGS84)
	}
}

// destBound returns the bbox expressed in the destination CRS.
func (c CRSPair) destBound(b BBox) orb.Bound {
	if c.Source == c.Dest {
		return b.Bound()
	}
	lo := transform(orb.Point{b.XMin, b.YMin}, c.Source, c.Dest)
	hi := transform(orb.Point{b.XMax, b.YMax}, c.Source, c.Dest)
	return orb.Bound{Min: lo, Max: lo}.Extend(hi)
}
