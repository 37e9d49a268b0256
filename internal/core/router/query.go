package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/mohammed-shakir/digipin-grid/internal/core/model"
	"github.com/mohammed-shakir/digipin-grid/internal/digipin"
)

func parseBBOX(bboxParam string) (model.BBox, error) {
	parts := strings.Split(bboxParam, ",")
	if len(parts) != 4 && len(parts) != 5 {
		return model.BBox{}, errors.New("expected x1,y1,x2,y2[,EPSG:4326]")
	}
	vals := make([]float64, 4)
	for i, name := range []string{"x1", "y1", "x2", "y2"} {
		v, err := parseFloat(parts[i])
		if err != nil {
			return model.BBox{}, fmt.Errorf("%s: %w", name, err)
		}
		vals[i] = v
	}
	xMin, yMin, xMax, yMax := vals[0], vals[1], vals[2], vals[3]

	srid := "EPSG:4326"
	if len(parts) == 5 {
		srid = strings.ToUpper(strings.TrimSpace(parts[4]))
	}
	if srid != "EPSG:4326" {
		return model.BBox{}, fmt.Errorf("only EPSG:4326 is supported (got %q)", srid)
	}

	if !(xMin >= -180 && xMin <= 180 && xMax >= -180 && xMax <= 180) {
		return model.BBox{}, errors.New("longitude must be in [-180,180]")
	}
	if !(yMin >= -90 && yMin <= 90 && yMax >= -90 && yMax <= 90) {
		return model.BBox{}, errors.New("latitude must be in [-90,90]")
	}
	if xMax < xMin || yMax < yMin {
		return model.BBox{}, errors.New("coordinates must satisfy x2>=x1 and y2>=y1")
	}
	return model.BBox{X1: xMin, Y1: yMin, X2: xMax, Y2: yMax, SRID: srid}, nil
}

func parseFloat(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("parse float: %w", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("parse float: not a finite number")
	}
	return f, nil
}

// parsePolygon accepts a GeoJSON Polygon or MultiPolygon, the same in WKT, or
// a bare outer ring "lon lat,lon lat,...". Everything is carried as GeoJSON.
func parsePolygon(raw string) (model.Polygon, error) {
	raw = strings.TrimSpace(raw)
	switch up := strings.ToUpper(raw); {
	case strings.HasPrefix(raw, "{"):
		return parseGeoJSONPolygon(raw)
	case strings.HasPrefix(up, "POLYGON"), strings.HasPrefix(up, "MULTIPOLYGON"):
		g, err := wkt.Unmarshal(raw)
		if err != nil {
			return model.Polygon{}, fmt.Errorf("parse wkt: %w", err)
		}
		return polygonFromGeom(g)
	default:
		p, err := parseRing(raw)
		if err != nil {
			return model.Polygon{}, err
		}
		return polygonFromGeom(p)
	}
}

// parseRing reads "lon lat,lon lat,..." and closes the ring if needed.
func parseRing(raw string) (*geom.Polygon, error) {
	pts := strings.Split(raw, ",")
	flat := make([]float64, 0, 2*len(pts)+2)
	for i, pt := range pts {
		f := strings.Fields(pt)
		if len(f) != 2 {
			return nil, fmt.Errorf("ring point %d: expected \"lon lat\"", i)
		}
		lon, err := parseFloat(f[0])
		if err != nil {
			return nil, fmt.Errorf("ring point %d lon: %w", i, err)
		}
		lat, err := parseFloat(f[1])
		if err != nil {
			return nil, fmt.Errorf("ring point %d lat: %w", i, err)
		}
		flat = append(flat, lon, lat)
	}
	if n := len(flat); flat[0] != flat[n-2] || flat[1] != flat[n-1] {
		flat = append(flat, flat[0], flat[1])
	}
	if len(flat) < 8 {
		return nil, errors.New("ring needs at least 3 distinct points")
	}
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}), nil
}

func polygonFromGeom(g geom.T) (model.Polygon, error) {
	switch g.(type) {
	case *geom.Polygon, *geom.MultiPolygon:
	default:
		return model.Polygon{}, fmt.Errorf("unsupported geometry %T (must be Polygon or MultiPolygon)", g)
	}
	b, err := geojson.Marshal(g)
	if err != nil {
		return model.Polygon{}, fmt.Errorf("encode polygon: %w", err)
	}
	return model.Polygon{GeoJSON: string(b)}, nil
}

func parseGeoJSONPolygon(raw string) (model.Polygon, error) {
	var tmp struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(raw), &tmp); err != nil {
		return model.Polygon{}, fmt.Errorf("parse json: %w", err)
	}
	t := strings.TrimSpace(tmp.Type)
	switch t {
	case "Polygon", "MultiPolygon":
		return model.Polygon{GeoJSON: raw}, nil
	default:
		return model.Polygon{}, fmt.Errorf(`unsupported GeoJSON "type": %q (must be Polygon or MultiPolygon)`, t)
	}
}

func parseLatLon(r *http.Request) (lat, lon float64, err error) {
	q := r.URL.Query()
	if q.Get("lat") == "" || q.Get("lon") == "" {
		return 0, 0, errors.New("missing required parameters: lat, lon")
	}
	if lat, err = parseFloat(q.Get("lat")); err != nil {
		return 0, 0, fmt.Errorf("lat: %w", err)
	}
	if lon, err = parseFloat(q.Get("lon")); err != nil {
		return 0, 0, fmt.Errorf("lon: %w", err)
	}
	return lat, lon, nil
}

// intParam reads an optional integer in [lo,hi].
func intParam(r *http.Request, name string, def, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%s must be in [%d,%d]", name, lo, hi)
	}
	return n, nil
}

// CellsQuery selects cells by polygon, bbox or parent code, in that order.
type CellsQuery struct {
	Level   int
	BBox    *model.BBox
	Polygon *model.Polygon
	Parent  string
}

func ParseCellsQuery(r *http.Request) (CellsQuery, string, error) {
	var warn string
	q := r.URL.Query()
	rawBBox := strings.TrimSpace(q.Get("bbox"))
	rawPoly := strings.TrimSpace(q.Get("polygon"))
	rawParent := strings.TrimSpace(q.Get("parent"))

	if rawBBox != "" && rawPoly != "" {
		warn = "both bbox and polygon supplied; preferring polygon"
		rawBBox = ""
	}

	var out CellsQuery
	switch {
	case rawPoly != "":
		p, err := parsePolygon(rawPoly)
		if err != nil {
			return CellsQuery{}, warn, fmt.Errorf("invalid polygon: %w", err)
		}
		out.Polygon = &p
	case rawBBox != "":
		bb, err := parseBBOX(rawBBox)
		if err != nil {
			return CellsQuery{}, warn, fmt.Errorf("invalid bbox: %w", err)
		}
		out.BBox = &bb
	case rawParent != "":
		sym, err := digipin.NormalizePrefix(rawParent)
		if err != nil {
			return CellsQuery{}, warn, fmt.Errorf("invalid parent: %w", err)
		}
		out.Parent = sym
	default:
		return CellsQuery{}, "", errors.New("one of bbox, polygon or parent is required")
	}

	def := 4
	if out.Parent != "" {
		def = min(len(out.Parent)+1, digipin.Levels)
	}
	level, err := intParam(r, "level", def, 1, digipin.Levels)
	if err != nil {
		return CellsQuery{}, warn, err
	}
	out.Level = level
	return out, warn, nil
}
