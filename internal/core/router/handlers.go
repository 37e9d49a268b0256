package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/mohammed-shakir/digipin-grid/internal/core/model"
	"github.com/mohammed-shakir/digipin-grid/internal/core/observability"
	"github.com/mohammed-shakir/digipin-grid/internal/digipin"
	"github.com/mohammed-shakir/digipin-grid/internal/hotness"
	gridmapper "github.com/mohammed-shakir/digipin-grid/internal/mapper/grid"
)

const maxShareBody = 4 << 10

func (a *API) Encode(w http.ResponseWriter, r *http.Request) {
	lat, lon, err := parseLatLon(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	code, err := digipin.Encode(lat, lon)
	observability.ObserveDigipin("encode", err)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	b, _ := digipin.Bounds(string(code))
	a.served("encode", string(code), digipin.Coordinate{Lat: lat, Lon: lon})
	writeJSON(w, http.StatusOK, model.Location{Code: string(code), Lat: lat, Lon: lon, Bounds: &b})
}

func (a *API) Decode(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("code")
	if strings.TrimSpace(raw) == "" {
		writeError(w, http.StatusBadRequest, "missing required parameter: code")
		return
	}
	code, err := digipin.Normalize(raw)
	if err != nil {
		observability.ObserveDigipin("decode", err)
		a.fail(w, r, err)
		return
	}
	c, err := digipin.Decode(string(code))
	observability.ObserveDigipin("decode", err)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	b, _ := digipin.Bounds(string(code))
	a.served("decode", string(code), c)
	writeJSON(w, http.StatusOK, model.Location{Code: string(code), Lat: c.Lat, Lon: c.Lon, Bounds: &b})
}

// Cell returns the cell named by a 1 to 10 symbol prefix as a GeoJSON Feature.
func (a *API) Cell(w http.ResponseWriter, r *http.Request) {
	sym, err := digipin.NormalizePrefix(r.URL.Query().Get("code"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	b, err := digipin.Bounds(sym)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	center := b.Center()
	props := map[string]any{
		"code":   sym,
		"level":  len(sym),
		"center": []float64{center.Lon, center.Lat},
	}
	if len(sym) == digipin.Levels {
		props["code"] = digipin.Format(sym)
	}

	if r.URL.Query().Has("h3res") && a.H3 != nil {
		res, err := intParam(r, "h3res", a.H3Res, 0, 15)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		hex, err := a.H3.CellAt(center.Lat, center.Lon, res)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		props["h3"] = hex
		props["h3res"] = res
		if r.URL.Query().Get("cover") == "true" {
			cover, err := a.H3.CellsForCode(sym, res)
			if err != nil {
				a.fail(w, r, err)
				return
			}
			props["h3_cover"] = cover
		}
	}

	f := &geojson.Feature{
		ID:         sym,
		Geometry:   cellPolygon(b),
		Properties: props,
	}
	body, err := json.Marshal(f)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.served("cell", sym, center)
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(body)
}

func cellPolygon(b digipin.Box) *geom.Polygon {
	flat := []float64{
		b.MinLon, b.MinLat,
		b.MaxLon, b.MinLat,
		b.MaxLon, b.MaxLat,
		b.MinLon, b.MaxLat,
		b.MinLon, b.MinLat,
	}
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
}

func (a *API) Cells(w http.ResponseWriter, r *http.Request) {
	q, warn, err := ParseCellsQuery(r)
	if warn != "" {
		a.logger().WarnContext(r.Context(), warn)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if a.Grid == nil {
		writeError(w, http.StatusServiceUnavailable, "grid mapper not configured")
		return
	}

	var cells model.Cells
	switch {
	case q.Polygon != nil:
		cells, err = a.Grid.CellsForPolygon(*q.Polygon, q.Level)
	case q.BBox != nil:
		cells, err = a.Grid.CellsForBBox(*q.BBox, q.Level)
	default:
		if q.Level < len(q.Parent) {
			var parent string
			parent, err = a.Grid.ToParent(q.Parent, q.Level)
			cells = model.Cells{parent}
		} else {
			cells, err = a.Grid.ToChildren(q.Parent, q.Level)
		}
	}
	if err != nil {
		if errors.Is(err, gridmapper.ErrTooManyCells) || errors.Is(err, digipin.ErrMalformedCode) ||
			errors.Is(err, digipin.ErrUnrecognizedSymbol) {
			a.fail(w, r, err)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, model.CellsResponse{Level: q.Level, Count: len(cells), Cells: cells})
}

func (a *API) CreateShare(w http.ResponseWriter, r *http.Request) {
	if a.Share == nil {
		writeError(w, http.StatusServiceUnavailable, "sharing not configured")
		return
	}
	var req model.ShareRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxShareBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	res, err := a.Share.Create(r.Context(), req.Code)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.served("share", res.Code, digipin.Coordinate{Lat: res.Lat, Lon: res.Lon})
	writeJSON(w, http.StatusCreated, model.ShareResponse{
		ID:      res.ID,
		Code:    res.Code,
		Text:    res.Text,
		MapsURL: res.MapsURL(),
		Link:    res.Link,
		Tier:    string(res.Decision.Tier),
		TTLSec:  int64(res.Decision.TTL.Seconds()),
	})
}

// ShareInfo describes a share link without following it.
func (a *API) ShareInfo(w http.ResponseWriter, r *http.Request) {
	if a.Share == nil {
		writeError(w, http.StatusServiceUnavailable, "sharing not configured")
		return
	}
	rec, left, err := a.Share.Info(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ShareInfo{
		ID:        rec.ID,
		Code:      rec.Code,
		Lat:       rec.Lat,
		Lon:       rec.Lon,
		Tier:      rec.Tier,
		MapsURL:   rec.MapsURL(),
		CreatedAt: rec.CreatedAt,
		TTLSec:    int64(left.Seconds()),
	})
}

// ResolveShare redirects a short link to its map search.
func (a *API) ResolveShare(w http.ResponseWriter, r *http.Request) {
	if a.Share == nil {
		writeError(w, http.StatusServiceUnavailable, "sharing not configured")
		return
	}
	rec, err := a.Share.Resolve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	http.Redirect(w, r, rec.MapsURL(), http.StatusFound)
}

func (a *API) DeviceLocation(w http.ResponseWriter, r *http.Request) {
	if a.Devices == nil {
		writeError(w, http.StatusServiceUnavailable, "device store not configured")
		return
	}
	loc, err := a.Devices.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

const maxDeviceBatch = 100

// DeviceLocations looks up several devices in one round trip; ids without a
// stored location are listed under "missing".
func (a *API) DeviceLocations(w http.ResponseWriter, r *http.Request) {
	if a.Devices == nil {
		writeError(w, http.StatusServiceUnavailable, "device store not configured")
		return
	}
	var ids []string
	seen := map[string]bool{}
	for p := range strings.SplitSeq(r.URL.Query().Get("ids"), ",") {
		if id := strings.TrimSpace(p); id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	switch {
	case len(ids) == 0:
		writeError(w, http.StatusBadRequest, "ids is required")
		return
	case len(ids) > maxDeviceBatch:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d ids per request", maxDeviceBatch))
		return
	}

	found, err := a.Devices.GetMany(r.Context(), ids)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	missing := []string{}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"locations": found, "missing": missing})
}

func (a *API) HotAreas(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "n", 10, 1, 100)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	top := []hotness.Entry{}
	if a.Hot != nil {
		top = append(top, a.Hot.Top(n)...)
	}
	writeJSON(w, http.StatusOK, map[string]any{"level": a.HotLevel, "areas": top})
}
