// Package router holds the HTTP handlers of the lookup API.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/digipin-grid/internal/core/model"
	"github.com/mohammed-shakir/digipin-grid/internal/devices"
	"github.com/mohammed-shakir/digipin-grid/internal/digipin"
	"github.com/mohammed-shakir/digipin-grid/internal/hotness"
	mylog "github.com/mohammed-shakir/digipin-grid/internal/logger"
	"github.com/mohammed-shakir/digipin-grid/internal/lookupevents"
	gridmapper "github.com/mohammed-shakir/digipin-grid/internal/mapper/grid"
	h3mapper "github.com/mohammed-shakir/digipin-grid/internal/mapper/h3"
	"github.com/mohammed-shakir/digipin-grid/internal/share"
)

type DeviceReader interface {
	Get(ctx context.Context, deviceID string) (devices.Location, error)
	GetMany(ctx context.Context, ids []string) (map[string]devices.Location, error)
}

type HotTracker interface {
	Inc(area string)
	Top(n int) []hotness.Entry
}

type API struct {
	Logger   *slog.Logger
	Grid     *gridmapper.Mapper
	H3       *h3mapper.Mapper
	Share    *share.Service
	Devices  DeviceReader
	Hot      HotTracker
	Events   lookupevents.Publisher
	HotLevel int
	H3Res    int
}

func (a *API) Mount(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/encode", withOp("encode", a.Encode))
		r.Get("/decode", withOp("decode", a.Decode))
		r.Get("/cell", withOp("cell", a.Cell))
		r.Get("/cells", withOp("cells", a.Cells))
		r.Post("/share", withOp("share", a.CreateShare))
		r.Get("/share/{id}", withOp("share_info", a.ShareInfo))
		r.Get("/devices", withOp("device_locations", a.DeviceLocations))
		r.Get("/devices/{id}/location", withOp("device_location", a.DeviceLocation))
		r.Get("/hot", withOp("hot", a.HotAreas))
	})
	r.Get("/s/{id}", withOp("resolve_share", a.ResolveShare))
}

func withOp(op string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(w, r.WithContext(mylog.WithOp(r.Context(), op)))
	}
}

// served records a successful lookup toward hotness and the event stream.
func (a *API) served(op string, code string, c digipin.Coordinate) {
	area := hotness.Area(code, a.HotLevel)
	if a.Hot != nil {
		a.Hot.Inc(area)
	}
	if a.Events != nil {
		a.Events.Publish(lookupevents.Event{Op: op, Code: code, Area: area, Lat: c.Lat, Lon: c.Lon})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, digipin.ErrOutOfRegion), errors.Is(err, digipin.ErrReservedSymbol),
		errors.Is(err, gridmapper.ErrTooManyCells):
		return http.StatusUnprocessableEntity
	case errors.Is(err, digipin.ErrMalformedCode), errors.Is(err, digipin.ErrUnrecognizedSymbol):
		return http.StatusBadRequest
	case errors.Is(err, share.ErrNotFound), errors.Is(err, devices.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger().ErrorContext(r.Context(), "request failed", "err", err, "path", r.URL.Path)
		writeError(w, status, http.StatusText(status))
		return
	}
	writeError(w, status, err.Error())
}

func (a *API) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}
