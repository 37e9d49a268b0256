// Package actions turns user commands (search, share, locate) into map actions.
// Commands go through a single channel and are handled one at a time.
package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohammed-shakir/digipin-grid/internal/devices"
	"github.com/mohammed-shakir/digipin-grid/internal/digipin"
	"github.com/mohammed-shakir/digipin-grid/internal/share"
)

type Command interface{ command() }

// Search encodes a coordinate.
type Search struct{ Lat, Lon float64 }

// SearchCode decodes a (possibly untidy) code.
type SearchCode struct{ Code string }

type Share struct{ Code string }

// GoToMyLocation resolves a device's last known location.
type GoToMyLocation struct{ DeviceID string }

func (Search) command()         {}
func (SearchCode) command()     {}
func (Share) command()          {}
func (GoToMyLocation) command() {}

type Kind string

const (
	KindCode       Kind = "code"
	KindCoordinate Kind = "coordinate"
	KindShare      Kind = "share"
	KindError      Kind = "error"
)

type MapAction struct {
	Kind   Kind
	Code   digipin.Code
	Center digipin.Coordinate
	Text   string
	Err    error
}

type LocationSource interface {
	Get(ctx context.Context, deviceID string) (devices.Location, error)
}

var ErrNoLocationSource = errors.New("actions: no location source")

// Handler maps commands to actions. Locations may be nil.
type Handler struct {
	Locations LocationSource
}

func (h Handler) Handle(ctx context.Context, cmd Command) MapAction {
	switch c := cmd.(type) {
	case Search:
		code, err := digipin.Encode(c.Lat, c.Lon)
		if err != nil {
			return failed(err)
		}
		return MapAction{Kind: KindCode, Code: code, Center: digipin.Coordinate{Lat: c.Lat, Lon: c.Lon}}
	case SearchCode:
		code, err := digipin.Normalize(c.Code)
		if err != nil {
			return failed(err)
		}
		center, err := digipin.Decode(string(code))
		if err != nil {
			return failed(err)
		}
		return MapAction{Kind: KindCoordinate, Code: code, Center: center}
	case Share:
		code, center, text, err := share.Compose(c.Code)
		if err != nil {
			return failed(err)
		}
		return MapAction{Kind: KindShare, Code: code, Center: center, Text: text}
	case GoToMyLocation:
		if h.Locations == nil {
			return failed(ErrNoLocationSource)
		}
		loc, err := h.Locations.Get(ctx, c.DeviceID)
		if err != nil {
			return failed(fmt.Errorf("locate %q: %w", c.DeviceID, err))
		}
		return MapAction{
			Kind:   KindCode,
			Code:   digipin.Code(loc.Code),
			Center: digipin.Coordinate{Lat: loc.Lat, Lon: loc.Lon},
		}
	default:
		return failed(fmt.Errorf("actions: unknown command %T", cmd))
	}
}

func failed(err error) MapAction { return MapAction{Kind: KindError, Err: err} }

// Bus owns the command channel. Results are delivered in command order.
type Bus struct {
	h       Handler
	cmds    chan Command
	results chan MapAction
}

func NewBus(h Handler, buffer int) *Bus {
	if buffer < 0 {
		buffer = 0
	}
	return &Bus{h: h, cmds: make(chan Command, buffer), results: make(chan MapAction, buffer)}
}

// Send queues cmd, blocking until there is room or ctx ends.
func (b *Bus) Send(ctx context.Context, cmd Command) error {
	select {
	case b.cmds <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bus) Results() <-chan MapAction { return b.results }

// Run handles commands until ctx ends, then closes Results.
func (b *Bus) Run(ctx context.Context) error {
	defer close(b.results)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-b.cmds:
			act := b.h.Handle(ctx, cmd)
			select {
			case b.results <- act:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
