// Package share builds shareable messages for codes and keeps short links to them.
package share

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mohammed-shakir/digipin-grid/internal/cache"
	"github.com/mohammed-shakir/digipin-grid/internal/cache/keys"
	"github.com/mohammed-shakir/digipin-grid/internal/decision"
	"github.com/mohammed-shakir/digipin-grid/internal/digipin"
)

// DefaultCenter is where a map opens before any code or location is known.
var DefaultCenter = digipin.Coordinate{Lat: 23.0, Lon: 78.0}

var ErrNotFound = errors.New("share link not found")

const mapsSearch = "https://www.google.com/maps/search/"

func formatDeg(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// MapsURL links to a map search for c.
func MapsURL(c digipin.Coordinate) string {
	return mapsSearch + "?api=1&query=" + formatDeg(c.Lat) + "," + formatDeg(c.Lon)
}

// Message is the plain-text share body for code located at c.
func Message(code digipin.Code, c digipin.Coordinate) string {
	return "DigiPin: " + string(code) + "\n\nMaps Link: " + MapsURL(c)
}

// Compose normalises input, decodes it and returns the share body.
func Compose(input string) (digipin.Code, digipin.Coordinate, string, error) {
	code, err := digipin.Normalize(input)
	if err != nil {
		return digipin.Invalid, digipin.InvalidCoordinate, "", err
	}
	c, err := digipin.Decode(string(code))
	if err != nil {
		return digipin.Invalid, digipin.InvalidCoordinate, "", err
	}
	return code, c, Message(code, c), nil
}

type Record struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Tier      string    `json:"tier,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (r Record) MapsURL() string {
	return MapsURL(digipin.Coordinate{Lat: r.Lat, Lon: r.Lon})
}

type Store struct {
	kv cache.Interface
}

func NewStore(kv cache.Interface) *Store { return &Store{kv: kv} }

func (s *Store) Put(ctx context.Context, rec Record, ttl time.Duration) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal share %s: %w", rec.ID, err)
	}
	if err := s.kv.Set(ctx, keys.ShareKey(rec.ID), b, ttl); err != nil {
		return fmt.Errorf("store share %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	b, ok, err := s.kv.Get(ctx, keys.ShareKey(id))
	if err != nil {
		return Record{}, fmt.Errorf("load share %s: %w", id, err)
	}
	if !ok {
		return Record{}, fmt.Errorf("share %s: %w", id, ErrNotFound)
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return Record{}, fmt.Errorf("decode share %s: %w", id, err)
	}
	return rec, nil
}

// Remaining reports how long a share link has left. ok is false when the
// link is gone; a link without expiry reports 0.
func (s *Store) Remaining(ctx context.Context, id string) (time.Duration, bool, error) {
	d, err := s.kv.TTL(ctx, keys.ShareKey(id))
	if err != nil {
		return 0, false, fmt.Errorf("ttl share %s: %w", id, err)
	}
	switch d {
	case cache.TTLMissing:
		return 0, false, nil
	case cache.TTLPersistent:
		return 0, true, nil
	}
	return d, true, nil
}

type Result struct {
	Record
	Text     string
	Link     string
	Decision decision.Decision
}

// Service creates share links whose lifetime follows the area's hotness.
type Service struct {
	Store   *Store
	Policy  decision.Interface
	Salt    string
	BaseURL string

	now func() time.Time
}

func NewService(store *Store, policy decision.Interface, salt, baseURL string) *Service {
	return &Service{Store: store, Policy: policy, Salt: salt, BaseURL: baseURL, now: time.Now}
}

func (s *Service) Create(ctx context.Context, input string) (Result, error) {
	code, c, text, err := Compose(input)
	if err != nil {
		return Result{}, err
	}
	d := s.Policy.Decide(string(code))
	rec := Record{
		ID:        keys.ShareID(string(code), s.Salt),
		Code:      string(code),
		Lat:       c.Lat,
		Lon:       c.Lon,
		Tier:      string(d.Tier),
		CreatedAt: s.now().UTC(),
	}
	if err := s.Store.Put(ctx, rec, d.TTL); err != nil {
		return Result{}, err
	}
	return Result{Record: rec, Text: text, Link: s.BaseURL + "/s/" + rec.ID, Decision: d}, nil
}

func (s *Service) Resolve(ctx context.Context, id string) (Record, error) {
	return s.Store.Get(ctx, id)
}

// Info resolves a share link together with its remaining lifetime.
func (s *Service) Info(ctx context.Context, id string) (Record, time.Duration, error) {
	rec, err := s.Store.Get(ctx, id)
	if err != nil {
		return Record{}, 0, err
	}
	left, ok, err := s.Store.Remaining(ctx, id)
	if err != nil {
		return Record{}, 0, err
	}
	if !ok {
		return Record{}, 0, fmt.Errorf("share %s: %w", id, ErrNotFound)
	}
	return rec, left, nil
}
