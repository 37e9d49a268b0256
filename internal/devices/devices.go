// Package devices keeps the last known location of each device with its code.
package devices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mohammed-shakir/digipin-grid/internal/cache"
	"github.com/mohammed-shakir/digipin-grid/internal/cache/keys"
)

var ErrNotFound = errors.New("device location not found")

type Location struct {
	DeviceID string    `json:"device_id"`
	Code     string    `json:"code"`
	Lat      float64   `json:"lat"`
	Lon      float64   `json:"lon"`
	Version  int64     `json:"version"`
	Source   string    `json:"source,omitempty"`
	TS       time.Time `json:"ts"`
}

type Store struct {
	kv  cache.Interface
	ttl time.Duration
}

func NewStore(kv cache.Interface, ttl time.Duration) *Store {
	return &Store{kv: kv, ttl: ttl}
}

// Put writes loc unless the stored version is the same or newer. The
// read-then-write is not atomic; callers serialise per device.
func (s *Store) Put(ctx context.Context, loc Location) (bool, error) {
	if loc.DeviceID == "" {
		return false, errors.New("device id is required")
	}
	cur, err := s.Get(ctx, loc.DeviceID)
	switch {
	case err == nil:
		if cur.Version >= loc.Version {
			return false, nil
		}
	case !errors.Is(err, ErrNotFound):
		return false, err
	}

	b, err := json.Marshal(loc)
	if err != nil {
		return false, fmt.Errorf("marshal device %s: %w", loc.DeviceID, err)
	}
	if err := s.kv.Set(ctx, keys.DeviceKey(loc.DeviceID), b, s.ttl); err != nil {
		return false, fmt.Errorf("store device %s: %w", loc.DeviceID, err)
	}
	return true, nil
}

func (s *Store) Get(ctx context.Context, deviceID string) (Location, error) {
	b, ok, err := s.kv.Get(ctx, keys.DeviceKey(deviceID))
	if err != nil {
		return Location{}, fmt.Errorf("load device %s: %w", deviceID, err)
	}
	if !ok {
		return Location{}, fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
	}
	var loc Location
	if err := json.Unmarshal(b, &loc); err != nil {
		return Location{}, fmt.Errorf("decode device %s: %w", deviceID, err)
	}
	return loc, nil
}

// GetMany returns the devices that have a stored location.
func (s *Store) GetMany(ctx context.Context, ids []string) (map[string]Location, error) {
	ks := make([]string, len(ids))
	byKey := make(map[string]string, len(ids))
	for i, id := range ids {
		ks[i] = keys.DeviceKey(id)
		byKey[ks[i]] = id
	}
	raw, err := s.kv.MGet(ctx, ks)
	if err != nil {
		return nil, fmt.Errorf("load %d devices: %w", len(ids), err)
	}
	out := make(map[string]Location, len(raw))
	for k, b := range raw {
		var loc Location
		if err := json.Unmarshal(b, &loc); err != nil {
			return nil, fmt.Errorf("decode device %s: %w", byKey[k], err)
		}
		out[byKey[k]] = loc
	}
	return out, nil
}
