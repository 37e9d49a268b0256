// Package ingest defines the device location events fed in from Kafka.
package ingest

import (
	"errors"
	"math"
	"strings"
	"time"
)

// LocationEvent is one position report. Version orders reports per device.
type LocationEvent struct {
	DeviceID string    `json:"device_id"`
	Lat      float64   `json:"lat"`
	Lon      float64   `json:"lon"`
	Version  int64     `json:"version"`
	TS       time.Time `json:"ts"`
	Source   string    `json:"source,omitempty"`
}

// Validate checks shape only; a valid event may still fall outside the grid.
func (e LocationEvent) Validate() error {
	if strings.TrimSpace(e.DeviceID) == "" {
		return errors.New("device_id is required")
	}
	if e.Version <= 0 {
		return errors.New("version must be positive")
	}
	if e.TS.IsZero() {
		return errors.New("ts is required")
	}
	if math.IsNaN(e.Lat) || e.Lat < -90 || e.Lat > 90 {
		return errors.New("lat out of range")
	}
	if math.IsNaN(e.Lon) || e.Lon < -180 || e.Lon > 180 {
		return errors.New("lon out of range")
	}
	return nil
}
