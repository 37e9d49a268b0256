package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/digipin-grid/internal/digipin"
)

type Point struct {
	ID  string
	Lat float64
	Lon float64
}

// makePoints mixes points clustered around a few cities with points spread
// over the whole grid.
func makePoints(count int, r *rand.Rand) []Point {
	centers := []Point{
		{ID: "delhi", Lat: 28.6139, Lon: 77.2090},
		{ID: "mumbai", Lat: 19.0760, Lon: 72.8777},
		{ID: "bengaluru", Lat: 12.9716, Lon: 77.5946},
		{ID: "kolkata", Lat: 22.5726, Lon: 88.3639},
	}
	points := make([]Point, 0, count)

	hot := int(math.Max(8, float64(count/4)))
	for i := 0; i < hot && len(points) < count; i++ {
		c := centers[i%len(centers)]
		dLat, dLon := (r.Float64()-0.5)*0.2, (r.Float64()-0.5)*0.2
		points = append(points, Point{ID: fmt.Sprintf("%s-%d", c.ID, i), Lat: c.Lat + dLat, Lon: c.Lon + dLon})
	}

	reg := digipin.Region
	for len(points) < count {
		lat := reg.MinLat + r.Float64()*(reg.MaxLat-reg.MinLat)
		lon := reg.MinLon + r.Float64()*(reg.MaxLon-reg.MinLon)
		points = append(points, Point{ID: fmt.Sprintf("p-%d", len(points)), Lat: lat, Lon: lon})
	}
	return points
}

// loadPointsCSV reads id,lat,lon rows; rows outside the grid are skipped.
func loadPointsCSV(path string) ([]Point, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open points: %w", err)
	}
	defer func() { _ = f.Close() }()
	return readPointsCSV(f)
}

func readPointsCSV(in io.Reader) ([]Point, error) {
	r := csv.NewReader(in)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	colIdx := map[string]int{}
	for i, h := range header {
		colIdx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	idIdx, okID := colIdx["id"]
	latIdx, okLat := colIdx["lat"]
	lonIdx, okLon := colIdx["lon"]
	if !okID || !okLat || !okLon {
		return nil, fmt.Errorf("points csv: expected columns id,lat,lon; got %v", header)
	}

	var out []Point
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(rec[latIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("parse lat %q: %w", rec[latIdx], err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(rec[lonIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("parse lon %q: %w", rec[lonIdx], err)
		}
		if !digipin.Region.Contains(lat, lon) {
			continue
		}
		out = append(out, Point{ID: strings.TrimSpace(rec[idIdx]), Lat: lat, Lon: lon})
	}
	return out, nil
}

func percentile(sortedValues []float64, p float64) float64 {
	if len(sortedValues) == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sortedValues[0]
	}
	if p >= 100 {
		return sortedValues[len(sortedValues)-1]
	}
	k := (p / 100.0) * float64(len(sortedValues)-1)
	f := math.Floor(k)
	i := int(f)
	if i >= len(sortedValues)-1 {
		return sortedValues[len(sortedValues)-1]
	}
	d := k - f
	return sortedValues[i]*(1-d) + sortedValues[i+1]*d
}
