package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"golang.org/x/time/rate"

	"github.com/mohammed-shakir/digipin-grid/internal/digipin"
	"github.com/mohammed-shakir/digipin-grid/internal/ingest"
)

type Config struct {
	BaseURL        string
	Concurrency    int
	Duration       time.Duration
	ZipfS          float64
	ZipfV          float64
	PointCount     int
	DecodeRatio    float64
	OutputPrefix   string
	RequestTimeout time.Duration
	PointsFile     string
	KafkaBrokers   string
	KafkaTopic     string
	Devices        int
	RPS            float64
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.BaseURL, "target", "http://localhost:8090", "digipin server base URL")
	flag.IntVar(&cfg.Concurrency, "concurrency", 32, "Concurrent workers")
	flag.DurationVar(&cfg.Duration, "duration", 60*time.Second, "Test duration")
	flag.Float64Var(&cfg.ZipfS, "zipf-s", 1.3, "Zipf parameter s (>1)")
	flag.Float64Var(&cfg.ZipfV, "zipf-v", 1.0, "Zipf parameter v (>=1)")
	flag.IntVar(&cfg.PointCount, "points", 128, "Distinct points in pool")
	flag.Float64Var(&cfg.DecodeRatio, "decode-ratio", 0.3, "Share of requests that decode instead of encode")
	flag.StringVar(&cfg.OutputPrefix, "out", "results/loadgen", "Output file prefix (JSON/CSV)")
	flag.DurationVar(&cfg.RequestTimeout, "timeout", 5*time.Second, "Per-request timeout")
	flag.StringVar(&cfg.PointsFile, "points-file", "", "Optional CSV (id,lat,lon) to drive requests")
	flag.StringVar(&cfg.KafkaBrokers, "kafka-brokers", "", "When set, also produce device location events")
	flag.StringVar(&cfg.KafkaTopic, "kafka-topic", "device-locations", "Location event topic")
	flag.IntVar(&cfg.Devices, "devices", 50, "Simulated devices for location events")
	flag.Float64Var(&cfg.RPS, "rps", 0, "Aggregate request rate cap across workers (0 = unlimited)")
	flag.Parse()
	return cfg
}

type sample struct {
	Timestamp time.Time
	Latency   time.Duration
	Op        string
	Status    int
	ErrorMsg  string
	Index     int
}

type summary struct {
	StartTime     time.Time `json:"start"`
	EndTime       time.Time `json:"end"`
	DurationSec   float64   `json:"duration_sec"`
	TotalRequests int64     `json:"total"`
	SuccessCount  int64     `json:"success"`
	ErrorCount    int64     `json:"errors"`
	ThroughputRPS float64   `json:"throughput_rps"`
	P50Ms         float64   `json:"p50_ms"`
	P95Ms         float64   `json:"p95_ms"`
	P99Ms         float64   `json:"p99_ms"`
	Concurrency   int       `json:"concurrency"`
	Points        int       `json:"points"`
	EventsSent    int64     `json:"events_sent"`
	TargetURL     string    `json:"target"`
}

type aggregatedResult struct {
	total   int64
	success int64
	errors  int64
	latMs   []float64
}

func main() {
	cfg := loadConfig()
	if err := os.MkdirAll(filepath.Dir(cfg.OutputPrefix), 0o750); err != nil {
		log.Fatalf("mkdir results: %v", err)
	}
	prefix := fmt.Sprintf("%s_%s", cfg.OutputPrefix, time.Now().UTC().Format("20060102_150405Z"))

	seed := time.Now().UnixNano()
	r := rand.New(rand.NewSource(seed))

	var points []Point
	if strings.TrimSpace(cfg.PointsFile) != "" {
		p, err := loadPointsCSV(cfg.PointsFile)
		if err != nil {
			log.Printf("WARN: failed to load points from %q: %v; using synthetic points", cfg.PointsFile, err)
		} else {
			points = p
		}
	}
	if len(points) == 0 {
		points = makePoints(cfg.PointCount, r)
	}
	codes := make([]string, len(points))
	for i, p := range points {
		codes[i] = digipin.EncodeString(p.Lat, p.Lon)
	}
	imax := uint64(len(points)) - 1

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: 4 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			MaxIdleConns:        1024,
			MaxIdleConnsPerHost: 256,
			IdleConnTimeout:     90 * time.Second,
		},
		Timeout: cfg.RequestTimeout,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var eventsSent atomic.Int64
	var producerWG sync.WaitGroup
	if cfg.KafkaBrokers != "" {
		producerWG.Add(1)
		go func() {
			defer producerWG.Done()
			if err := produceLocations(ctx, cfg, points, seed, &eventsSent); err != nil {
				log.Printf("location producer: %v", err)
			}
		}()
	}

	csvPath := prefix + "_samples.csv"
	jsonPath := prefix + "_summary.json"
	csvFile, err := os.Create(filepath.Clean(csvPath))
	if err != nil {
		log.Printf("open csv: %v", err)
		return
	}
	defer func() { _ = csvFile.Close() }()
	csvWriter := csv.NewWriter(csvFile)

	samplesChan := make(chan sample, 4096)
	resultsChan := make(chan aggregatedResult, 1)
	go func() {
		_ = csvWriter.Write([]string{"timestamp", "latency_ms", "op", "status", "error", "point_idx"})
		var res aggregatedResult
		for s := range samplesChan {
			res.total++
			ms := float64(s.Latency.Microseconds()) / 1000.0
			if s.ErrorMsg == "" {
				res.success++
				res.latMs = append(res.latMs, ms)
			} else {
				res.errors++
			}
			_ = csvWriter.Write([]string{
				s.Timestamp.UTC().Format(time.RFC3339Nano),
				fmt.Sprintf("%.3f", ms),
				s.Op,
				fmt.Sprintf("%d", s.Status),
				s.ErrorMsg,
				fmt.Sprintf("%d", s.Index),
			})
		}
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil {
			log.Printf("csv flush error: %v", err)
		}
		resultsChan <- res
	}()

	limiter := newLimiter(cfg.RPS, cfg.Concurrency)

	startTime := time.Now()
	log.Printf("loadgen start target=%s dur=%s conc=%d zipf(s=%.2f,v=%.2f) points=%d",
		cfg.BaseURL, cfg.Duration, cfg.Concurrency, cfg.ZipfS, cfg.ZipfV, len(points))

	var wg sync.WaitGroup
	wg.Add(cfg.Concurrency)
	for workerID := range cfg.Concurrency {
		go func(id int) {
			defer wg.Done()
			rWorker := rand.New(rand.NewSource(seed + int64(id) + 1))
			zipfDist := rand.NewZipf(rWorker, cfg.ZipfS, cfg.ZipfV, imax)
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				if err := limiter.Wait(ctx); err != nil {
					return
				}
				v := zipfDist.Uint64()
				if v > uint64(math.MaxInt) || int(v) >= len(points) {
					continue
				}
				idx := int(v)

				op, target := "encode", encodeURL(cfg.BaseURL, points[idx])
				if rWorker.Float64() < cfg.DecodeRatio {
					op, target = "decode", decodeURL(cfg.BaseURL, codes[idx])
				}
				s := fire(ctx, httpClient, target)
				s.Op, s.Index = op, idx

				select {
				case samplesChan <- s:
				case <-ctx.Done():
					return
				}
			}
		}(workerID)
	}

	go func() {
		<-ctx.Done()
		wg.Wait()
		close(samplesChan)
	}()

	agg := <-resultsChan
	producerWG.Wait()
	endTime := time.Now()
	elapsed := endTime.Sub(startTime).Seconds()

	sort.Float64s(agg.latMs)
	out := summary{
		StartTime:     startTime.UTC(),
		EndTime:       endTime.UTC(),
		DurationSec:   elapsed,
		TotalRequests: agg.total,
		SuccessCount:  agg.success,
		ErrorCount:    agg.errors,
		ThroughputRPS: float64(agg.total) / elapsed,
		P50Ms:         percentile(agg.latMs, 50),
		P95Ms:         percentile(agg.latMs, 95),
		P99Ms:         percentile(agg.latMs, 99),
		Concurrency:   cfg.Concurrency,
		Points:        len(points),
		EventsSent:    eventsSent.Load(),
		TargetURL:     cfg.BaseURL,
	}

	if jsonFile, err := os.Create(filepath.Clean(jsonPath)); err == nil {
		enc := json.NewEncoder(jsonFile)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
		_ = jsonFile.Close()
	}

	log.Printf("done: total=%d succ=%d err=%d thr=%.2f rps p50=%.1fms p95=%.1fms p99=%.1fms events=%d",
		agg.total, agg.success, agg.errors, out.ThroughputRPS, out.P50Ms, out.P95Ms, out.P99Ms, out.EventsSent)
	log.Printf("wrote %s and %s", jsonPath, csvPath)
}

func encodeURL(base string, p Point) string {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.6f", p.Lat))
	q.Set("lon", fmt.Sprintf("%.6f", p.Lon))
	return strings.TrimRight(base, "/") + "/v1/encode?" + q.Encode()
}

func decodeURL(base, code string) string {
	return strings.TrimRight(base, "/") + "/v1/decode?code=" + url.QueryEscape(code)
}

func fire(ctx context.Context, c *http.Client, target string) sample {
	start := time.Now()
	s := sample{Timestamp: start}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		s.ErrorMsg = err.Error()
		return s
	}
	resp, err := c.Do(req)
	s.Latency = time.Since(start)
	if err != nil {
		s.ErrorMsg = err.Error()
		return s
	}
	s.Status = resp.StatusCode
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.ErrorMsg = fmt.Sprintf("status=%d", resp.StatusCode)
	}
	return s
}

func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(rps), max(burst, 1))
}

// produceLocations moves simulated devices around the point pool, one event
// per device every 100ms, keyed by device so versions stay ordered.
func produceLocations(ctx context.Context, cfg Config, points []Point, seed int64, sent *atomic.Int64) error {
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_5_0_0
	sc.Producer.Return.Successes = true
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	prod, err := sarama.NewSyncProducer(strings.Split(cfg.KafkaBrokers, ","), sc)
	if err != nil {
		return fmt.Errorf("producer create: %w", err)
	}
	defer func() { _ = prod.Close() }()

	r := rand.New(rand.NewSource(seed))
	versions := make([]int64, max(cfg.Devices, 1))
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
		for d := range versions {
			versions[d]++
			p := points[r.Intn(len(points))]
			ev := locationEvent(fmt.Sprintf("device-%03d", d), p, versions[d], r)
			b, _ := json.Marshal(ev)
			_, _, err := prod.SendMessage(&sarama.ProducerMessage{
				Topic: cfg.KafkaTopic,
				Key:   sarama.StringEncoder(ev.DeviceID),
				Value: sarama.ByteEncoder(b),
			})
			if err != nil {
				return fmt.Errorf("send location: %w", err)
			}
			sent.Add(1)
		}
	}
}

func locationEvent(deviceID string, p Point, version int64, r *rand.Rand) ingest.LocationEvent {
	return ingest.LocationEvent{
		DeviceID: deviceID,
		Lat:      p.Lat + (r.Float64()-0.5)*0.001,
		Lon:      p.Lon + (r.Float64()-0.5)*0.001,
		Version:  version,
		TS:       time.Now().UTC(),
		Source:   "loadgen",
	}
}
