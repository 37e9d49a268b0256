package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type KafkaCfg struct {
	Enabled       bool
	Brokers       string
	LocationTopic string
	LookupTopic   string
	GroupID       string
	QueueSize     int
}

type Config struct {
	Addr            string
	LogLevel        string
	RedisAddr       string
	RedisPoolSize   int
	RedisMinIdle    int
	RedisDialTO     time.Duration
	CacheOpTimeout  time.Duration
	HotLevel        int
	HotThreshold    float64
	HotHalfLife     time.Duration
	ShareTTLCold    time.Duration
	ShareTTLWarm    time.Duration
	ShareTTLHot     time.Duration
	ShareBaseURL    string
	ShareSalt       string
	MemoryCacheSize int
	DeviceTTL       time.Duration
	MaxCells        int
	DefaultH3Res    int
	Kafka           KafkaCfg
	MetricsEnabled  bool
	MetricsAddr     string
	MetricsPath     string
	LogConsole      bool
	LogSampleN      int
	DedupeCacheSize int
}

func FromEnv() Config {
	hotLevel := getint("HOT_LEVEL", 4)
	if hotLevel < 1 || hotLevel > 10 {
		hotLevel = 4
	}
	h3res := getint("H3_RES", 9)
	if h3res < 0 || h3res > 15 {
		h3res = 9
	}

	shareTTL := getduration("SHARE_TTL", 24*time.Hour)

	return Config{
		Addr:            getenv("ADDR", ":8090"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		RedisAddr:       getenv("REDIS_ADDR", ""),
		RedisPoolSize:   getint("REDIS_POOL_SIZE", 64),
		RedisMinIdle:    getint("REDIS_MIN_IDLE_CONNS", 4),
		RedisDialTO:     getduration("REDIS_DIAL_TIMEOUT", 2*time.Second),
		CacheOpTimeout:  getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		HotLevel:        hotLevel,
		HotThreshold:    getfloat("HOT_THRESHOLD", 10.0),
		HotHalfLife:     getduration("HOT_HALF_LIFE", 10*time.Minute),
		ShareTTLCold:    getduration("SHARE_TTL_COLD", shareTTL),
		ShareTTLWarm:    getduration("SHARE_TTL_WARM", 7*shareTTL),
		ShareTTLHot:     getduration("SHARE_TTL_HOT", 30*shareTTL),
		ShareBaseURL:    strings.TrimRight(getenv("SHARE_BASE_URL", "http://localhost:8090"), "/"),
		ShareSalt:       getenv("SHARE_SALT", ""),
		MemoryCacheSize: getint("MEMORY_CACHE_SIZE", 65536),
		DeviceTTL:       getduration("DEVICE_TTL", 24*time.Hour),
		MaxCells:        getint("MAX_CELLS", 4096),
		DefaultH3Res:    h3res,
		MetricsEnabled:  getbool("METRICS_ENABLED", false),
		MetricsAddr:     getenv("METRICS_ADDR", ":9090"),
		MetricsPath:     getenv("METRICS_PATH", "/metrics"),
		LogConsole:      getbool("LOG_CONSOLE", false),
		LogSampleN:      getint("LOG_SAMPLE_N", 0),
		DedupeCacheSize: getint("DEDUPE_CACHE_SIZE", 8192),
		Kafka: KafkaCfg{
			Enabled:       getbool("KAFKA_ENABLED", false),
			Brokers:       getenv("KAFKA_BROKERS", "localhost:9092"),
			LocationTopic: getenv("KAFKA_LOCATION_TOPIC", "device-locations"),
			LookupTopic:   getenv("KAFKA_LOOKUP_TOPIC", "digipin-lookups"),
			GroupID:       getenv("KAFKA_GROUP_ID", "digipin-ingest"),
			QueueSize:     getint("KAFKA_QUEUE_SIZE", 1024),
		},
	}
}

// BrokerList splits the comma separated broker string.
func (k KafkaCfg) BrokerList() []string {
	var out []string
	for p := range strings.SplitSeq(k.Brokers, ",") {
		if x := strings.TrimSpace(p); x != "" {
			out = append(out, x)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
