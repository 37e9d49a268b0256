package kafkaconsumer

import (
	"time"

	"github.com/mohammed-shakir/digipin-grid/internal/core/config"
)

type Config struct {
	Brokers             []string
	Topic               string
	GroupID             string
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	RebalanceTimeout    time.Duration
	InitialOffsetOldest bool
	HotLevel            int
	DedupeSize          int
	LogLevel            string
}

func FromConfig(cfg config.Config) Config {
	return Config{
		Brokers:             cfg.Kafka.BrokerList(),
		Topic:               cfg.Kafka.LocationTopic,
		GroupID:             cfg.Kafka.GroupID,
		SessionTimeout:      30 * time.Second,
		Heartbeat:           3 * time.Second,
		RebalanceTimeout:    30 * time.Second,
		InitialOffsetOldest: true,
		HotLevel:            cfg.HotLevel,
		DedupeSize:          cfg.DedupeCacheSize,
		LogLevel:            cfg.LogLevel,
	}
}
