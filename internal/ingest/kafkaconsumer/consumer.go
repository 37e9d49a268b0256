// Package kafkaconsumer applies device location events from Kafka: each event
// is encoded to a grid code, stored per device and counted toward area hotness.
package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	obs "github.com/mohammed-shakir/digipin-grid/internal/core/observability"
	"github.com/mohammed-shakir/digipin-grid/internal/devices"
	"github.com/mohammed-shakir/digipin-grid/internal/digipin"
	"github.com/mohammed-shakir/digipin-grid/internal/hotness"
	"github.com/mohammed-shakir/digipin-grid/internal/ingest"
	mylog "github.com/mohammed-shakir/digipin-grid/internal/logger"
)

type LocationWriter interface {
	Put(ctx context.Context, loc devices.Location) (bool, error)
}

type HotnessCounter interface {
	Inc(area string)
}

type Consumer struct {
	cfg    Config
	logger *slog.Logger
	zlog   *zerolog.Logger
	store  LocationWriter
	hot    HotnessCounter
	ver    *versionDedupe

	assigned atomic.Bool
	assignMu sync.RWMutex
	assign   map[int32]struct{}

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func New(cfg Config, logger *slog.Logger, store LocationWriter, hot HotnessCounter) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	zl := mylog.Build(mylog.Config{Level: cfg.LogLevel, Component: "location_ingest"}, nil)
	return &Consumer{
		cfg:    cfg,
		logger: logger,
		zlog:   &zl,
		store:  store,
		hot:    hot,
		ver:    newVersionDedupe(cfg.DedupeSize),
		assign: map[int32]struct{}{},
	}
}

// Start joins the consumer group and consumes in the background until ctx
// ends or Stop is called.
func (c *Consumer) Start(ctx context.Context) error {
	if c.store == nil {
		return errors.New("kafkaconsumer: location store is required")
	}
	if len(c.cfg.Brokers) == 0 || c.cfg.Topic == "" {
		return errors.New("kafkaconsumer: brokers and topic are required")
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true
	cfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		cancel()
		return fmt.Errorf("create consumer group: %w", err)
	}

	h := c.handler()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if err := group.Close(); err != nil {
				c.logger.Error("kafka consumer group close", "err", err)
			}
		}()
		for {
			if err := group.Consume(ctx, []string{c.cfg.Topic}, h); err != nil {
				obs.IncKafkaConsumerError("consume")
				c.zlog.Error().Err(err).
					Strs("brokers", c.cfg.Brokers).
					Str("topic", c.cfg.Topic).
					Msg("kafka consumer error")
				select {
				case <-time.After(2 * time.Second):
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range group.Errors() {
			obs.IncKafkaConsumerError("group")
			c.logger.Error("kafka group error", "err", err)
		}
	}()

	c.logger.Info("location consumer started",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)
	return nil
}

func (c *Consumer) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.logger.Info("location consumer stopped")
}

// Readiness reports whether a group session is active and which partitions it holds.
func (c *Consumer) Readiness() (ready bool, partitions []int32) {
	if !c.assigned.Load() {
		return false, nil
	}
	c.assignMu.RLock()
	defer c.assignMu.RUnlock()
	for p := range c.assign {
		partitions = append(partitions, p)
	}
	return true, partitions
}

func (c *Consumer) handler() *groupHandler {
	return &groupHandler{
		setup: func(sess sarama.ConsumerGroupSession) {
			c.assignMu.Lock()
			c.assign = map[int32]struct{}{}
			for _, parts := range sess.Claims() {
				for _, p := range parts {
					c.assign[p] = struct{}{}
				}
			}
			c.assigned.Store(true)
			c.assignMu.Unlock()
		},
		cleanup: func(sarama.ConsumerGroupSession) {
			c.assignMu.Lock()
			c.assigned.Store(false)
			c.assign = map[int32]struct{}{}
			c.assignMu.Unlock()
		},
		process: c.ProcessOne,
	}
}

// ProcessOne applies a single message. Payloads that can never succeed are
// acknowledged and counted; only store failures are returned for redelivery.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev ingest.LocationEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.reject(ctx, msg, "decode", err)
		return nil
	}
	if err := ev.Validate(); err != nil {
		c.reject(ctx, msg, "validate", err)
		return nil
	}

	ctx = mylog.WithDevice(ctx, ev.DeviceID)
	log := mylog.FromContext(ctx, c.zlog)

	if c.ver.isStale(ev.DeviceID, ev.Version) {
		obs.ObserveLocationIngest("duplicate")
		return nil
	}

	code, err := digipin.Encode(ev.Lat, ev.Lon)
	if err != nil {
		obs.ObserveLocationIngest("out_of_region")
		log.Debug().Float64("lat", ev.Lat).Float64("lon", ev.Lon).Msg("location outside grid")
		return nil
	}

	applied, err := c.store.Put(ctx, devices.Location{
		DeviceID: ev.DeviceID,
		Code:     string(code),
		Lat:      ev.Lat,
		Lon:      ev.Lon,
		Version:  ev.Version,
		Source:   ev.Source,
		TS:       ev.TS,
	})
	if err != nil {
		obs.ObserveLocationIngest("store_error")
		obs.IncKafkaConsumerError("store")
		log.Error().Err(err).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("store device location")
		return fmt.Errorf("store location: %w", err)
	}
	c.ver.record(ev.DeviceID, ev.Version)
	if !applied {
		obs.ObserveLocationIngest("duplicate")
		return nil
	}

	if c.hot != nil {
		c.hot.Inc(hotness.Area(string(code), c.cfg.HotLevel))
	}
	obs.ObserveLocationIngest("applied")
	log.Debug().Str("code", string(code)).Int64("version", ev.Version).Msg("location applied")
	return nil
}

func (c *Consumer) reject(ctx context.Context, msg *sarama.ConsumerMessage, stage string, err error) {
	obs.ObserveLocationIngest("bad_payload")
	obs.IncKafkaConsumerError(stage)
	mylog.FromContext(ctx, c.zlog).Warn().Err(err).
		Str("stage", stage).
		Str("topic", msg.Topic).
		Int32("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Msg("dropping location event")
}
