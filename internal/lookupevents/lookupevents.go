// Package lookupevents publishes a record of every successful lookup to Kafka.
package lookupevents

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	obs "github.com/mohammed-shakir/digipin-grid/internal/core/observability"
)

// Event is one served lookup. Op is encode, decode, cell, cells or share.
type Event struct {
	Op   string    `json:"op"`
	Code string    `json:"code"`
	Area string    `json:"area,omitempty"`
	Lat  float64   `json:"lat"`
	Lon  float64   `json:"lon"`
	TS   time.Time `json:"ts"`
}

type Publisher interface {
	Publish(ev Event)
	Close() error
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(Event) {}
func (Discard) Close() error  { return nil }

// Kafka queues events and hands them to an async producer; Publish never blocks.
type Kafka struct {
	topic   string
	events  chan Event
	prod    sarama.AsyncProducer
	log     *slog.Logger
	stopped chan struct{}
	errDone chan struct{}

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

func NewKafka(brokers []string, topic string, queueSize int, log *slog.Logger) (*Kafka, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false
	cfg.Producer.RequiredAcks = sarama.WaitForLocal

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("lookupevents: create async producer: %w", err)
	}
	return newWithProducer(prod, topic, queueSize, log), nil
}

func newWithProducer(prod sarama.AsyncProducer, topic string, queueSize int, log *slog.Logger) *Kafka {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if log == nil {
		log = slog.Default()
	}
	p := &Kafka{
		topic:   topic,
		events:  make(chan Event, queueSize),
		prod:    prod,
		log:     log,
		stopped: make(chan struct{}),
		errDone: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.log.Warn("lookup event marshal", "err", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(ev.Area),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		defer close(p.errDone)
		for err := range p.prod.Errors() {
			if err != nil {
				obs.IncKafkaConsumerError("publish")
				p.log.Warn("lookup event produce", "err", err.Err, "topic", p.topic)
			}
		}
	}()
	return p
}

// Publish enqueues ev or drops it when the queue is full or closed.
func (p *Kafka) Publish(ev Event) {
	if ev.TS.IsZero() {
		ev.TS = time.Now().UTC()
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		obs.IncLookupEventDropped()
		return
	}
	select {
	case p.events <- ev:
	default:
		obs.IncLookupEventDropped()
	}
}

// Close flushes queued events and closes the producer.
func (p *Kafka) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.events)
		p.mu.Unlock()
		<-p.stopped

		if cerr := p.prod.Close(); cerr != nil {
			err = fmt.Errorf("lookupevents: close producer: %w", cerr)
		}
		<-p.errDone
	})
	return err
}
