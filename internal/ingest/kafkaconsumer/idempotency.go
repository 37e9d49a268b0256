package kafkaconsumer

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// versionDedupe remembers the last applied version per device.
type versionDedupe struct {
	mu  sync.Mutex
	lru *lru.Cache[string, int64]
}

func newVersionDedupe(size int) *versionDedupe {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[string, int64](size)
	return &versionDedupe{lru: c}
}

// isStale reports whether v is at or below the last applied version.
func (d *versionDedupe) isStale(key string, v int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.lru.Get(key)
	return ok && v <= last
}

// record is called only after the version was applied.
func (d *versionDedupe) record(key string, v int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lru.Get(key); ok && last >= v {
		return
	}
	d.lru.Add(key, v)
}
