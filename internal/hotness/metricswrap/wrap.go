// Package metricswrap decorates a hotness tracker with metrics and threshold logs.
package metricswrap

import (
	"log/slog"

	"github.com/mohammed-shakir/digipin-grid/internal/core/observability"
	"github.com/mohammed-shakir/digipin-grid/internal/hotness"
)

type Sizer interface{ Size() int }

type WithMetrics struct {
	inner     hotness.Interface
	threshold float64
	log       *slog.Logger
}

var _ hotness.Interface = (*WithMetrics)(nil)

// New logs once each time an area climbs from below threshold to at or above it.
// threshold<=0 disables the crossing log.
func New(inner hotness.Interface, threshold float64, log *slog.Logger) *WithMetrics {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &WithMetrics{inner: inner, threshold: threshold, log: log}
}

func (w *WithMetrics) Inc(area string) {
	before := 0.0
	if w.threshold > 0 {
		before = w.inner.Score(area)
	}
	w.inner.Inc(area)
	if w.threshold > 0 {
		if after := w.inner.Score(area); before < w.threshold && after >= w.threshold {
			observability.IncHotCrossing()
			w.log.Info("area above hot threshold",
				"area", area,
				"score", after,
				"threshold", w.threshold)
		}
	}
	w.updateSize()
}

func (w *WithMetrics) Score(area string) float64 {
	return w.inner.Score(area)
}

func (w *WithMetrics) Reset(areas ...string) {
	w.inner.Reset(areas...)
	w.updateSize()
}

// Top forwards to the inner tracker when it supports ranking.
func (w *WithMetrics) Top(n int) []hotness.Entry {
	if r, ok := w.inner.(interface{ Top(int) []hotness.Entry }); ok {
		return r.Top(n)
	}
	return nil
}

func (w *WithMetrics) updateSize() {
	if s, ok := w.inner.(Sizer); ok {
		observability.SetHotAreas(s.Size())
	}
}
