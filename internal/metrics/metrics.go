// Package metrics provides Prometheus metrics for the wall's streams, pool
// and compositor.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "videowall"

var (
	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "queue_depth",
		Help:      "Frames buffered in the slot's stream queue",
	}, []string{"slot"})

	framesPresented = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "frames_presented_total",
		Help:      "Frames the compositor advanced for the slot",
	}, []string{"slot"})

	loops = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "loops_total",
		Help:      "End-of-source rewinds",
	}, []string{"slot"})

	decodeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "decode_errors_total",
		Help:      "Frames that failed to decode",
	}, []string{"slot"})

	openFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "open_failures_total",
		Help:      "Sources that failed to open during assignment",
	})

	reshuffles = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "reshuffles_total",
		Help:      "Completed reshuffles",
	})

	activeStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "active_streams",
		Help:      "Slots with a bound stream",
	})

	paused = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "paused",
		Help:      "1 while playback is paused",
	})

	catalogSources = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "catalog",
		Name:      "sources",
		Help:      "Matching sources in the root directory",
	})

	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "compositor",
		Name:      "tick_duration_seconds",
		Help:      "Time to compose one canvas",
		Buckets:   []float64{.001, .002, .004, .008, .016, .033, .066, .1, .25},
	})

	// Local cache for API status access.
	slotCache   = make(map[int]*SlotMetrics)
	slotCacheMu sync.RWMutex
)

// SlotMetrics holds current metric values for a slot.
type SlotMetrics struct {
	QueueDepth      int
	FramesPresented uint64
	Loops           uint64
	DecodeErrors    uint64
}

func slotLabel(slot int) string {
	return strconv.Itoa(slot)
}

// SetQueueDepth records the queue length of a slot's stream.
func SetQueueDepth(slot, depth int) {
	queueDepth.WithLabelValues(slotLabel(slot)).Set(float64(depth))
	updateCache(slot, func(m *SlotMetrics) { m.QueueDepth = depth })
}

// IncFramesPresented counts one frame advance for a slot.
func IncFramesPresented(slot int) {
	framesPresented.WithLabelValues(slotLabel(slot)).Inc()
	updateCache(slot, func(m *SlotMetrics) { m.FramesPresented++ })
}

// IncLoops counts one rewind for a slot.
func IncLoops(slot int) {
	loops.WithLabelValues(slotLabel(slot)).Inc()
	updateCache(slot, func(m *SlotMetrics) { m.Loops++ })
}

// IncDecodeErrors counts one failed frame for a slot.
func IncDecodeErrors(slot int) {
	decodeErrors.WithLabelValues(slotLabel(slot)).Inc()
	updateCache(slot, func(m *SlotMetrics) { m.DecodeErrors++ })
}

// IncOpenFailures counts one source that failed to open.
func IncOpenFailures() {
	openFailures.Inc()
}

// IncReshuffles counts one completed reshuffle.
func IncReshuffles() {
	reshuffles.Inc()
}

// SetActiveStreams records the number of slots with a stream.
func SetActiveStreams(n int) {
	activeStreams.Set(float64(n))
}

// SetPaused records the pause state.
func SetPaused(p bool) {
	if p {
		paused.Set(1)
		return
	}
	paused.Set(0)
}

// SetCatalogSources records the catalog size.
func SetCatalogSources(n int) {
	catalogSources.Set(float64(n))
}

// ObserveTick records the duration of one compositor tick.
func ObserveTick(d time.Duration) {
	tickDuration.Observe(d.Seconds())
}

// ResetSlot clears the per-stream values of a slot when its stream is
// replaced. Counters keep their totals.
func ResetSlot(slot int) {
	queueDepth.DeleteLabelValues(slotLabel(slot))
	updateCache(slot, func(m *SlotMetrics) { m.QueueDepth = 0 })
}

// GetSlotMetrics returns current metric values for a slot.
func GetSlotMetrics(slot int) *SlotMetrics {
	slotCacheMu.RLock()
	defer slotCacheMu.RUnlock()
	if m, ok := slotCache[slot]; ok {
		dup := *m
		return &dup
	}
	return nil
}

// HTTPHandler returns the Prometheus metrics HTTP handler.
// This collects all promauto-registered metrics automatically.
func HTTPHandler() http.Handler {
	return promhttp.Handler()
}

func updateCache(slot int, update func(*SlotMetrics)) {
	slotCacheMu.Lock()
	defer slotCacheMu.Unlock()
	m, ok := slotCache[slot]
	if !ok {
		m = &SlotMetrics{}
		slotCache[slot] = m
	}
	update(m)
}
