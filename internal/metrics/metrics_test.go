package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestSlotMetricsCache(t *testing.T) {
	const slot = 901

	if m := GetSlotMetrics(slot); m != nil {
		t.Error("expected nil for untouched slot")
	}

	SetQueueDepth(slot, 12)
	IncFramesPresented(slot)
	IncFramesPresented(slot)
	IncLoops(slot)
	IncDecodeErrors(slot)

	m := GetSlotMetrics(slot)
	if m == nil {
		t.Fatal("expected non-nil metrics")
	}
	if m.QueueDepth != 12 {
		t.Errorf("QueueDepth = %d, want 12", m.QueueDepth)
	}
	if m.FramesPresented != 2 {
		t.Errorf("FramesPresented = %d, want 2", m.FramesPresented)
	}
	if m.Loops != 1 || m.DecodeErrors != 1 {
		t.Errorf("Loops, DecodeErrors = %d, %d, want 1, 1", m.Loops, m.DecodeErrors)
	}

	// Verify returned copy is independent
	m.QueueDepth = 999
	if m2 := GetSlotMetrics(slot); m2.QueueDepth != 12 {
		t.Errorf("cache was modified, QueueDepth = %d, want 12", m2.QueueDepth)
	}

	ResetSlot(slot)
	m = GetSlotMetrics(slot)
	if m.QueueDepth != 0 {
		t.Errorf("QueueDepth after reset = %d, want 0", m.QueueDepth)
	}
	if m.FramesPresented != 2 {
		t.Errorf("FramesPresented after reset = %d, want 2", m.FramesPresented)
	}
}

// scrape returns the text exposition of all registered metrics.
func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestPrometheusValues(t *testing.T) {
	SetQueueDepth(902, 7)
	SetPaused(true)
	SetActiveStreams(3)
	SetCatalogSources(5)
	IncOpenFailures()
	ObserveTick(3 * time.Millisecond)

	body := scrape(t)
	for _, want := range []string{
		`videowall_stream_queue_depth{slot="902"} 7`,
		"videowall_pool_paused 1",
		"videowall_pool_active_streams 3",
		"videowall_catalog_sources 5",
		"videowall_pool_open_failures_total",
		"videowall_compositor_tick_duration_seconds_count",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}

	SetPaused(false)
	if body := scrape(t); !strings.Contains(body, "videowall_pool_paused 0") {
		t.Error("paused gauge not cleared")
	}
}

func TestConcurrentUpdates(_ *testing.T) {
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			for range 100 {
				IncFramesPresented(800 + slot)
				SetQueueDepth(800+slot, 1)
				GetSlotMetrics(800 + slot)
			}
		}(i)
	}
	wg.Wait()
}
