package source

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/rileyhilliard/vitals/internal/logger"
)

// SelfStream is the loopback source: it samples the running process itself
// on a fixed period and emits the same event shapes a recorded stream
// carries. Mostly useful for trying the dashboard without a target.
type SelfStream struct {
	period    time.Duration
	log       logger.Logger
	closeOnce sync.Once
	stop      chan struct{}

	prevNumGC      uint32
	prevTotalAlloc uint64
	initialHeapSys uint64
}

// NewSelfStream creates a loopback stream sampling every period.
func NewSelfStream(period time.Duration, log logger.Logger) *SelfStream {
	if period <= 0 {
		period = time.Second
	}
	return &SelfStream{
		period: period,
		log:    log,
		stop:   make(chan struct{}),
	}
}

// Live returns true so the supervisor treats loopback like any live feed.
func (s *SelfStream) Live() bool { return true }

// Events starts the sampling loop. Each period emits a batch of runtime
// measurements followed by a Flush.
func (s *SelfStream) Events(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(s.period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				for _, ev := range s.sample() {
					select {
					case ch <- ev:
					case <-ctx.Done():
						return
					case <-s.stop:
						return
					}
				}
			}
		}
	}()
	return ch, nil
}

// Close stops the sampling loop. Idempotent.
func (s *SelfStream) Close() error {
	s.closeOnce.Do(func() { close(s.stop) })
	return nil
}

// sample reads the runtime and turns the deltas since the previous tick
// into events, ending with a Flush.
func (s *SelfStream) sample() []Event {
	now := time.Now()
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	var events []Event

	if s.initialHeapSys == 0 {
		s.initialHeapSys = ms.HeapSys
		events = append(events,
			Event{Kind: KindGCConfig, Time: now, Labels: map[string]string{"collector": "go-gc"}},
			Event{Kind: KindHeapConfig, Time: now, Values: map[string]float64{"initialSize": float64(ms.HeapSys)}},
		)
	}

	events = append(events,
		Event{Kind: KindHeapSummary, Time: now, Values: map[string]float64{
			"heapUsed":      float64(ms.HeapAlloc),
			"committedSize": float64(ms.HeapSys),
		}},
		Event{Kind: KindPhysicalMemory, Time: now, Values: map[string]float64{
			"totalSize": float64(ms.Sys),
		}},
		Event{Kind: KindThreadStats, Time: now, Values: map[string]float64{
			"activeCount": float64(runtime.NumGoroutine()),
		}},
	)

	// One GC event per collection since the previous tick, with the
	// recorded pause from the circular pause buffer.
	for gc := s.prevNumGC; gc < ms.NumGC; gc++ {
		pause := ms.PauseNs[gc%uint32(len(ms.PauseNs))]
		events = append(events, Event{
			Kind:   KindYoungGC,
			Time:   now,
			Values: map[string]float64{"duration": float64(pause)},
		})
	}
	s.prevNumGC = ms.NumGC

	if s.prevTotalAlloc > 0 && ms.TotalAlloc > s.prevTotalAlloc {
		events = append(events, Event{
			Kind:   KindAllocationSample,
			Time:   now,
			Values: map[string]float64{"weight": float64(ms.TotalAlloc - s.prevTotalAlloc)},
		})
	}
	s.prevTotalAlloc = ms.TotalAlloc

	events = append(events, s.executionSamples(now)...)

	events = append(events, Event{Kind: KindFlush, Time: now})
	return events
}

// executionSamples snapshots every goroutine and emits one sample per top
// frame, feeding the hot-functions histogram.
func (s *SelfStream) executionSamples(now time.Time) []Event {
	n, _ := runtime.GoroutineProfile(nil)
	records := make([]runtime.StackRecord, n+8)
	n, ok := runtime.GoroutineProfile(records)
	if !ok {
		s.log.Debug("goroutine profile grew during snapshot; skipping tick")
		return nil
	}
	var events []Event
	for _, rec := range records[:n] {
		pcs := rec.Stack()
		if len(pcs) == 0 {
			continue
		}
		fn := runtime.FuncForPC(pcs[0])
		if fn == nil {
			continue
		}
		events = append(events, Event{
			Kind:  KindExecutionSample,
			Time:  now,
			Stack: []Frame{{Function: fn.Name()}},
		})
	}
	return events
}
