package telemetry

import (
	"log/slog"
	"sync"
)

// Recorder decouples record production from consumption. Emit never blocks:
// when the buffer is full the record is dropped and counted, because a slow
// consumer must never stall a generation.
type Recorder struct {
	ch      chan Record
	dropped int
	mu      sync.Mutex
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewRecorder starts a recorder with the given buffer depth, draining into
// sink on a background goroutine. A nil sink discards records.
func NewRecorder(buffer int, sink func(Record)) *Recorder {
	if buffer < 1 {
		buffer = 1
	}
	r := &Recorder{
		ch:   make(chan Record, buffer),
		done: make(chan struct{}),
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for rec := range r.ch {
			if sink != nil {
				sink(rec)
			}
		}
		close(r.done)
	}()
	return r
}

// Emit hands off a record without blocking.
func (r *Recorder) Emit(rec Record) {
	select {
	case r.ch <- rec:
	default:
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
	}
}

// Dropped returns how many records were discarded due to a full buffer.
func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close flushes the buffer and stops the consumer goroutine.
func (r *Recorder) Close() {
	close(r.ch)
	r.wg.Wait()
	if n := r.Dropped(); n > 0 {
		slog.Warn("telemetry records dropped", "count", n)
	}
}
