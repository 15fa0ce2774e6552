package mixer

import (
	"sync"
	"time"

	"github.com/oszuidwest/zwfm-soundscape/internal/localstore"
	"github.com/oszuidwest/zwfm-soundscape/pkg/logger"
)

// Flusher coalesces writes of a single key. Only the latest queued payload is
// kept; it is written on every tick, on FlushNow, and once more on Close.
// Write failures are logged and never returned to the caller.
type Flusher struct {
	store    localstore.Store
	key      string
	interval time.Duration

	mu      sync.Mutex
	pending *string
	closed  bool

	// writeMu orders writes so an older payload can never land after a newer one.
	writeMu sync.Mutex

	ticker   *time.Ticker
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewFlusher starts a flusher writing key to store every interval.
func NewFlusher(store localstore.Store, key string, interval time.Duration) *Flusher {
	if interval <= 0 {
		interval = time.Second
	}
	f := &Flusher{
		store:    store,
		key:      key,
		interval: interval,
		ticker:   time.NewTicker(interval),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	go func() {
		defer close(f.stopped)
		for {
			select {
			case <-f.ticker.C:
				f.flush()
			case <-f.done:
				return
			}
		}
	}()

	return f
}

// Enqueue replaces the pending payload. After Close the payload is written
// synchronously so the last value still lands.
func (f *Flusher) Enqueue(payload string) {
	f.mu.Lock()
	f.pending = &payload
	closed := f.closed
	f.mu.Unlock()

	if closed {
		f.flush()
	}
}

// Pending reports whether a payload is waiting to be written.
func (f *Flusher) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending != nil
}

// FlushNow writes the pending payload, if any, before returning.
func (f *Flusher) FlushNow() {
	f.flush()
}

// Discard drops the pending payload and removes the stored key.
func (f *Flusher) Discard() {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	f.mu.Lock()
	f.pending = nil
	f.mu.Unlock()

	if err := f.store.Remove(f.key); err != nil {
		logger.Error("Failed to remove persisted %s: %v", f.key, err)
	}
}

// Close stops the ticker and performs the final flush. It is safe to call
// more than once; only the first call flushes.
func (f *Flusher) Close() {
	f.stopOnce.Do(func() {
		f.ticker.Stop()
		close(f.done)
		<-f.stopped

		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()

		f.flush()
	})
}

func (f *Flusher) flush() {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	f.mu.Lock()
	payload := f.pending
	f.pending = nil
	f.mu.Unlock()

	if payload == nil {
		return
	}
	if err := f.store.Set(f.key, *payload); err != nil {
		// Storage may be unavailable for the whole session; keep running in memory.
		logger.Error("Failed to persist %s: %v", f.key, err)
	}
}
