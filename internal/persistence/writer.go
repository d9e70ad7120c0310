package persistence

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ahinestrog/cartengine/internal/cart"
	"github.com/ahinestrog/cartengine/internal/storage"
)

const DefaultQueue = 64

const writeTimeout = 5 * time.Second

// Writer persists the full cart after every mutation. Mutators never wait
// for it: snapshots are queued and written in order by one goroutine.
// Failed writes are logged and not retried; when the queue is full the
// write is dropped.
type Writer struct {
	slot  storage.Slot
	key   string
	log   zerolog.Logger
	queue chan cart.Snapshot

	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	unsub   []func()
	written atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

func NewWriter(slot storage.Slot, key string, queue int, log zerolog.Logger) *Writer {
	if queue <= 0 {
		queue = DefaultQueue
	}
	if key == "" {
		key = DefaultKey
	}
	w := &Writer{
		slot:  slot,
		key:   key,
		log:   log.With().Str("component", "cart-writer").Str("key", key).Logger(),
		queue: make(chan cart.Snapshot, queue),
		done:  make(chan struct{}),
	}
	go w.loop()
	return w
}

// Attach subscribes the writer to store events.
func (w *Writer) Attach(store *cart.Store) {
	unsub := store.Subscribe(w.Handle)
	w.mu.Lock()
	w.unsub = append(w.unsub, unsub)
	w.mu.Unlock()
}

func (w *Writer) Handle(ev cart.Event) { w.Submit(ev.Snapshot) }

func (w *Writer) Submit(s cart.Snapshot) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.dropped.Add(1)
		return
	}
	select {
	case w.queue <- s:
	default:
		w.dropped.Add(1)
		w.log.Warn().Int("total_items", s.TotalItems).Msg("write queue full, dropping cart write")
	}
}

func (w *Writer) loop() {
	defer close(w.done)
	for s := range w.queue {
		w.write(s)
	}
}

func (w *Writer) write(s cart.Snapshot) {
	b, err := Encode(s)
	if err != nil {
		w.failed.Add(1)
		w.log.Error().Err(err).Msg("encode cart")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := w.slot.Put(ctx, w.key, b); err != nil {
		w.failed.Add(1)
		w.log.Error().Err(err).Msg("persist cart")
		return
	}
	w.written.Add(1)
	w.log.Debug().Int("items", len(s.Items)).Int("bytes", len(b)).Msg("cart persisted")
}

// Close detaches from the store, drains pending writes and stops the
// goroutine, or gives up when ctx ends.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		for _, u := range w.unsub {
			u()
		}
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type Stats struct {
	Written int64
	Dropped int64
	Failed  int64
}

func (w *Writer) Stats() Stats {
	return Stats{Written: w.written.Load(), Dropped: w.dropped.Load(), Failed: w.failed.Load()}
}
