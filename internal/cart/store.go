package cart

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store owns one cart. Every operation takes the cart from one valid state to
// another; subscribers see the result after the operation has completed.
type Store struct {
	mu     sync.Mutex
	items  []Item
	totals Totals

	subMu  sync.Mutex
	subs   []subscription
	nextID int

	// dispatch keeps handler calls in mutation order when callers overlap.
	dispatch sync.Mutex
	now      func() time.Time
}

type Option func(*Store)

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore builds a store from a previously persisted snapshot. Keys and
// aggregates are recomputed, so the snapshot only has to carry products,
// quantities and variants.
func NewStore(initial Snapshot, opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, o := range opts {
		o(s)
	}
	s.items = Normalize(initial.Items)
	s.totals = Recompute(s.items)
	return s
}

// Normalize recomputes every key, drops non-positive quantities and merges
// rows that resolve to the same key, keeping first-seen order.
func Normalize(items []Item) []Item {
	out := make([]Item, 0, len(items))
	idx := make(map[string]int, len(items))
	for _, it := range items {
		if it.Quantity < 1 {
			continue
		}
		it.VariantKey = ResolveKey(it.Product.ID, it.SelectedVariant)
		if i, ok := idx[it.VariantKey]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		idx[it.VariantKey] = len(out)
		out = append(out, it)
	}
	return out
}

func (s *Store) Subscribe(h Handler) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, fn: h})
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// AddItem merges into the row with the same key or appends a new one. Stock
// bounds are the caller's job (see ValidateQuantity).
func (s *Store) AddItem(p Product, quantity int, variant string) {
	key := ResolveKey(p.ID, variant)

	s.mu.Lock()
	old := 0
	if i := s.indexOf(key); i >= 0 {
		old = s.items[i].Quantity
		s.items[i].Quantity += quantity
	} else {
		s.items = append(s.items, Item{
			Product:         p,
			Quantity:        quantity,
			SelectedVariant: variant,
			VariantKey:      key,
		})
	}
	ev := s.eventLocked(EventItemAdded, key, p, variant)
	ev.Delta = quantity
	ev.OldQuantity = old
	ev.NewQuantity = old + quantity
	if ev.NewQuantity < 1 {
		// a non-positive add on a fresh key must not leave an empty row behind
		s.removeLocked(key)
		ev.NewQuantity = 0
	}
	s.recomputeLocked(&ev)
	s.commit(ev)
}

// RemoveItem deletes the row for key. Unknown keys are a no-op.
func (s *Store) RemoveItem(key string) {
	s.mu.Lock()
	removed, ok := s.removeLocked(key)
	if !ok {
		s.mu.Unlock()
		return
	}
	ev := s.eventLocked(EventItemRemoved, key, removed.Product, removed.SelectedVariant)
	ev.Delta = -removed.Quantity
	ev.OldQuantity = removed.Quantity
	s.recomputeLocked(&ev)
	s.commit(ev)
}

// UpdateQuantity replaces the quantity of an existing row; quantity <= 0
// removes it. Unknown keys are a no-op.
func (s *Store) UpdateQuantity(key string, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(key)
		return
	}

	s.mu.Lock()
	i := s.indexOf(key)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	it := s.items[i]
	s.items[i].Quantity = quantity
	ev := s.eventLocked(EventQuantityUpdated, key, it.Product, it.SelectedVariant)
	ev.Delta = quantity - it.Quantity
	ev.OldQuantity = it.Quantity
	ev.NewQuantity = quantity
	s.recomputeLocked(&ev)
	s.commit(ev)
}

func (s *Store) ClearCart() {
	s.mu.Lock()
	removed := s.totals.TotalItems
	s.items = nil
	ev := s.eventLocked(EventCartCleared, "", Product{}, "")
	ev.Delta = -removed
	ev.OldQuantity = removed
	s.recomputeLocked(&ev)
	s.commit(ev)
}

// GetItemQuantity returns the quantity stored under (productID, variant), or 0.
func (s *Store) GetItemQuantity(productID int64, variant string) int {
	key := ResolveKey(productID, variant)
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(key); i >= 0 {
		return s.items[i].Quantity
	}
	return 0
}

// IsInCart reports whether the pair is in the cart. With an empty variant
// any row of the product counts.
func (s *Store) IsInCart(productID int64, variant string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if variant != "" {
		return s.indexOf(ResolveKey(productID, variant)) >= 0
	}
	for _, it := range s.items {
		if it.Product.ID == productID {
			return true
		}
	}
	return false
}

// Find returns a copy of the row stored under key.
func (s *Store) Find(key string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(key); i >= 0 {
		return s.items[i], true
	}
	return Item{}, false
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Items returns a copy of the rows in insertion order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) indexOf(key string) int {
	for i := range s.items {
		if s.items[i].VariantKey == key {
			return i
		}
	}
	return -1
}

func (s *Store) removeLocked(key string) (Item, bool) {
	i := s.indexOf(key)
	if i < 0 {
		return Item{}, false
	}
	it := s.items[i]
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	return it, true
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Items:      cloneItems(s.items),
		TotalItems: s.totals.TotalItems,
		Subtotal:   s.totals.Subtotal,
	}
}

func (s *Store) eventLocked(kind EventKind, key string, p Product, variant string) Event {
	return Event{
		ID:      uuid.New(),
		Kind:    kind,
		At:      s.now(),
		Key:     key,
		Product: p,
		Variant: variant,
	}
}

func (s *Store) recomputeLocked(ev *Event) {
	s.totals = Recompute(s.items)
	ev.Snapshot = s.snapshotLocked()
}

// commit releases mu and delivers ev. dispatch is taken before mu is dropped
// so events leave in the order the mutations were applied. Handlers get the
// post-mutation snapshot on the event and must not call back into the store.
func (s *Store) commit(ev Event) {
	s.dispatch.Lock()
	s.mu.Unlock()
	defer s.dispatch.Unlock()

	s.subMu.Lock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()
	for _, sub := range subs {
		sub.fn(ev)
	}
}
