package persistence

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/ahinestrog/cartengine/internal/cart"
	"github.com/ahinestrog/cartengine/internal/storage"
)

// Rehydrate loads the cart stored under key. It never fails: a missing,
// unreadable or corrupt blob yields an empty cart.
func Rehydrate(ctx context.Context, slot storage.Slot, key string, log zerolog.Logger) cart.Snapshot {
	b, err := slot.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		log.Debug().Str("key", key).Msg("no persisted cart, starting empty")
		return cart.EmptySnapshot()
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("rehydrate: read failed, starting empty")
		return cart.EmptySnapshot()
	}

	snap, err := Decode(b)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Int("bytes", len(b)).Msg("rehydrate: discarding persisted cart")
		return cart.EmptySnapshot()
	}
	log.Info().
		Str("key", key).
		Int("items", len(snap.Items)).
		Int("total_items", snap.TotalItems).
		Msg("cart rehydrated")
	return snap
}

// Open rehydrates a store from slot and attaches a write-through Writer to it.
func Open(ctx context.Context, slot storage.Slot, key string, queue int, log zerolog.Logger, opts ...cart.Option) (*cart.Store, *Writer) {
	store := cart.NewStore(Rehydrate(ctx, slot, key, log), opts...)
	w := NewWriter(slot, key, queue, log)
	w.Attach(store)
	return store, w
}
