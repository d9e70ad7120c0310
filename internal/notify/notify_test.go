package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahinestrog/cartengine/internal/cart"
)

var spandex = cart.Product{ID: 1, Title: "Multi kain mutilato 4 way spandex", Price: 50000, DiscountPercentage: 10, Stock: 100}

func TestToaster_Messages(t *testing.T) {
	var got []Toast
	store := cart.NewStore(cart.EmptySnapshot())
	NewToaster(zerolog.Nop(), func(t Toast) { got = append(got, t) }).Attach(store)

	store.AddItem(spandex, 2, "Maroon (8012)")
	store.AddItem(spandex, 3, "")
	key := cart.ResolveKey(spandex.ID, "Maroon (8012)")
	store.UpdateQuantity(key, 5)
	store.RemoveItem(key)
	store.RemoveItem(key)
	store.ClearCart()

	assert.Equal(t, []Toast{
		{Title: "Added to cart! 🛒", Description: "Multi kain mutilato 4 way spandex - Maroon (8012) (2x)"},
		{Title: "Added to cart! 🛒", Description: "Multi kain mutilato 4 way spandex (3x)"},
		{Title: "Quantity updated", Description: "Multi kain mutilato 4 way spandex - Maroon (8012) (5x)"},
		{Title: "Removed from cart", Description: "Multi kain mutilato 4 way spandex - Maroon (8012)", Destructive: true},
		{Title: "Cart cleared", Description: "Your cart is now empty."},
	}, got)
}

func TestForEvent_NonPositiveAdd(t *testing.T) {
	_, ok := ForEvent(cart.Event{Kind: cart.EventItemAdded, Delta: 0})
	assert.False(t, ok)
	_, ok = ForEvent(cart.Event{Kind: "cart.unknown"})
	assert.False(t, ok)
}

func TestFixedToasts(t *testing.T) {
	assert.Equal(t, "Order sent!", OrderSent().Title)
	assert.True(t, CartEmpty().Destructive)
	assert.Equal(t, "Maximum available stock is 5 units", StockLimit(5).Description)

	err := cart.ValidateQuantity(0, 5)
	assert.Equal(t, "Quantity must be at least 1", InvalidQuantity(err).Description)
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "cart.item.added", RoutingKey(cart.EventItemAdded))
	assert.Equal(t, "cart.item.removed", RoutingKey(cart.EventItemRemoved))
	assert.Equal(t, "cart.item.quantity_updated", RoutingKey(cart.EventQuantityUpdated))
	assert.Equal(t, "cart.cleared", RoutingKey(cart.EventCartCleared))
}

type message struct {
	key  string
	body []byte
}

type fakeBroker struct {
	mu   sync.Mutex
	msgs []message
	err  error
}

func (f *fakeBroker) Publish(_ context.Context, key string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, message{key: key, body: body})
	return nil
}

func closePublisher(t *testing.T, p *Publisher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Close(ctx))
}

func TestPublisher_ForwardsEventsInOrder(t *testing.T) {
	fb := &fakeBroker{}
	store := cart.NewStore(cart.EmptySnapshot())
	p := NewPublisher(fb, 0, zerolog.Nop())
	p.Attach(store)

	store.AddItem(spandex, 2, "")
	store.UpdateQuantity(cart.ResolveKey(spandex.ID, ""), 4)
	store.ClearCart()
	closePublisher(t, p)

	require.Len(t, fb.msgs, 3)
	assert.Equal(t, "cart.item.added", fb.msgs[0].key)
	assert.Equal(t, "cart.item.quantity_updated", fb.msgs[1].key)
	assert.Equal(t, "cart.cleared", fb.msgs[2].key)

	var env struct {
		Type    string     `json:"type"`
		Payload cart.Event `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(fb.msgs[1].body, &env))
	assert.Equal(t, "cart.item.quantity_updated", env.Type)
	assert.Equal(t, 2, env.Payload.OldQuantity)
	assert.Equal(t, 4, env.Payload.NewQuantity)
	assert.Equal(t, 4, env.Payload.Snapshot.TotalItems)
}

func TestPublisher_FailuresDoNotReachTheStore(t *testing.T) {
	fb := &fakeBroker{err: errors.New("connection reset")}
	store := cart.NewStore(cart.EmptySnapshot())
	p := NewPublisher(fb, 1, zerolog.Nop())
	p.Attach(store)

	for i := 0; i < 20; i++ {
		store.AddItem(spandex, 1, "")
	}
	closePublisher(t, p)

	assert.Equal(t, 20, store.GetItemQuantity(spandex.ID, ""))
	assert.Empty(t, fb.msgs)

	store.AddItem(spandex, 1, "")
	assert.NoError(t, p.Close(context.Background()), "second close")
}
