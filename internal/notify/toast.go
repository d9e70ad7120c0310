// Package notify turns cart events into user-facing effects: transient
// toasts and messages on the event exchange.
package notify

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ahinestrog/cartengine/internal/cart"
)

type Toast struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Destructive bool   `json:"destructive,omitempty"`
}

// Toaster renders a toast for every store event, logs it and passes it to
// the optional sink.
type Toaster struct {
	log  zerolog.Logger
	sink func(Toast)
}

func NewToaster(log zerolog.Logger, sink func(Toast)) *Toaster {
	return &Toaster{log: log.With().Str("component", "toaster").Logger(), sink: sink}
}

// Attach subscribes to store and returns the unsubscribe func.
func (t *Toaster) Attach(store *cart.Store) func() { return store.Subscribe(t.Handle) }

func (t *Toaster) Handle(ev cart.Event) {
	toast, ok := ForEvent(ev)
	if !ok {
		return
	}
	t.Show(toast)
}

func (t *Toaster) Show(toast Toast) {
	e := t.log.Info()
	if toast.Destructive {
		e = t.log.Warn()
	}
	e.Str("title", toast.Title).Msg(toast.Description)
	if t.sink != nil {
		t.sink(toast)
	}
}

// ForEvent maps a store event to its toast. Adds that left nothing behind
// produce none.
func ForEvent(ev cart.Event) (Toast, bool) {
	switch ev.Kind {
	case cart.EventItemAdded:
		if ev.Delta < 1 {
			return Toast{}, false
		}
		return Toast{
			Title:       "Added to cart! 🛒",
			Description: fmt.Sprintf("%s (%dx)", itemLabel(ev.Product.Title, ev.Variant), ev.Delta),
		}, true
	case cart.EventItemRemoved:
		return Toast{
			Title:       "Removed from cart",
			Description: itemLabel(ev.Product.Title, ev.Variant),
			Destructive: true,
		}, true
	case cart.EventQuantityUpdated:
		return Toast{
			Title:       "Quantity updated",
			Description: fmt.Sprintf("%s (%dx)", itemLabel(ev.Product.Title, ev.Variant), ev.NewQuantity),
		}, true
	case cart.EventCartCleared:
		return Toast{Title: "Cart cleared", Description: "Your cart is now empty."}, true
	}
	return Toast{}, false
}

func itemLabel(title, variant string) string {
	if variant == "" {
		return title
	}
	return title + " - " + variant
}

func OrderSent() Toast {
	return Toast{Title: "Order sent!", Description: "Your cart has been cleared."}
}

func CartEmpty() Toast {
	return Toast{Title: "Cart is empty", Description: "Please add items to cart before checkout", Destructive: true}
}

// InvalidQuantity reports a rejected quantity with the validation message.
func InvalidQuantity(err error) Toast {
	return Toast{Title: "Invalid quantity", Description: err.Error(), Destructive: true}
}

func StockLimit(stock int) Toast {
	return Toast{
		Title:       "Stock limit reached",
		Description: fmt.Sprintf("Maximum available stock is %d units", stock),
		Destructive: true,
	}
}
