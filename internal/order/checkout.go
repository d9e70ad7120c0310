package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ahinestrog/cartengine/internal/cart"
	"github.com/ahinestrog/cartengine/internal/notify"
)

var ErrEmptyCart = errors.New("cart is empty")

type Checkout struct {
	store    *cart.Store
	composer Composer
	dispatch Dispatcher
	phone    string
	log      zerolog.Logger
	toast    func(notify.Toast)
	now      func() time.Time
}

type CheckoutOption func(*Checkout)

// WithToasts routes the checkout confirmations to fn.
func WithToasts(fn func(notify.Toast)) CheckoutOption {
	return func(c *Checkout) { c.toast = fn }
}

func WithComposer(comp Composer) CheckoutOption {
	return func(c *Checkout) { c.composer = comp }
}

func NewCheckout(store *cart.Store, d Dispatcher, phone string, log zerolog.Logger, opts ...CheckoutOption) *Checkout {
	c := &Checkout{
		store:    store,
		composer: NewComposer(),
		dispatch: d,
		phone:    phone,
		log:      log.With().Str("component", "checkout").Logger(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run sends the whole cart. The cart is cleared only after a successful
// dispatch; an empty cart dispatches nothing.
func (c *Checkout) Run(ctx context.Context) (Request, error) {
	snap := c.store.Snapshot()
	if snap.IsEmpty() {
		c.show(notify.CartEmpty())
		return Request{}, ErrEmptyCart
	}

	r := c.request(snap, c.composer.Compose(snap), false)
	if err := c.dispatch.Dispatch(ctx, r); err != nil {
		c.log.Error().Err(err).Str("order_id", r.ID.String()).Msg("checkout dispatch failed, cart kept")
		return Request{}, err
	}
	c.store.ClearCart()
	c.log.Info().
		Str("order_id", r.ID.String()).
		Int("total_items", snap.TotalItems).
		Str("subtotal", FormatRupiah(snap.Subtotal)).
		Msg("order sent")
	c.show(notify.OrderSent())
	return r, nil
}

// BuyNow validates quantity against stock, adds the product to the cart and
// dispatches an order for that product alone. The cart is not cleared.
func (c *Checkout) BuyNow(ctx context.Context, p cart.Product, quantity int, variant string) (Request, error) {
	if err := cart.ValidateQuantity(float64(quantity), p.Stock); err != nil {
		c.show(notify.InvalidQuantity(err))
		return Request{}, err
	}
	c.store.AddItem(p, quantity, variant)

	it := cart.Item{Product: p, Quantity: quantity, SelectedVariant: variant, VariantKey: cart.ResolveKey(p.ID, variant)}
	t := cart.Recompute([]cart.Item{it})
	snap := cart.Snapshot{Items: []cart.Item{it}, TotalItems: t.TotalItems, Subtotal: t.Subtotal}

	r := c.request(snap, c.composer.ComposeBuyNow(p, quantity, variant), true)
	if err := c.dispatch.Dispatch(ctx, r); err != nil {
		c.log.Error().Err(err).Str("order_id", r.ID.String()).Msg("buy-now dispatch failed")
		return Request{}, err
	}
	c.log.Info().Str("order_id", r.ID.String()).Int64("product_id", p.ID).Int("qty", quantity).Msg("buy-now order sent")
	return r, nil
}

func (c *Checkout) request(snap cart.Snapshot, msg string, buyNow bool) Request {
	r := Request{
		ID:       uuid.New(),
		At:       c.now(),
		BuyNow:   buyNow,
		Snapshot: snap,
		Message:  msg,
	}
	if c.phone != "" {
		r.Link = Link(c.phone, msg)
	}
	return r
}

func (c *Checkout) show(t notify.Toast) {
	if c.toast != nil {
		c.toast(t)
	}
}
