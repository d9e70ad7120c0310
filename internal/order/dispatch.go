package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ahinestrog/cartengine/internal/broker"
	"github.com/ahinestrog/cartengine/internal/cart"
)

// Request is one composed order on its way out.
type Request struct {
	ID       uuid.UUID
	At       time.Time
	BuyNow   bool
	Snapshot cart.Snapshot
	Message  string
	Link     string
}

type Dispatcher interface {
	Dispatch(ctx context.Context, r Request) error
}

// LinkDispatcher hands the deep link to Open, e.g. to print it or launch a
// browser.
type LinkDispatcher struct {
	Open func(ctx context.Context, link string) error
}

func (d LinkDispatcher) Dispatch(ctx context.Context, r Request) error {
	if d.Open == nil {
		return errors.New("order: link dispatcher has no opener")
	}
	if r.Link == "" {
		return errors.New("order: request has no link")
	}
	return d.Open(ctx, r.Link)
}

// BrokerDispatcher publishes order.requested on the exchange.
type BrokerDispatcher struct {
	pub broker.Publisher
}

func NewBrokerDispatcher(pub broker.Publisher) *BrokerDispatcher {
	return &BrokerDispatcher{pub: pub}
}

func (d *BrokerDispatcher) Dispatch(ctx context.Context, r Request) error {
	body, err := broker.Marshal(RKOrderRequested, r.At, payloadFor(r))
	if err != nil {
		return err
	}
	if err := d.pub.Publish(ctx, RKOrderRequested, body); err != nil {
		return fmt.Errorf("publish %s: %w", RKOrderRequested, err)
	}
	return nil
}

// Multi dispatches to every dispatcher in turn and stops at the first error.
type Multi []Dispatcher

func (m Multi) Dispatch(ctx context.Context, r Request) error {
	for _, d := range m {
		if err := d.Dispatch(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
