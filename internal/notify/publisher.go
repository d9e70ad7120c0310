package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ahinestrog/cartengine/internal/broker"
	"github.com/ahinestrog/cartengine/internal/cart"
)

const publishTimeout = 5 * time.Second

// RoutingKey maps an event kind onto the cart.* topic space.
func RoutingKey(kind cart.EventKind) string {
	k := string(kind)
	if strings.HasPrefix(k, "cart.") {
		return k
	}
	return "cart." + k
}

// Publisher forwards store events to the exchange from its own goroutine.
// Delivery is fire-and-forget: a full queue or a failed publish is logged
// and the event is lost.
type Publisher struct {
	pub   broker.Publisher
	log   zerolog.Logger
	queue chan cart.Event

	mu     sync.RWMutex
	closed bool
	unsub  func()
	done   chan struct{}
}

func NewPublisher(pub broker.Publisher, queue int, log zerolog.Logger) *Publisher {
	if queue <= 0 {
		queue = 64
	}
	p := &Publisher{
		pub:   pub,
		log:   log.With().Str("component", "cart-publisher").Logger(),
		queue: make(chan cart.Event, queue),
		done:  make(chan struct{}),
	}
	go p.loop()
	return p
}

func (p *Publisher) Attach(store *cart.Store) {
	unsub := store.Subscribe(p.Handle)
	p.mu.Lock()
	p.unsub = unsub
	p.mu.Unlock()
}

func (p *Publisher) Handle(ev cart.Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- ev:
	default:
		p.log.Warn().Str("kind", string(ev.Kind)).Str("event_id", ev.ID.String()).Msg("publish queue full, dropping event")
	}
}

func (p *Publisher) loop() {
	defer close(p.done)
	for ev := range p.queue {
		p.publish(ev)
	}
}

func (p *Publisher) publish(ev cart.Event) {
	rk := RoutingKey(ev.Kind)
	body, err := broker.Marshal(rk, ev.At, ev)
	if err != nil {
		p.log.Error().Err(err).Str("rk", rk).Msg("marshal event")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.pub.Publish(ctx, rk, body); err != nil {
		p.log.Error().Err(err).Str("rk", rk).Msg("publish event")
		return
	}
	p.log.Debug().Str("rk", rk).Str("event_id", ev.ID.String()).Msg("event published")
}

// Close detaches from the store and waits for queued events to go out.
func (p *Publisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		if p.unsub != nil {
			p.unsub()
		}
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
