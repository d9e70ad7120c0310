package cart

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventItemAdded       EventKind = "item.added"
	EventItemRemoved     EventKind = "item.removed"
	EventQuantityUpdated EventKind = "item.quantity_updated"
	EventCartCleared     EventKind = "cart.cleared"
)

// Event describes one applied mutation. Snapshot is the cart after it.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Kind        EventKind `json:"kind"`
	At          time.Time `json:"at"`
	Key         string    `json:"variantKey,omitempty"`
	Product     Product   `json:"product"`
	Variant     string    `json:"variant,omitempty"`
	Delta       int       `json:"delta"`
	OldQuantity int       `json:"oldQuantity"`
	NewQuantity int       `json:"newQuantity"`
	Snapshot    Snapshot  `json:"snapshot"`
}

// Handler receives events synchronously, in mutation order. It must not
// block or call back into the store; slow work belongs on the handler's own
// goroutine.
type Handler func(Event)

type subscription struct {
	id int
	fn Handler
}
