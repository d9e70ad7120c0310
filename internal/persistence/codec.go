// Package persistence serialises the cart to a storage slot and restores it
// on startup.
package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/ahinestrog/cartengine/internal/cart"
)

// DefaultKey is the fixed namespace the cart lives under.
const DefaultKey = "cart-storage"

// SchemaVersion is written with every blob. Blobs without a version field
// are the legacy shape and read as version 0.
const SchemaVersion = 1

type document struct {
	Version    int         `json:"version"`
	Items      []cart.Item `json:"items"`
	TotalItems int         `json:"totalItems"`
	Subtotal   float64     `json:"subtotal"`
}

type CorruptError struct {
	Reason string
	Err    error
}

func (e *CorruptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("persisted cart corrupt: %s: %v", e.Reason, e.Err)
	}
	return "persisted cart corrupt: " + e.Reason
}

func (e *CorruptError) Unwrap() error { return e.Err }

func Encode(s cart.Snapshot) ([]byte, error) {
	items := s.Items
	if items == nil {
		items = []cart.Item{}
	}
	return json.Marshal(document{
		Version:    SchemaVersion,
		Items:      items,
		TotalItems: s.TotalItems,
		Subtotal:   s.Subtotal,
	})
}

// Decode parses a persisted blob. Keys and aggregates are recomputed from
// the items rather than trusted; any shape problem is a *CorruptError.
func Decode(b []byte) (cart.Snapshot, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return cart.EmptySnapshot(), &CorruptError{Reason: "not a JSON object", Err: err}
	}
	if _, ok := raw["items"]; !ok {
		// legacy browser-persist envelope: {"state":{...},"version":0}
		if inner, ok := raw["state"]; ok {
			return Decode(inner)
		}
		return cart.EmptySnapshot(), &CorruptError{Reason: "missing items"}
	}

	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return cart.EmptySnapshot(), &CorruptError{Reason: "bad field types", Err: err}
	}
	if doc.Version < 0 || doc.Version > SchemaVersion {
		return cart.EmptySnapshot(), &CorruptError{Reason: fmt.Sprintf("unsupported version %d", doc.Version)}
	}
	for i, it := range doc.Items {
		if it.Product.ID == 0 && it.Product.Title == "" && it.Product.Price == 0 {
			return cart.EmptySnapshot(), &CorruptError{Reason: fmt.Sprintf("item %d has no product", i)}
		}
		if it.Product.Price < 0 || it.Product.DiscountPercentage < 0 || it.Product.DiscountPercentage > 100 {
			return cart.EmptySnapshot(), &CorruptError{Reason: fmt.Sprintf("item %d has an invalid price", i)}
		}
	}

	items := cart.Normalize(doc.Items)
	t := cart.Recompute(items)
	return cart.Snapshot{Items: items, TotalItems: t.TotalItems, Subtotal: t.Subtotal}, nil
}
