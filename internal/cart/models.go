package cart

import "fmt"

// Product is the catalog snapshot taken when an item is added. The engine
// never re-reads it, so price and stock are as of add time.
type Product struct {
	ID                 int64          `json:"id"`
	Title              string         `json:"title"`
	SKU                string         `json:"sku,omitempty"`
	Price              float64        `json:"price"`
	DiscountPercentage float64        `json:"discountPercentage"`
	Stock              int            `json:"stock"`
	Variants           []ColorVariant `json:"variants,omitempty"`
}

type ColorVariant struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// Label is the variant selector stored on cart items, e.g. "Maroon (8012)".
func (v ColorVariant) Label() string { return VariantLabel(v.Name, v.Code) }

func VariantLabel(name, code string) string {
	return fmt.Sprintf("%s (%s)", name, code)
}

// DiscountedPrice is the per-unit price used in every aggregate.
func DiscountedPrice(p Product) float64 {
	return p.Price * (1 - p.DiscountPercentage/100)
}

// Item is one cart row. VariantKey is derived from Product.ID and
// SelectedVariant; the store recomputes it on every write.
type Item struct {
	Product         Product `json:"product"`
	Quantity        int     `json:"quantity"`
	SelectedVariant string  `json:"selectedVariant,omitempty"`
	VariantKey      string  `json:"variantKey"`
}

func (it Item) LineTotal() float64 { return DiscountedPrice(it.Product) * float64(it.Quantity) }

// Snapshot is a read-only copy of the cart handed to subscribers, the
// persistence layer and the order composer.
type Snapshot struct {
	Items      []Item  `json:"items"`
	TotalItems int     `json:"totalItems"`
	Subtotal   float64 `json:"subtotal"`
}

func (s Snapshot) IsEmpty() bool { return len(s.Items) == 0 }

// Savings is the undiscounted total minus the discounted subtotal.
func (s Snapshot) Savings() float64 { return OriginalSubtotal(s.Items) - s.Subtotal }

// EmptySnapshot is the state every fresh or unreadable cart starts from.
func EmptySnapshot() Snapshot { return Snapshot{Items: []Item{}} }

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
