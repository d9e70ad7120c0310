package order

import (
	"github.com/google/uuid"

	"github.com/ahinestrog/cartengine/internal/cart"
)

// Published by checkout.
const RKOrderRequested = "order.requested"

type RequestedPayload struct {
	OrderID    uuid.UUID `json:"order_id"`
	BuyNow     bool      `json:"buy_now,omitempty"`
	Items      []ItemEvt `json:"items"`
	TotalItems int       `json:"total_items"`
	Subtotal   float64   `json:"subtotal"`
	Message    string    `json:"message"`
	Link       string    `json:"link,omitempty"`
}

type ItemEvt struct {
	ProductID int64   `json:"product_id"`
	Title     string  `json:"title"`
	SKU       string  `json:"sku,omitempty"`
	Variant   string  `json:"variant,omitempty"`
	Qty       int     `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}

func payloadFor(r Request) RequestedPayload {
	items := make([]ItemEvt, 0, len(r.Snapshot.Items))
	for _, it := range r.Snapshot.Items {
		items = append(items, ItemEvt{
			ProductID: it.Product.ID,
			Title:     it.Product.Title,
			SKU:       it.Product.SKU,
			Variant:   it.SelectedVariant,
			Qty:       it.Quantity,
			UnitPrice: cart.DiscountedPrice(it.Product),
			LineTotal: it.LineTotal(),
		})
	}
	return RequestedPayload{
		OrderID:    r.ID,
		BuyNow:     r.BuyNow,
		Items:      items,
		TotalItems: r.Snapshot.TotalItems,
		Subtotal:   r.Snapshot.Subtotal,
		Message:    r.Message,
		Link:       r.Link,
	}
}
