package cart

type Totals struct {
	TotalItems int
	Subtotal   float64
}

// Recompute walks the whole item list; aggregates are never patched
// incrementally. No rounding happens here, only at display time.
func Recompute(items []Item) Totals {
	var t Totals
	for _, it := range items {
		t.TotalItems += it.Quantity
		t.Subtotal += DiscountedPrice(it.Product) * float64(it.Quantity)
	}
	return t
}

// OriginalSubtotal is the list-price total, before discounts.
func OriginalSubtotal(items []Item) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Product.Price * float64(it.Quantity)
	}
	return sum
}
