// Package order turns a cart into an order message and hands it to a
// dispatcher: a chat deep link or the order exchange.
package order

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ahinestrog/cartengine/internal/cart"
)

// FormatRupiah renders an amount the way the storefront shows prices,
// e.g. "Rp 45.000". Amounts are rounded to whole rupiah.
func FormatRupiah(v float64) string {
	return "Rp " + humanize.FormatFloat("#.###,", v)
}

type Composer struct {
	Header string
	Footer string
}

func NewComposer() Composer {
	return Composer{
		Header: "*🛍️ NEW ORDER*",
		Footer: "Please process this order. Thank you! 🙏",
	}
}

// Compose renders every cart line followed by the totals.
func (c Composer) Compose(s cart.Snapshot) string {
	var b strings.Builder
	b.WriteString(c.Header)
	b.WriteString("\n\n")
	for i, it := range s.Items {
		if i > 0 {
			b.WriteString("\n")
		}
		writeLine(&b, i+1, it)
	}
	fmt.Fprintf(&b, "\n---\n*Total Items:* %d\n*Grand Total:* %s\n\n%s",
		s.TotalItems, FormatRupiah(s.Subtotal), c.Footer)
	return b.String()
}

// ComposeBuyNow renders a single-product order without touching the cart.
func (c Composer) ComposeBuyNow(p cart.Product, quantity int, variant string) string {
	it := cart.Item{Product: p, Quantity: quantity, SelectedVariant: variant}
	t := cart.Recompute([]cart.Item{it})
	return c.Compose(cart.Snapshot{Items: []cart.Item{it}, TotalItems: t.TotalItems, Subtotal: t.Subtotal})
}

func writeLine(b *strings.Builder, n int, it cart.Item) {
	fmt.Fprintf(b, "%d. %s\n", n, it.Product.Title)
	if it.Product.SKU != "" {
		fmt.Fprintf(b, "   SKU: %s\n", it.Product.SKU)
	}
	if it.SelectedVariant != "" {
		fmt.Fprintf(b, "   Variant: %s\n", it.SelectedVariant)
	}
	fmt.Fprintf(b, "   Qty: %dx @ %s\n", it.Quantity, FormatRupiah(cart.DiscountedPrice(it.Product)))
	fmt.Fprintf(b, "   Subtotal: %s\n", FormatRupiah(it.LineTotal()))
}

// Link builds the wa.me deep link carrying msg. Spaces are sent as %20.
func Link(phone, msg string) string {
	phone = strings.TrimPrefix(strings.TrimSpace(phone), "+")
	return "https://wa.me/" + phone + "?text=" + strings.ReplaceAll(url.QueryEscape(msg), "+", "%20")
}
