package cart

import (
	"strconv"
	"strings"
)

// QuantityInput holds the quantity a shopper is typing for one product and
// applies the clamping rules on top of ValidateQuantity. It starts at 1.
type QuantityInput struct {
	stock int
	value int
	empty bool
	err   error
}

func NewQuantityInput(stock int) *QuantityInput {
	return &QuantityInput{stock: stock, value: 1}
}

// Value is the current candidate; 0 while the field is empty.
func (q *QuantityInput) Value() int {
	if q.empty {
		return 0
	}
	return q.value
}

// Err is the validation outcome surfaced for the current state, if any.
func (q *QuantityInput) Err() error { return q.err }

func (q *QuantityInput) Stock() int { return q.stock }

// Change applies a raw keystroke value. Non-numeric input is ignored.
func (q *QuantityInput) Change(raw string) {
	q.err = nil
	raw = strings.TrimSpace(raw)
	if raw == "" {
		q.empty = true
		return
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return
	}
	switch {
	case n > q.stock:
		q.set(q.stock)
		q.err = &ValidationError{Kind: AboveMaximum, Candidate: float64(n), Stock: q.stock}
	case n >= 0:
		q.set(n)
		if n == 0 {
			q.err = ValidateQuantity(0, q.stock)
		}
	}
}

// Blur runs when the field loses focus: empty or zero resets to 1 and
// reports BelowMinimum, anything else is re-validated and clamped.
func (q *QuantityInput) Blur() {
	if q.empty || q.value == 0 {
		q.set(1)
		q.err = ValidateQuantity(0, q.stock)
		return
	}
	err := ValidateQuantity(float64(q.value), q.stock)
	switch {
	case err == nil:
	case q.value < 1:
		q.set(1)
	case q.value > q.stock:
		q.set(q.stock)
	}
	q.err = err
}

func (q *QuantityInput) Increment() {
	cur := q.current()
	if cur < q.stock {
		q.set(cur + 1)
		q.err = nil
		return
	}
	q.err = &ValidationError{Kind: AboveMaximum, Candidate: float64(cur + 1), Stock: q.stock}
}

func (q *QuantityInput) Decrement() {
	cur := q.current()
	if cur > 1 {
		q.set(cur - 1)
		q.err = nil
	}
}

// Submit validates the value about to be added to the cart.
func (q *QuantityInput) Submit() (int, error) {
	n := q.Value()
	if err := ValidateQuantity(float64(n), q.stock); err != nil {
		q.err = err
		return 0, err
	}
	return n, nil
}

func (q *QuantityInput) current() int {
	if q.empty {
		return 1
	}
	return q.value
}

func (q *QuantityInput) set(n int) {
	q.value = n
	q.empty = false
}
