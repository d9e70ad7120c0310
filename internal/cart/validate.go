package cart

import (
	"errors"
	"fmt"
	"math"
)

type ErrorKind int

const (
	NotAnInteger ErrorKind = iota + 1
	BelowMinimum
	AboveMaximum
)

func (k ErrorKind) String() string {
	switch k {
	case NotAnInteger:
		return "NOT_AN_INTEGER"
	case BelowMinimum:
		return "BELOW_MINIMUM"
	case AboveMaximum:
		return "ABOVE_MAXIMUM"
	default:
		return "UNKNOWN"
	}
}

// Sentinels for errors.Is; a *ValidationError matches the one of its kind.
var (
	ErrNotAnInteger = errors.New("quantity must be a whole number")
	ErrBelowMinimum = errors.New("quantity must be at least 1")
	ErrAboveMaximum = errors.New("quantity exceeds available stock")
)

type ValidationError struct {
	Kind      ErrorKind
	Candidate float64
	Stock     int
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case NotAnInteger:
		return "Quantity must be a whole number"
	case BelowMinimum:
		return "Quantity must be at least 1"
	case AboveMaximum:
		return fmt.Sprintf("Maximum quantity is %d (available stock)", e.Stock)
	default:
		return "Invalid quantity"
	}
}

func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrNotAnInteger:
		return e.Kind == NotAnInteger
	case ErrBelowMinimum:
		return e.Kind == BelowMinimum
	case ErrAboveMaximum:
		return e.Kind == AboveMaximum
	}
	return false
}

// ValidateQuantity checks a candidate against [1, stock]. It returns nil when
// accepted and a *ValidationError otherwise; it never mutates anything.
func ValidateQuantity(candidate float64, stock int) error {
	if math.IsNaN(candidate) || math.IsInf(candidate, 0) || candidate != math.Trunc(candidate) {
		return &ValidationError{Kind: NotAnInteger, Candidate: candidate, Stock: stock}
	}
	if candidate < 1 {
		return &ValidationError{Kind: BelowMinimum, Candidate: candidate, Stock: stock}
	}
	if candidate > float64(stock) {
		return &ValidationError{Kind: AboveMaximum, Candidate: candidate, Stock: stock}
	}
	return nil
}

// KindOf extracts the validation kind from err, or 0 if err is not one.
func KindOf(err error) ErrorKind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return 0
}
