// Package money provides a fixed-point monetary value type. Amounts are
// stored as integer minor units (e.g. cents) and are never backed by
// floating point.
package money

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrCurrencyMismatch      = errors.New("currency mismatch")
	ErrInvalidCurrencyFormat = errors.New("currency must be a 3-letter code")
)

// Money represents a monetary value with currency. All arithmetic operates
// on minor units only and returns new values.
type Money struct {
	MinorUnits int64  `json:"minor_units"` // Amount in smallest currency unit (cents)
	Currency   string `json:"currency"`    // ISO 4217 currency code
}

// New creates a Money value after validating the currency code
func New(minorUnits int64, currency string) (Money, error) {
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrencyFormat
	}
	return Money{MinorUnits: minorUnits, Currency: currency}, nil
}

// MustNew creates a Money value and panics on an invalid currency code.
// Intended for package-level constants and tests.
func MustNew(minorUnits int64, currency string) Money {
	m, err := New(minorUnits, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns the zero value for the given currency
func Zero(currency string) Money {
	return Money{MinorUnits: 0, Currency: currency}
}

// Add returns m + other
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return Money{MinorUnits: m.MinorUnits + other.MinorUnits, Currency: m.Currency}, nil
}

// Sub returns m - other
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return Money{MinorUnits: m.MinorUnits - other.MinorUnits, Currency: m.Currency}, nil
}

// Neg returns the negation of m
func (m Money) Neg() Money {
	return Money{MinorUnits: -m.MinorUnits, Currency: m.Currency}
}

// Mul returns m scaled by an integer factor
func (m Money) Mul(factor int64) Money {
	return Money{MinorUnits: m.MinorUnits * factor, Currency: m.Currency}
}

func (m Money) IsZero() bool     { return m.MinorUnits == 0 }
func (m Money) IsPositive() bool { return m.MinorUnits > 0 }
func (m Money) IsNegative() bool { return m.MinorUnits < 0 }

// Equal reports whether both amount and currency match
func (m Money) Equal(other Money) bool {
	return m.MinorUnits == other.MinorUnits && m.Currency == other.Currency
}

// String renders the amount with two decimal places, e.g. "100.00 USD".
// Display only; never parse this back into an amount.
func (m Money) String() string {
	units := m.MinorUnits / 100
	cents := m.MinorUnits % 100
	if cents < 0 {
		cents = -cents
	}
	if m.MinorUnits < 0 && units == 0 {
		return fmt.Sprintf("-0.%02d %s", cents, m.Currency)
	}
	return fmt.Sprintf("%d.%02d %s", units, cents, m.Currency)
}
