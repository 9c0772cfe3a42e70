package payment

import (
	"fmt"
	"math"
)

// Breakdown is the result of a fee computation. Subtotal + Fee == Total
// exactly, at 2 decimal places.
type Breakdown struct {
	Subtotal float64 `json:"subtotal"`
	Fee      float64 `json:"fee"`
	Total    float64 `json:"total"`
}

// Calculator computes amounts due under the configured fee schedules. It is
// stateless and safe for concurrent use.
type Calculator struct {
	fees map[string]Fee
}

// Fee is one payment method's schedule: a fixed amount per checkout plus a
// percentage of the subtotal.
type Fee struct {
	Fixed      float64
	Percentage float64
}

// NewCalculator validates the schedule up front so handlers never hit an
// unknown method or a nonsense rate at request time.
func NewCalculator(fees map[string]Fee) (*Calculator, error) {
	if len(fees) == 0 {
		return nil, fmt.Errorf("fee schedule is empty")
	}
	for method, fee := range fees {
		if method == "" {
			return nil, fmt.Errorf("fee schedule has an unnamed payment method")
		}
		if fee.Fixed < 0 || fee.Percentage < 0 || fee.Percentage >= 100 {
			return nil, fmt.Errorf("invalid fee schedule for %q: fixed=%.2f percentage=%.2f", method, fee.Fixed, fee.Percentage)
		}
	}
	return &Calculator{fees: fees}, nil
}

// Methods lists the configured payment methods.
func (c *Calculator) Methods() []string {
	methods := make([]string, 0, len(c.fees))
	for m := range c.fees {
		methods = append(methods, m)
	}
	return methods
}

// ComputeTotal returns the amount due for quantity units at tierPrice paid by
// method. The fixed fee is charged once per checkout, not per unit.
// Intermediate values keep full precision; only the final total is rounded
// (half-up, 2 decimals), and the reported fee is derived from the rounded
// total so the breakdown always adds up.
func (c *Calculator) ComputeTotal(tierPrice float64, quantity int, method string) (Breakdown, error) {
	if quantity < 1 {
		return Breakdown{}, fmt.Errorf("quantity must be >= 1, got %d", quantity)
	}
	if tierPrice < 0 {
		return Breakdown{}, fmt.Errorf("tier price must not be negative, got %.2f", tierPrice)
	}
	fee, ok := c.fees[method]
	if !ok {
		return Breakdown{}, fmt.Errorf("unknown payment method %q", method)
	}

	subtotal := tierPrice * float64(quantity)
	total := roundCurrency(subtotal + fee.Fixed + subtotal*fee.Percentage/100)
	subtotal = roundCurrency(subtotal)

	return Breakdown{
		Subtotal: subtotal,
		Fee:      roundCurrency(total - subtotal),
		Total:    total,
	}, nil
}

// ComputeSubtotalTotal is ComputeTotal for an already-summed subtotal, used
// when one checkout settles codes of mixed tiers.
func (c *Calculator) ComputeSubtotalTotal(subtotal float64, method string) (Breakdown, error) {
	if subtotal < 0 {
		return Breakdown{}, fmt.Errorf("subtotal must not be negative, got %.2f", subtotal)
	}
	fee, ok := c.fees[method]
	if !ok {
		return Breakdown{}, fmt.Errorf("unknown payment method %q", method)
	}

	total := roundCurrency(subtotal + fee.Fixed + subtotal*fee.Percentage/100)
	subtotal = roundCurrency(subtotal)

	return Breakdown{
		Subtotal: subtotal,
		Fee:      roundCurrency(total - subtotal),
		Total:    total,
	}, nil
}

// roundCurrency rounds half-up to 2 decimal places.
func roundCurrency(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
