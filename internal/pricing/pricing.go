// Package pricing computes checkout totals. All amounts are in cents so that
// "round to two decimal places" means rounding to a whole number of cents.
package pricing

import (
	"math"

	"storefront/config"
)

// Line is one (unit price, quantity) pair to be priced.
type Line struct {
	UnitPrice int64
	Quantity  int
}

// Quote is the result of pricing a set of lines.
type Quote struct {
	Subtotal    int64 `json:"subtotal"`
	Tax         int64 `json:"tax"`
	ShippingFee int64 `json:"shipping_fee"`
	Total       int64 `json:"total"`
}

// Calculator prices carts from configured business rules. It is a pure
// computation with no error conditions.
type Calculator struct {
	cfg config.BusinessConfig
}

// NewCalculator creates a calculator from business configuration.
func NewCalculator(cfg config.BusinessConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// Compute prices the given lines for a destination country.
//
// Tax applies to the subtotal only, never to shipping. The shipping fee is
// the sum of three independent components: a tier fee chosen by total item
// count, a flat international surcharge when the destination differs from the
// home country, and a small-order surcharge when the subtotal is positive but
// below the configured threshold.
func (c *Calculator) Compute(lines []Line, destinationCountry string) Quote {
	var subtotal int64
	var itemCount int
	for _, l := range lines {
		subtotal += l.UnitPrice * int64(l.Quantity)
		itemCount += l.Quantity
	}

	tax := roundCents(float64(subtotal) * c.cfg.TaxRate)
	shipping := c.shippingFee(itemCount, subtotal, destinationCountry)

	return Quote{
		Subtotal:    subtotal,
		Tax:         tax,
		ShippingFee: shipping,
		Total:       subtotal + tax + shipping,
	}
}

func (c *Calculator) shippingFee(itemCount int, subtotal int64, destination string) int64 {
	var fee int64
	switch {
	case itemCount <= c.cfg.LowTierMaxItems:
		fee = c.cfg.ShippingFeeLowTier
	case itemCount <= c.cfg.MidTierMaxItems:
		fee = c.cfg.ShippingFeeMidTier
	default:
		fee = c.cfg.ShippingFeeHighTier
	}

	if destination != c.cfg.HomeCountry {
		fee += c.cfg.IntlSurcharge
	}
	if subtotal > 0 && subtotal < c.cfg.SmallOrderThreshold {
		fee += c.cfg.SmallOrderSurcharge
	}
	return fee
}

func roundCents(v float64) int64 {
	return int64(math.Round(v))
}
