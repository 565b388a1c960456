package pricing

import (
	"testing"

	"storefront/config"

	"github.com/stretchr/testify/assert"
)

func testConfig() config.BusinessConfig {
	return config.BusinessConfig{
		TaxRate:             0.10,
		HomeCountry:         "US",
		ShippingFeeLowTier:  500,
		ShippingFeeMidTier:  900,
		ShippingFeeHighTier: 1500,
		LowTierMaxItems:     5,
		MidTierMaxItems:     10,
		IntlSurcharge:       1000,
		SmallOrderSurcharge: 200,
		SmallOrderThreshold: 2000,
	}
}

func TestComputeDomesticOrder(t *testing.T) {
	calc := NewCalculator(testConfig())

	// 3 x $10.00, no surcharges: subtotal $30, tax $3, low tier shipping
	q := calc.Compute([]Line{{UnitPrice: 1000, Quantity: 3}}, "US")

	assert.Equal(t, int64(3000), q.Subtotal)
	assert.Equal(t, int64(300), q.Tax)
	assert.Equal(t, int64(500), q.ShippingFee)
	assert.Equal(t, int64(3800), q.Total)
}

func TestComputeInternationalHighTier(t *testing.T) {
	calc := NewCalculator(testConfig())

	// 12 x $5.00 shipped abroad: high tier plus international surcharge,
	// combined additively
	q := calc.Compute([]Line{{UnitPrice: 500, Quantity: 12}}, "DE")

	assert.Equal(t, int64(6000), q.Subtotal)
	assert.Equal(t, int64(600), q.Tax)
	assert.Equal(t, int64(1500+1000), q.ShippingFee)
	assert.Equal(t, int64(6000+600+2500), q.Total)
}

func TestComputeSmallOrderSurcharge(t *testing.T) {
	calc := NewCalculator(testConfig())

	q := calc.Compute([]Line{{UnitPrice: 500, Quantity: 1}}, "US")

	assert.Equal(t, int64(500), q.Subtotal)
	assert.Equal(t, int64(50), q.Tax)
	assert.Equal(t, int64(500+200), q.ShippingFee)
}

func TestComputeTierBoundaries(t *testing.T) {
	calc := NewCalculator(testConfig())

	cases := []struct {
		name     string
		quantity int
		fee      int64
	}{
		{"at low tier cutoff", 5, 500},
		{"just above low tier", 6, 900},
		{"at mid tier cutoff", 10, 900},
		{"just above mid tier", 11, 1500},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := calc.Compute([]Line{{UnitPrice: 10000, Quantity: tc.quantity}}, "US")
			assert.Equal(t, tc.fee, q.ShippingFee)
		})
	}
}

func TestComputeEmptyLines(t *testing.T) {
	calc := NewCalculator(testConfig())

	// empty cart: zero subtotal and tax, base low tier fee, no small-order
	// surcharge since the subtotal is not positive
	q := calc.Compute(nil, "US")
	assert.Equal(t, int64(0), q.Subtotal)
	assert.Equal(t, int64(0), q.Tax)
	assert.Equal(t, int64(500), q.ShippingFee)

	// international surcharge still applies
	q = calc.Compute(nil, "FR")
	assert.Equal(t, int64(500+1000), q.ShippingFee)
}

func TestComputeTaxRounding(t *testing.T) {
	cfg := testConfig()
	cfg.TaxRate = 0.07
	calc := NewCalculator(cfg)

	// 3 x $0.33 = $0.99; 7% = 6.93 cents, rounds to 7. Tax is rounded once
	// on the aggregate, not per line.
	q := calc.Compute([]Line{{UnitPrice: 33, Quantity: 3}}, "US")
	assert.Equal(t, int64(99), q.Subtotal)
	assert.Equal(t, int64(7), q.Tax)
}

func TestComputeTotalIdentity(t *testing.T) {
	calc := NewCalculator(testConfig())

	lines := []Line{
		{UnitPrice: 1299, Quantity: 2},
		{UnitPrice: 450, Quantity: 7},
		{UnitPrice: 25, Quantity: 1},
	}

	for _, country := range []string{"US", "JP"} {
		q := calc.Compute(lines, country)
		assert.Equal(t, q.Subtotal+q.Tax+q.ShippingFee, q.Total)
	}
}
