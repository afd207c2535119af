package ledger

import "github.com/shopspring/decimal"

// PriceSource explains where an effective price came from.
type PriceSource string

// Price sources.
const (
	PriceDefault PriceSource = "default"
	PriceCustom  PriceSource = "custom"
	// PriceDormant is a stored custom price that is ignored because custom
	// pricing is switched off.
	PriceDormant PriceSource = "dormant"
)

// EffectivePrice resolves the unit price of a new sale for c. A nil customer
// (walk-in not yet selected) gets the global default.
func EffectivePrice(c *Customer, s Settings) decimal.Decimal {
	price, _ := ResolvePrice(c, s)
	return price
}

// ResolvePrice is EffectivePrice plus the source of the price.
func ResolvePrice(c *Customer, s Settings) (decimal.Decimal, PriceSource) {
	if c == nil || c.CustomUnitPrice == nil {
		return s.UnitPrice, PriceDefault
	}
	if !s.CustomPricingEnabled {
		return s.UnitPrice, PriceDormant
	}
	return *c.CustomUnitPrice, PriceCustom
}

// LineTotal is quantity times unit price.
func LineTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
