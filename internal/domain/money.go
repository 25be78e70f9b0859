package domain

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var nonPriceChars = regexp.MustCompile(`[^0-9,]`)

// ParsePrice converts a legacy display price such as "R$229,90" or
// "R$1.299,90" into a decimal amount. Unparseable or negative input
// yields zero rather than an error.
func ParsePrice(s string) decimal.Decimal {
	clean := nonPriceChars.ReplaceAllString(s, "")
	clean = strings.Replace(clean, ",", ".", 1)
	d, err := decimal.NewFromString(clean)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Price is a decimal currency amount. Historical data encoded prices both
// as plain numbers and as formatted strings, so decoding accepts either;
// encoding always emits the decimal form.
type Price struct {
	decimal.Decimal
}

func NewPrice(d decimal.Decimal) Price {
	return Price{Decimal: d}
}

func PriceFromFloat(f float64) Price {
	return Price{Decimal: decimal.NewFromFloat(f)}
}

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		p.Decimal = decimal.Zero
		return nil
	}
	if data[0] == '"' {
		s := strings.Trim(string(data), `"`)
		if d, err := decimal.NewFromString(s); err == nil && !d.IsNegative() {
			p.Decimal = d
			return nil
		}
		p.Decimal = ParsePrice(s)
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil || d.IsNegative() {
		p.Decimal = decimal.Zero
		return nil
	}
	p.Decimal = d
	return nil
}
