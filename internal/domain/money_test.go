package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"formatted real", "R$229,90", "229.9"},
		{"thousands separator", "R$1.299,90", "1299.9"},
		{"plain digits", "150", "150"},
		{"empty", "", "0"},
		{"garbage", "abc", "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			want, err := decimal.NewFromString(tc.want)
			require.NoError(t, err)
			assert.True(t, ParsePrice(tc.input).Equal(want), "got %s", ParsePrice(tc.input))
		})
	}
}

func TestPriceUnmarshalJSON(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"number", `{"price": 229.9}`, "229.9"},
		{"decimal string", `{"price": "229.90"}`, "229.9"},
		{"legacy formatted string", `{"price": "R$229,90"}`, "229.9"},
		{"null", `{"price": null}`, "0"},
		{"negative number clamps to zero", `{"price": -5}`, "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var decoded struct {
				Price Price `json:"price"`
			}
			require.NoError(t, json.Unmarshal([]byte(tc.input), &decoded))

			want, err := decimal.NewFromString(tc.want)
			require.NoError(t, err)
			assert.True(t, decoded.Price.Equal(want), "got %s", decoded.Price)
		})
	}
}

func TestPriceMarshalRoundTrip(t *testing.T) {
	item := CartItem{ProductID: 1, Name: "Tenis X", Price: PriceFromFloat(150), Quantity: 2}

	raw, err := json.Marshal(item)
	require.NoError(t, err)

	var decoded CartItem
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, decoded.Price.Equal(item.Price.Decimal))
	assert.Equal(t, item.Quantity, decoded.Quantity)
}
