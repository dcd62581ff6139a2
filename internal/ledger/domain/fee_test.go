package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestComputeFee(t *testing.T) {
	cases := []struct {
		name       string
		amount     string
		percentage string
		flat       string
		wantFee    string
		wantNet    string
	}{
		{"standard schedule", "100.00", "0.025", "0.30", "2.8", "97.2"},
		{"no flat fee", "50.00", "0.02", "0", "1", "49"},
		{"rounds half up", "10.10", "0.025", "0.30", "0.55", "9.55"},
		{"zero amount", "0", "0.025", "0.30", "0.3", "-0.3"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fee, net := ComputeFee(
				decimal.RequireFromString(tc.amount),
				decimal.RequireFromString(tc.percentage),
				decimal.RequireFromString(tc.flat),
			)
			require.True(t, fee.Equal(decimal.RequireFromString(tc.wantFee)), "fee %s", fee)
			require.True(t, net.Equal(decimal.RequireFromString(tc.wantNet)), "net %s", net)
			require.True(t, fee.Add(net).Equal(decimal.RequireFromString(tc.amount)))
		})
	}
}
