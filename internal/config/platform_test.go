package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDefaultPlatformPolicy(t *testing.T) {
	policy := DefaultPlatformPolicy()

	require.True(t, policy.FeePercentage.Equal(decimal.RequireFromString("0.025")))
	require.True(t, policy.FlatFee.Equal(decimal.RequireFromString("0.30")))
	require.True(t, policy.MinimumPayout.Equal(decimal.RequireFromString("25.00")))
	require.True(t, policy.TaxRate.IsZero())
	require.Equal(t, "ORD", policy.OrderNumberPrefix)

	require.NoError(t, validatePolicy(policy))
}

func TestValidatePolicyBounds(t *testing.T) {
	bad := DefaultPlatformPolicy()
	bad.FeePercentage = decimal.RequireFromString("1.5")
	require.Error(t, validatePolicy(bad))

	bad = DefaultPlatformPolicy()
	bad.FlatFee = decimal.RequireFromString("-0.01")
	require.Error(t, validatePolicy(bad))

	bad = DefaultPlatformPolicy()
	bad.TaxRate = decimal.RequireFromString("-0.10")
	require.Error(t, validatePolicy(bad))
}

func TestStaticPolicyHolder(t *testing.T) {
	custom := DefaultPlatformPolicy()
	custom.MinimumPayout = decimal.RequireFromString("10.00")

	holder := NewStaticPolicyHolder(custom)
	require.True(t, holder.Get().MinimumPayout.Equal(decimal.RequireFromString("10.00")))
}
