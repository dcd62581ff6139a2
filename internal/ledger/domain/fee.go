package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// FeeResolver yields the fee schedule for a vendor: the platform default
// percentage, or the vendor's subscription plan override when one is set.
// Resolution never fails; lookup problems fall back to the platform
// default so payments keep booking.
type FeeResolver interface {
	FeeScheduleFor(ctx context.Context, vendorID snowflake.ID) (percentage, flat decimal.Decimal)
}

// ComputeFee applies the platform fee schedule to a gross amount:
// fee = amount * percentage + flat, rounded to cents, net = amount - fee.
// Exact decimal arithmetic throughout; no binary floats.
func ComputeFee(amount, percentage, flat decimal.Decimal) (fee, net decimal.Decimal) {
	fee = amount.Mul(percentage).Add(flat).Round(2)
	net = amount.Sub(fee).Round(2)
	return fee, net
}
