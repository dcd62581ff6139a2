package server

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func parseDecimalField(raw, field string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, newValidationError(field, "invalid_"+field, "invalid "+field)
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, newValidationError(field, "invalid_"+field, "invalid "+field)
	}
	return value, nil
}

// parseOptionalTime accepts RFC3339 or a bare date. Bare dates mark the
// end of the day when endOfDay is set so ranges stay inclusive.
func parseOptionalTime(raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		ts = ts.Add(24*time.Hour - time.Nanosecond)
	}
	return ts.UTC(), nil
}
