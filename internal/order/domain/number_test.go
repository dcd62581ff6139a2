package domain

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateOrderNumber(t *testing.T) {
	at := time.Date(2025, 3, 10, 15, 4, 5, 0, time.UTC)

	number := GenerateOrderNumber("ORD", at)
	require.Regexp(t, regexp.MustCompile(`^ORD-20250310-[0-9A-Z]{6}$`), number)

	// The random tail makes collisions unlikely even at the same instant.
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		n := GenerateOrderNumber("ORD", at)
		require.False(t, seen[n], "duplicate %s", n)
		seen[n] = true
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusProcessing},
		{StatusPending, StatusCanceled},
		{StatusProcessing, StatusShipped},
		{StatusProcessing, StatusCanceled},
		{StatusShipped, StatusDelivered},
	}
	for _, tc := range allowed {
		require.True(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	denied := []struct{ from, to Status }{
		{StatusPending, StatusShipped},
		{StatusPending, StatusDelivered},
		{StatusProcessing, StatusPending},
		{StatusShipped, StatusCanceled},
		{StatusDelivered, StatusPending},
		{StatusDelivered, StatusCanceled},
		{StatusCanceled, StatusPending},
		{StatusCanceled, StatusProcessing},
	}
	for _, tc := range denied {
		require.False(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
