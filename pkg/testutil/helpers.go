// Package testutil provides common utility functions for testing.
package testutil

import (
	"testing"

	"github.com/iwvelando/taxsim/internal/forecast"
	"github.com/iwvelando/taxsim/pkg/finance"
	"github.com/iwvelando/taxsim/pkg/mathutil"
)

// FindScenario finds a scenario by name in the results slice.
// Returns a pointer to the forecast if found, nil otherwise.
func FindScenario(results []forecast.Forecast, name string) *forecast.Forecast {
	for i := range results {
		if results[i].Name == name {
			return &results[i]
		}
	}
	return nil
}

// AssertBalances fails the test unless points carry exactly the expected
// balances, compared after rounding to cents.
func AssertBalances(t testing.TB, points []finance.Point, expected ...string) {
	t.Helper()
	if len(points) != len(expected) {
		t.Fatalf("expected %d points, got %d", len(expected), len(points))
	}
	for i, point := range points {
		if got := mathutil.FixedString(point.Balance); got != expected[i] {
			t.Errorf("period %d: balance %s, expected %s", point.Period, got, expected[i])
		}
	}
}
