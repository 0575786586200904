// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"path/filepath"
	"testing"
)

// Fraction returns the share of samples equal to value.
func Fraction(samples []int, value int) float64 {
	if len(samples) == 0 {
		return 0
	}
	n := 0
	for _, z := range samples {
		if z == value {
			n++
		}
	}
	return float64(n) / float64(len(samples))
}

// AssertFrequency checks that value makes up want ± tol of samples.
func AssertFrequency(t testing.TB, samples []int, value int, want, tol float64) {
	t.Helper()
	got := Fraction(samples, value)
	if got < want-tol || got > want+tol {
		t.Errorf("frequency of %d = %.4f over %d samples, want %.4f ± %.4f", value, got, len(samples), want, tol)
	}
}

// TempDBPath returns a fresh SQLite path inside the test's temp dir.
func TempDBPath(t testing.TB) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}
