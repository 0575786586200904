package testutil

import (
	"path/filepath"
	"testing"
)

func TestFraction(t *testing.T) {
	t.Parallel()

	if got := Fraction([]int{0, 0, 1, 0}, 0); got != 0.75 {
		t.Errorf("Fraction = %v, want 0.75", got)
	}
	if got := Fraction(nil, 0); got != 0 {
		t.Errorf("Fraction(nil) = %v, want 0", got)
	}
}

func TestAssertFrequency(t *testing.T) {
	t.Parallel()

	AssertFrequency(t, []int{0, 0, 0, 1}, 0, 0.75, 0.01)

	ok := t.Run("outside tolerance", func(t *testing.T) {
		AssertFrequency(t, []int{0, 1, 1, 1}, 0, 0.75, 0.1)
	})
	if ok {
		t.Fatal("expected subtest to fail when frequency is off")
	}
}

func TestTempDBPath(t *testing.T) {
	t.Parallel()

	p := TempDBPath(t)
	if filepath.Base(p) != "test.db" {
		t.Errorf("TempDBPath = %s, want test.db base", p)
	}
}
