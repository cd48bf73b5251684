package bpcache

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
)

// newMiniredis starts an in-memory redis that stops with the test.
func newMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr
}
