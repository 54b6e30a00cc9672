package random

import "testing"

func TestNewSeedVaries(t *testing.T) {
	seen := make(map[int64]struct{})
	for i := 0; i < 8; i++ {
		seed, err := NewSeed()
		if err != nil {
			t.Fatalf("NewSeed() error = %v", err)
		}
		seen[seed] = struct{}{}
	}
	if len(seen) < 2 {
		t.Fatalf("distinct seeds = %d, want at least 2", len(seen))
	}
}
