package world

import (
	"math"
	"testing"
)

func almostEq(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestPalletSlot_Layout(t *testing.T) {
	w, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	p := w.pallets[0] // center (-1.8, 0, 1.7), grid 2x3x4, box .30x.22x.24

	cases := []struct {
		count   int
		x, y, z float64
	}{
		{0, -2.1, 0.66, 1.58},  // layer 0, row 0, col 0
		{1, -1.8, 0.66, 1.58},  // col advances fastest
		{3, -2.1, 0.66, 1.82},  // second row
		{5, -1.5, 0.66, 1.82},  // layer 0 full
		{6, -2.1, 0.88, 1.58},  // next layer restarts the grid
		{23, -1.5, 1.32, 1.82}, // last slot, top layer
	}
	for _, tc := range cases {
		got := w.palletSlot(p, tc.count)
		if !almostEq(got.X, tc.x) || !almostEq(got.Y, tc.y) || !almostEq(got.Z, tc.z) {
			t.Errorf("slot(%d) = (%g, %g, %g), want (%g, %g, %g)",
				tc.count, got.X, got.Y, got.Z, tc.x, tc.y, tc.z)
		}
	}
}

func TestDepositBox_FlipsToRemovingAtCapacity(t *testing.T) {
	w, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	cap := w.cfg.Grid.Capacity()
	for i := 0; i < cap; i++ {
		w.depositBox(0)
	}
	p := w.pallets[0]
	if p.Count != cap {
		t.Fatalf("count = %d, want %d", p.Count, cap)
	}
	if p.State != PalletRemoving {
		t.Fatalf("state = %v, want removing", p.State)
	}
	if w.stats.BoxesPalletized != uint64(cap) {
		t.Fatalf("palletized = %d, want %d", w.stats.BoxesPalletized, cap)
	}
	// The other stations are untouched.
	if w.pallets[1].State != PalletActive || w.pallets[1].Count != 0 {
		t.Fatal("deposit leaked onto another station")
	}
}
