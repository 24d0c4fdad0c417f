package world

import (
	"testing"

	"palletworks.dev/internal/protocol"
)

func TestBuildFrame_SnapshotsWorld(t *testing.T) {
	w, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 30; i++ {
		w.Tick(testDT, 1)
	}

	f := w.buildFrame()
	if f.Type != protocol.TypeFrame {
		t.Fatalf("type = %q", f.Type)
	}
	if len(f.Boxes) != len(w.boxes) {
		t.Fatalf("boxes = %d, want %d", len(f.Boxes), len(w.boxes))
	}
	if len(f.Arms) != len(w.arms) {
		t.Fatalf("arms = %d, want %d", len(f.Arms), len(w.arms))
	}
	if len(f.Forklifts) != 2 {
		t.Fatalf("forklifts = %d", len(f.Forklifts))
	}

	wantCap := w.cfg.Grid.Capacity()
	if len(f.Pallets) != len(w.pallets) {
		t.Fatalf("pallets = %d, want %d", len(f.Pallets), len(w.pallets))
	}
	for i, pv := range f.Pallets {
		if pv.Idx != i {
			t.Errorf("pallet %d: idx = %d", i, pv.Idx)
		}
		if pv.Capacity != wantCap {
			t.Errorf("pallet %d: capacity = %d, want %d", i, pv.Capacity, wantCap)
		}
		if pv.Count != w.pallets[i].Count {
			t.Errorf("pallet %d: count = %d, want %d", i, pv.Count, w.pallets[i].Count)
		}
	}
}
