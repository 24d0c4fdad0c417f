package world

import "testing"

func TestReset_MatchesFreshWorld(t *testing.T) {
	w, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	fresh, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 450; i++ {
		w.Tick(testDT, 1)
	}
	if w.Digest() == fresh.Digest() {
		t.Fatal("setup failed: world never moved")
	}

	w.Reset()
	if w.Digest() != fresh.Digest() {
		t.Fatalf("reset world differs from fresh:\n reset %s\n fresh %s", w.Digest(), fresh.Digest())
	}

	// And it runs on identically afterwards.
	for i := 0; i < 450; i++ {
		w.Tick(testDT, 1)
		fresh.Tick(testDT, 1)
	}
	if w.Digest() != fresh.Digest() {
		t.Fatal("reset world diverged from fresh world after further ticks")
	}
}

func TestReset_DrainsHandoff(t *testing.T) {
	w, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	w.handoff <- 2
	w.Reset()
	select {
	case idx := <-w.handoff:
		t.Fatalf("handoff survived reset: %d", idx)
	default:
	}
}

func TestReset_ClearsCounters(t *testing.T) {
	w, err := New(singleArmConfig())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 240; i++ {
		w.Tick(testDT, 1)
	}
	if w.stats.BoxesPalletized == 0 {
		t.Fatal("setup failed: nothing palletized")
	}

	w.Reset()
	if w.stats != (Stats{BoxesSpawned: uint64(w.cfg.InitialSeedCount)}) {
		t.Fatalf("stats after reset: %+v", w.stats)
	}
	if len(w.boxes) != w.cfg.InitialSeedCount {
		t.Fatalf("reseeded %d boxes, want %d", len(w.boxes), w.cfg.InitialSeedCount)
	}
	if w.SimTime() != 0 {
		t.Fatalf("sim time after reset = %g", w.SimTime())
	}
}
