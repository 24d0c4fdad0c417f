package rundb

import (
	"path/filepath"
	"testing"
	"time"

	"palletworks.dev/internal/sim/world"
)

func TestRunDB_StartAndRecord(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}

	id, err := db.StartRun(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if id <= 0 {
		t.Fatalf("run id = %d", id)
	}

	db.RecordStats(id, world.WorldMetrics{
		Tick: 900, SimTime: 30,
		BoxesSpawned: 20, BoxesPalletized: 12, BoxesOverflowed: 2, PalletsCycled: 1,
	})
	// Close drains the writer queue before returning.
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db2, err := Open(filepath.Join(t.TempDir(), "runs2.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db2.Close()
	if _, err := db2.StartRun(time.Now()); err != nil {
		t.Fatal(err)
	}
}

func TestRunDB_LatestRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	first, err := db.StartRun(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	second, err := db.StartRun(time.Now())
	if err != nil {
		t.Fatal(err)
	}

	db.RecordStats(second, world.WorldMetrics{Tick: 42, SimTime: 1.4, BoxesPalletized: 3})
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen and read back.
	db, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	runs, err := db.LatestRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != second || runs[1].ID != first {
		t.Fatalf("order wrong: %d, %d", runs[0].ID, runs[1].ID)
	}
	if runs[0].Tick != 42 || runs[0].BoxesPalletized != 3 {
		t.Fatalf("counters not persisted: %+v", runs[0])
	}

	if _, err := db.LatestRuns(0); err != nil {
		t.Fatal(err)
	}
}

func TestOpen_RejectsEmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("Open accepted an empty path")
	}
}
