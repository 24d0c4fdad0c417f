package rundb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"palletworks.dev/internal/sim/world"
)

// RunDB is a small observability index over simulation runs: one row per
// server run, updated with throughput counters as the run progresses.
// Writes go through a buffered channel and a single writer goroutine so
// the world loop never waits on sqlite.
type RunDB struct {
	db *sql.DB

	ch   chan statReq
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type statReq struct {
	runID int64
	m     world.WorldMetrics
}

func Open(path string) (*RunDB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	r := &RunDB{
		db: db,
		ch: make(chan statReq, 4096),
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.loop()
	}()
	return r, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads; NORMAL is a decent
	// durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			tick INTEGER NOT NULL DEFAULT 0,
			sim_time REAL NOT NULL DEFAULT 0,
			boxes_spawned INTEGER NOT NULL DEFAULT 0,
			boxes_palletized INTEGER NOT NULL DEFAULT 0,
			boxes_overflowed INTEGER NOT NULL DEFAULT 0,
			pallets_cycled INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// StartRun registers a fresh run row and returns its id. Synchronous;
// called once at server start.
func (r *RunDB) StartRun(startedAt time.Time) (int64, error) {
	ts := startedAt.UTC().Format(time.RFC3339)
	res, err := r.db.Exec(
		`INSERT INTO runs(started_at, updated_at) VALUES(?, ?)`, ts, ts)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecordStats queues a counter update for the run row. Never blocks; a
// full queue drops the sample, the next one catches up.
func (r *RunDB) RecordStats(runID int64, m world.WorldMetrics) {
	if r.closed.Load() {
		return
	}
	select {
	case r.ch <- statReq{runID: runID, m: m}:
	default:
	}
}

type RunRow struct {
	ID              int64
	StartedAt       string
	UpdatedAt       string
	Tick            uint64
	SimTime         float64
	BoxesSpawned    uint64
	BoxesPalletized uint64
	BoxesOverflowed uint64
	PalletsCycled   uint64
}

// LatestRuns returns the most recent n runs, newest first.
func (r *RunDB) LatestRuns(n int) ([]RunRow, error) {
	rows, err := r.db.Query(
		`SELECT id, started_at, updated_at, tick, sim_time,
		        boxes_spawned, boxes_palletized, boxes_overflowed, pallets_cycled
		 FROM runs ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var row RunRow
		if err := rows.Scan(
			&row.ID, &row.StartedAt, &row.UpdatedAt, &row.Tick, &row.SimTime,
			&row.BoxesSpawned, &row.BoxesPalletized, &row.BoxesOverflowed, &row.PalletsCycled,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *RunDB) Close() error {
	var err error
	r.once.Do(func() {
		r.closed.Store(true)
		close(r.ch)
		r.wg.Wait()
		err = r.db.Close()
	})
	return err
}

func (r *RunDB) loop() {
	update, err := r.db.Prepare(
		`UPDATE runs SET updated_at = ?, tick = ?, sim_time = ?,
		        boxes_spawned = ?, boxes_palletized = ?, boxes_overflowed = ?, pallets_cycled = ?
		 WHERE id = ?`)
	if err != nil {
		for range r.ch {
		}
		return
	}
	defer update.Close()

	for req := range r.ch {
		_, _ = update.Exec(
			time.Now().UTC().Format(time.RFC3339),
			int64(req.m.Tick),
			req.m.SimTime,
			int64(req.m.BoxesSpawned),
			int64(req.m.BoxesPalletized),
			int64(req.m.BoxesOverflowed),
			int64(req.m.PalletsCycled),
			req.runID,
		)
	}
}
