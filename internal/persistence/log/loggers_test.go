package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"palletworks.dev/internal/sim/world"
)

func TestFrameLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewFrameLogger(dir)

	entries := []world.FrameLogEntry{
		{Tick: 1, DT: 1.0 / 30, Speed: 1, Playing: true, Digest: "aa", Boxes: 6},
		{Tick: 2, DT: 1.0 / 30, Speed: 2, Playing: true, Digest: "bb", Boxes: 6, Palletized: 1},
		{Tick: 3, DT: 1.0 / 30, Speed: 2, Playing: false, Reset: true, Digest: "cc", Boxes: 6, Palletized: 1},
	}
	for _, e := range entries {
		if err := l.WriteFrame(e); err != nil {
			t.Fatal(err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "frames", "frames-*.jsonl.zst"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("frame files = %v, err = %v", matches, err)
	}

	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	var got []world.FrameLogEntry
	sc := bufio.NewScanner(zr)
	for sc.Scan() {
		var e world.FrameLogEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatal(err)
		}
		got = append(got, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatal(err)
	}

	if len(got) != len(entries) {
		t.Fatalf("read %d entries, want %d", len(got), len(entries))
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, got[i], entries[i])
		}
	}
}

func TestJSONLZstdWriter_CloseWithoutWrites(t *testing.T) {
	w := NewJSONLZstdWriter(t.TempDir(), "x")
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}
