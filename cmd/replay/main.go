package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"palletworks.dev/internal/sim/kinematics"
	"palletworks.dev/internal/sim/tuning"
	"palletworks.dev/internal/sim/world"
)

// replay re-runs a recorded session from the frame log and checks the
// state digest after every tick. A mismatch means the simulation is no
// longer deterministic against the build that produced the log.
func main() {
	var (
		framesDir  = flag.String("frames", "./data/frames", "dir containing frames-*.jsonl.zst")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if os.IsNotExist(err) {
			tune = tuning.Defaults()
		} else {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
	}
	if err := tune.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "tuning:", err)
		os.Exit(1)
	}

	w, err := world.New(worldConfigFromTuning(tune))
	if err != nil {
		fmt.Fprintln(os.Stderr, "world:", err)
		os.Exit(1)
	}

	files, err := listFrameFiles(*framesDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list frames:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no frame files found in", *framesDir)
		os.Exit(1)
	}

	var checked uint64
	for _, path := range files {
		if err := replayFile(w, path, *toTick, &checked); err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
		if *toTick != 0 && w.CurrentTick() > *toTick {
			break
		}
	}
	fmt.Printf("replay ok: checked=%d ticks, final tick=%d\n", checked, w.CurrentTick())
}

func replayFile(w *world.World, path string, toTick uint64, checked *uint64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer zr.Close()

	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for sc.Scan() {
		var entry world.FrameLogEntry
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}

		if entry.Reset {
			w.Reset()
		}
		if entry.Playing {
			w.Tick(entry.DT, entry.Speed)
		}

		if got := w.Digest(); got != entry.Digest {
			return fmt.Errorf("digest mismatch at tick %d:\n  logged %s\n  replay %s",
				entry.Tick, entry.Digest, got)
		}
		*checked++

		if toTick != 0 && entry.Tick >= toTick {
			return nil
		}
	}
	return sc.Err()
}

func listFrameFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "frames-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func worldConfigFromTuning(t tuning.Tuning) world.WorldConfig {
	cfg := world.WorldConfig{
		TickRateHz: t.TickRateHz,
		SimSpeed:   t.SimSpeed,
		AutoPlay:   t.AutoPlay,
		Conveyor: world.ConveyorConfig{
			SpeedMPS:        t.Conveyor.SpeedMPS,
			BeltY:           t.Conveyor.BeltY,
			XStart:          t.Conveyor.XStart,
			XEnd:            t.Conveyor.XEnd,
			Z:               t.Conveyor.Z,
			MinFree:         t.Conveyor.MinFree,
			Gap:             t.Conveyor.Gap,
			PickupHalfWidth: t.Conveyor.PickupHalfWidth,
		},
		Box:              world.BoxConfig{W: t.Box.W, H: t.Box.H, D: t.Box.D},
		Grid:             world.GridConfig{Rows: t.Grid.Rows, Cols: t.Grid.Cols, Layers: t.Grid.Layers},
		PalletTopY:       t.PalletTopY,
		TravelHeight:     t.TravelHeight,
		InitialSeedCount: t.InitialSeedCount,
		Links: kinematics.LinkTable{
			D1: t.Links.D1, A2: t.Links.A2, A3: t.Links.A3,
			D4: t.Links.D4, D5: t.Links.D5, D6: t.Links.D6,
			ToolTotal: t.Links.ToolTotal,
		},
		Workspace: kinematics.Workspace{
			ReachMin: t.Workspace.ReachMin,
			ReachMax: t.Workspace.ReachMax,
			DropMin:  t.Workspace.DropMin,
			DropMax:  t.Workspace.DropMax,
		},
		Forklifts: world.ForkliftConfig{
			EvacHome:    kinematics.FromArray(t.Forklifts.EvacHome),
			DeliverHome: kinematics.FromArray(t.Forklifts.DeliverHome),
			Depot:       kinematics.FromArray(t.Forklifts.Depot),
			LegSeconds:  t.Forklifts.LegSeconds,
			LiftSeconds: t.Forklifts.LiftSeconds,
		},
	}
	for _, a := range t.Arms {
		cfg.Arms = append(cfg.Arms, world.ArmConfig{
			Mount:        kinematics.FromArray(a.Mount),
			Side:         a.Side,
			TargetPallet: a.TargetPallet,
		})
	}
	for _, p := range t.Pallets {
		cfg.Pallets = append(cfg.Pallets, world.PalletConfig{Center: kinematics.FromArray(p.Center)})
	}
	return cfg
}
