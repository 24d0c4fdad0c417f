package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	persistlog "palletworks.dev/internal/persistence/log"
	"palletworks.dev/internal/persistence/rundb"
	"palletworks.dev/internal/sim/kinematics"
	"palletworks.dev/internal/sim/tuning"
	"palletworks.dev/internal/sim/world"
	"palletworks.dev/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the run index database")
		disableLog = flag.Bool("disable_frame_log", false, "disable the compressed frame log")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", *tuningPath)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}
	if err := tune.Validate(); err != nil {
		logger.Fatalf("tuning: %v", err)
	}

	w, err := world.New(worldConfigFromTuning(tune))
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	_ = os.MkdirAll(*dataDir, 0o755)

	var frameLog *persistlog.FrameLogger
	if !*disableLog {
		frameLog = persistlog.NewFrameLogger(*dataDir)
		defer frameLog.Close()
		w.SetFrameLogger(frameLog)
	}

	var runs *rundb.RunDB
	var runID int64
	if !*disableDB {
		runs, err = rundb.Open(filepath.Join(*dataDir, "runs.db"))
		if err != nil {
			logger.Fatalf("open run db: %v", err)
		}
		defer runs.Close()
		runID, err = runs.StartRun(time.Now())
		if err != nil {
			logger.Fatalf("start run: %v", err)
		}
		logger.Printf("run %d", runID)
	}

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	// Periodic run-row refresh; sampled, not per tick.
	if runs != nil {
		go func() {
			t := time.NewTicker(5 * time.Second)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					runs.RecordStats(runID, w.Metrics())
				}
			}
		}()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		m := w.Metrics()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP palletworks_tick Current simulation tick.\n")
		fmt.Fprintf(rw, "# TYPE palletworks_tick gauge\n")
		fmt.Fprintf(rw, "palletworks_tick %d\n", m.Tick)

		fmt.Fprintf(rw, "# HELP palletworks_sim_time_seconds Accumulated effective sim time.\n")
		fmt.Fprintf(rw, "# TYPE palletworks_sim_time_seconds gauge\n")
		fmt.Fprintf(rw, "palletworks_sim_time_seconds %.3f\n", m.SimTime)

		fmt.Fprintf(rw, "# HELP palletworks_playing Whether the simulation is advancing.\n")
		fmt.Fprintf(rw, "# TYPE palletworks_playing gauge\n")
		fmt.Fprintf(rw, "palletworks_playing %d\n", boolGauge(m.Playing))

		fmt.Fprintf(rw, "# HELP palletworks_sim_speed Current speed multiplier.\n")
		fmt.Fprintf(rw, "# TYPE palletworks_sim_speed gauge\n")
		fmt.Fprintf(rw, "palletworks_sim_speed %.3f\n", m.Speed)

		fmt.Fprintf(rw, "# HELP palletworks_boxes_on_conveyor Free boxes on the belt.\n")
		fmt.Fprintf(rw, "# TYPE palletworks_boxes_on_conveyor gauge\n")
		fmt.Fprintf(rw, "palletworks_boxes_on_conveyor %d\n", m.BoxesOnConveyor)

		fmt.Fprintf(rw, "# HELP palletworks_boxes_held Boxes currently carried by arms.\n")
		fmt.Fprintf(rw, "# TYPE palletworks_boxes_held gauge\n")
		fmt.Fprintf(rw, "palletworks_boxes_held %d\n", m.BoxesHeld)

		fmt.Fprintf(rw, "# HELP palletworks_boxes_spawned_total Boxes spawned since start/reset.\n")
		fmt.Fprintf(rw, "# TYPE palletworks_boxes_spawned_total counter\n")
		fmt.Fprintf(rw, "palletworks_boxes_spawned_total %d\n", m.BoxesSpawned)

		fmt.Fprintf(rw, "# HELP palletworks_boxes_palletized_total Boxes placed on pallets.\n")
		fmt.Fprintf(rw, "# TYPE palletworks_boxes_palletized_total counter\n")
		fmt.Fprintf(rw, "palletworks_boxes_palletized_total %d\n", m.BoxesPalletized)

		fmt.Fprintf(rw, "# HELP palletworks_boxes_overflowed_total Boxes lost off the belt end.\n")
		fmt.Fprintf(rw, "# TYPE palletworks_boxes_overflowed_total counter\n")
		fmt.Fprintf(rw, "palletworks_boxes_overflowed_total %d\n", m.BoxesOverflowed)

		fmt.Fprintf(rw, "# HELP palletworks_pallets_cycled_total Full pallets replaced with empties.\n")
		fmt.Fprintf(rw, "# TYPE palletworks_pallets_cycled_total counter\n")
		fmt.Fprintf(rw, "palletworks_pallets_cycled_total %d\n", m.PalletsCycled)

		fmt.Fprintf(rw, "# HELP palletworks_clients Connected viewers.\n")
		fmt.Fprintf(rw, "# TYPE palletworks_clients gauge\n")
		fmt.Fprintf(rw, "palletworks_clients %d\n", m.Clients)

		fmt.Fprintf(rw, "# HELP palletworks_step_ms Last tick step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE palletworks_step_ms gauge\n")
		fmt.Fprintf(rw, "palletworks_step_ms %.3f\n", m.StepMS)
	})

	// Local-only admin endpoints (do not affect simulation determinism).
	mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		resp := struct {
			Tick    uint64             `json:"tick"`
			Metrics world.WorldMetrics `json:"metrics"`
		}{
			Tick:    w.CurrentTick(),
			Metrics: w.Metrics(),
		}
		_ = json.NewEncoder(rw).Encode(resp)
	})
	mux.HandleFunc("/admin/v1/runs", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		if runs == nil {
			_ = json.NewEncoder(rw).Encode([]rundb.RunRow{})
			return
		}
		rows, err := runs.LatestRuns(20)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(rw).Encode(rows)
	})

	mux.HandleFunc("/v1/ws", ws.NewServer(w, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
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

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
