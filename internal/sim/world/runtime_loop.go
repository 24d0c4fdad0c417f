package world

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"palletworks.dev/internal/protocol"
)

// ControlEnvelope is a CONTROL message routed from a transport goroutine
// into the world loop.
type ControlEnvelope struct {
	ViewerID uint64
	Msg      protocol.ControlMsg
}

// AttachRequest registers a viewer's outgoing frame channel.
type AttachRequest struct {
	Name string
	Out  chan []byte
	Resp chan AttachResponse
}

type AttachResponse struct {
	ViewerID uint64
	Welcome  protocol.WelcomeMsg
}

// FrameLogEntry is one line of the append-only frame log: the inputs of
// a tick plus the state digest after it. Enough to re-run and verify a
// whole session.
type FrameLogEntry struct {
	Tick       uint64  `json:"tick"`
	DT         float64 `json:"dt"`
	Speed      float64 `json:"speed"`
	Playing    bool    `json:"playing"`
	Reset      bool    `json:"reset,omitempty"`
	Digest     string  `json:"digest"`
	Boxes      int     `json:"boxes"`
	Palletized uint64  `json:"palletized"`
}

type FrameLogger interface {
	WriteFrame(FrameLogEntry) error
}

// SetFrameLogger must be called before Run.
func (w *World) SetFrameLogger(l FrameLogger) { w.frameLogger = l }

func (w *World) Control() chan<- ControlEnvelope { return w.control }
func (w *World) Attach() chan<- AttachRequest    { return w.attach }
func (w *World) Leave() chan<- uint64            { return w.leave }

// Run owns all world state. Everything mutating the sim happens inside
// this loop; transports only ever talk to it over channels.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	dt := interval.Seconds()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.attach:
			w.handleAttach(req)
		case id := <-w.leave:
			delete(w.clients, id)
		case env := <-w.control:
			w.handleControl(env)
		case <-ticker.C:
			start := time.Now()
			if w.playing {
				w.Tick(dt, w.speed)
			}
			w.publishFrame()
			w.logFrame(dt)
			w.updateMetrics(float64(time.Since(start).Microseconds()) / 1000.0)
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances the world by a single tick outside the loop and
// refreshes the metrics snapshot. Intended for deterministic replays and
// tests; never call it while Run is active.
func (w *World) StepOnce(dt, speed float64) (tick uint64, digest string) {
	w.Tick(dt, speed)
	w.updateMetrics(0)
	return w.tick.Load(), w.Digest()
}

func (w *World) handleControl(env ControlEnvelope) {
	switch env.Msg.Cmd {
	case protocol.CmdPlay:
		w.playing = true
	case protocol.CmdPause:
		w.playing = false
	case protocol.CmdReset:
		w.Reset()
		w.didReset = true
	case protocol.CmdSetSpeed:
		s := env.Msg.Speed
		if s < 0 {
			s = 0
		}
		w.speed = s
	}
}

func (w *World) handleAttach(req AttachRequest) {
	id := w.nextViewerID.Add(1)
	w.clients[id] = req.Out

	cfg := w.cfg
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		ViewerID:        fmt.Sprintf("V%d", id),
		CellParams: protocol.CellParams{
			TickRateHz: cfg.TickRateHz,
			Conveyor: protocol.ConveyorDesc{
				SpeedMPS: cfg.Conveyor.SpeedMPS,
				BeltY:    cfg.Conveyor.BeltY,
				XStart:   cfg.Conveyor.XStart,
				XEnd:     cfg.Conveyor.XEnd,
				Z:        cfg.Conveyor.Z,
			},
			BoxDims:      [3]float64{cfg.Box.W, cfg.Box.H, cfg.Box.D},
			PalletGrid:   [3]int{cfg.Grid.Rows, cfg.Grid.Cols, cfg.Grid.Layers},
			PalletTopY:   cfg.PalletTopY,
			TravelHeight: cfg.TravelHeight,
			Links: protocol.LinkDesc{
				D1:        cfg.Links.D1,
				A2:        cfg.Links.A2,
				A3:        cfg.Links.A3,
				D4:        cfg.Links.D4,
				D5:        cfg.Links.D5,
				D6:        cfg.Links.D6,
				ToolTotal: cfg.Links.ToolTotal,
			},
		},
	}
	for _, ac := range cfg.Arms {
		welcome.CellParams.ArmMounts = append(welcome.CellParams.ArmMounts, ac.Mount.ToArray())
		welcome.CellParams.ArmSides = append(welcome.CellParams.ArmSides, ac.Side)
	}
	for _, pc := range cfg.Pallets {
		welcome.CellParams.Pallets = append(welcome.CellParams.Pallets, pc.Center.ToArray())
	}

	req.Resp <- AttachResponse{ViewerID: id, Welcome: welcome}
}

func (w *World) publishFrame() {
	if len(w.clients) == 0 {
		return
	}
	b, err := json.Marshal(w.buildFrame())
	if err != nil {
		return
	}
	for _, out := range w.clients {
		sendLatest(out, b)
	}
}

func (w *World) logFrame(dt float64) {
	if w.frameLogger == nil {
		return
	}
	entry := FrameLogEntry{
		Tick:       w.tick.Load(),
		DT:         dt,
		Speed:      w.speed,
		Playing:    w.playing,
		Reset:      w.didReset,
		Digest:     w.Digest(),
		Boxes:      len(w.boxes),
		Palletized: w.stats.BoxesPalletized,
	}
	w.didReset = false
	_ = w.frameLogger.WriteFrame(entry)
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
