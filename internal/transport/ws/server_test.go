package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"palletworks.dev/internal/protocol"
	"palletworks.dev/internal/sim/kinematics"
	"palletworks.dev/internal/sim/world"
)

func testWorldConfig() world.WorldConfig {
	return world.WorldConfig{
		TickRateHz: 30,
		SimSpeed:   1,
		AutoPlay:   true,
		Conveyor: world.ConveyorConfig{
			SpeedMPS: 0.18, BeltY: 0.75, XStart: -3.2, XEnd: 3.2,
			MinFree: 2, Gap: 0.12, PickupHalfWidth: 0.45,
		},
		Box:              world.BoxConfig{W: 0.30, H: 0.22, D: 0.24},
		Grid:             world.GridConfig{Rows: 2, Cols: 3, Layers: 4},
		PalletTopY:       0.55,
		TravelHeight:     1.50,
		InitialSeedCount: 2,
		Arms: []world.ArmConfig{
			{Mount: kinematics.Vec3{X: -1.8, Y: 2.1, Z: 0.7}, Side: 1, TargetPallet: 0},
		},
		Pallets: []world.PalletConfig{
			{Center: kinematics.Vec3{X: -1.8, Z: 1.7}},
		},
		Links: kinematics.LinkTable{
			D1: 0.18, A2: 0.82, A3: 0.72, D4: 0.12, D5: 0.10, D6: 0.09, ToolTotal: 0.25,
		},
		Workspace: kinematics.Workspace{ReachMin: 0.30, ReachMax: 1.45, DropMin: 0.35, DropMax: 1.50},
		Forklifts: world.ForkliftConfig{
			EvacHome:    kinematics.Vec3{X: -4.5, Z: 3},
			DeliverHome: kinematics.Vec3{X: 4.5, Z: 3},
			Depot:       kinematics.Vec3{Z: 4.5},
			LegSeconds:  2.5,
			LiftSeconds: 0.8,
		},
	}
}

func startServer(t *testing.T) (*world.World, string) {
	t.Helper()
	w, err := world.New(testWorldConfig())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Run(ctx) }()

	logger := log.New(io.Discard, "", 0)
	srv := httptest.NewServer(NewServer(w, logger).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return w, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(v); err != nil {
		t.Fatal(err)
	}
}

func TestServer_HandshakeAndFrames(t *testing.T) {
	_, url := startServer(t)
	conn := dial(t, url)

	sendJSON(t, conn, protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ViewerName:      "it",
	})

	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(readMsg(t, conn), &welcome); err != nil {
		t.Fatal(err)
	}
	if welcome.Type != protocol.TypeWelcome {
		t.Fatalf("first message type = %q, want WELCOME", welcome.Type)
	}
	if welcome.ViewerID == "" {
		t.Fatal("welcome missing viewer_id")
	}
	if got := welcome.CellParams.PalletGrid; got != [3]int{2, 3, 4} {
		t.Fatalf("pallet grid = %v", got)
	}

	var frame protocol.FrameMsg
	if err := json.Unmarshal(readMsg(t, conn), &frame); err != nil {
		t.Fatal(err)
	}
	if frame.Type != protocol.TypeFrame {
		t.Fatalf("second message type = %q, want FRAME", frame.Type)
	}
	if len(frame.Arms) != 1 || len(frame.Forklifts) != 2 {
		t.Fatalf("frame shape: %d arms, %d forklifts", len(frame.Arms), len(frame.Forklifts))
	}
}

func TestServer_RejectsBadVersionHello(t *testing.T) {
	_, url := startServer(t)
	conn := dial(t, url)

	sendJSON(t, conn, protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: "0.0",
		ViewerName:      "it",
	})

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if err == nil {
		t.Fatal("connection survived a bad protocol_version")
	}
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("close error = %v, want policy violation", err)
	}
}

func TestServer_ControlPause(t *testing.T) {
	_, url := startServer(t)
	conn := dial(t, url)

	sendJSON(t, conn, protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ViewerName:      "it",
	})
	readMsg(t, conn) // welcome

	sendJSON(t, conn, protocol.ControlMsg{
		Type:            protocol.TypeControl,
		ProtocolVersion: protocol.Version,
		Cmd:             protocol.CmdPause,
	})

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var frame protocol.FrameMsg
		raw := readMsg(t, conn)
		if err := json.Unmarshal(raw, &frame); err != nil {
			t.Fatal(err)
		}
		if frame.Type == protocol.TypeFrame && !frame.Playing {
			return
		}
	}
	t.Fatal("pause never reflected in frames")
}

func TestServer_UnknownCmdGetsError(t *testing.T) {
	_, url := startServer(t)
	conn := dial(t, url)

	sendJSON(t, conn, protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ViewerName:      "it",
	})
	readMsg(t, conn) // welcome

	sendJSON(t, conn, protocol.ControlMsg{
		Type:            protocol.TypeControl,
		ProtocolVersion: protocol.Version,
		Cmd:             "explode",
	})

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		raw := readMsg(t, conn)
		var base protocol.BaseMessage
		if err := json.Unmarshal(raw, &base); err != nil {
			t.Fatal(err)
		}
		if base.Type != protocol.TypeError {
			continue
		}
		var em protocol.ErrorMsg
		if err := json.Unmarshal(raw, &em); err != nil {
			t.Fatal(err)
		}
		if em.Code != protocol.ErrBadControl {
			t.Fatalf("error code = %q, want %q", em.Code, protocol.ErrBadControl)
		}
		if !protocol.IsKnownCode(em.Code) {
			t.Fatalf("unknown error code %q", em.Code)
		}
		return
	}
	t.Fatal("no ERROR message for unknown cmd")
}
