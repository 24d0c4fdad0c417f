package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"palletworks.dev/internal/protocol"
	"palletworks.dev/internal/sim/world"
)

type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		viewerID, out := s.handshake(conn)
		if out == nil {
			return
		}
		s.log.Printf("viewer V%d connected from %s", viewerID, r.RemoteAddr)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine: frames out of the world loop, onto the wire.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop: CONTROL only.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				pushError(out, protocol.ErrProtoBadRequest, "not json")
				continue
			}
			if base.Type != protocol.TypeControl {
				continue
			}
			var ctl protocol.ControlMsg
			if err := json.Unmarshal(msg, &ctl); err != nil {
				pushError(out, protocol.ErrProtoBadRequest, "bad CONTROL")
				continue
			}
			if ctl.ProtocolVersion != protocol.Version {
				pushError(out, protocol.ErrProtoBadVersion, "unsupported protocol_version")
				continue
			}
			switch ctl.Cmd {
			case protocol.CmdPlay, protocol.CmdPause, protocol.CmdReset, protocol.CmdSetSpeed:
				s.world.Control() <- world.ControlEnvelope{ViewerID: viewerID, Msg: ctl}
			default:
				pushError(out, protocol.ErrBadControl, "unknown cmd "+ctl.Cmd)
			}
		}

		s.world.Leave() <- viewerID
		s.log.Printf("viewer V%d disconnected", viewerID)
	}
}

func (s *Server) handshake(conn *websocket.Conn) (viewerID uint64, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return 0, nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return 0, nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return 0, nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return 0, nil
	}
	if hello.ViewerName == "" {
		hello.ViewerName = "viewer"
	}

	// The frame channel is shallow on purpose: the world drops stale
	// frames rather than queueing them, so a slow viewer sees fresh
	// state with gaps instead of an ever-growing backlog.
	out = make(chan []byte, 4)

	respCh := make(chan world.AttachResponse, 1)
	s.world.Attach() <- world.AttachRequest{
		Name: hello.ViewerName,
		Out:  out,
		Resp: respCh,
	}
	resp := <-respCh

	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.world.Leave() <- resp.ViewerID
		return 0, nil
	}
	return resp.ViewerID, out
}

// pushError rides the frame channel so all post-handshake writes come
// from the single writer goroutine. If the channel is full the error is
// dropped along with the stale frame it would have displaced.
func pushError(out chan []byte, code, message string) {
	b, err := json.Marshal(protocol.ErrorMsg{
		Type:    protocol.TypeError,
		Code:    code,
		Message: message,
	})
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
