package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Elib27/galaxy-simulation/internal/sim"
)

// Server exposes a controller over websocket: frames go out as binary
// messages, control and status travel as JSON text messages.
type Server struct {
	ctrl     *sim.Controller
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewServer registers a hub on ctrl so every published frame reaches the
// connected clients.
func NewServer(ctrl *sim.Controller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		ctrl: ctrl,
		hub:  NewHub(logger),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
	ctrl.AddObserver(s.hub)
	return s
}

func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWS)
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

func (s *Server) status() StatusMessage {
	return newStatus(s.ctrl.State(), s.ctrl.Params(), s.ctrl.Snapshot())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.status()); err != nil {
		s.logger.Warn("writing status", "error", err)
	}
}

// HandleWS upgrades the request, sends the current status and particle
// positions, then applies control messages until the client disconnects.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", "error", err)
		return
	}

	safeConn := NewSafeWriter(conn)
	defer safeConn.Close()

	s.logger.Info("stream client connected", "remote", conn.RemoteAddr().String())
	defer s.logger.Info("stream client disconnected", "remote", conn.RemoteAddr().String())

	if err := safeConn.WriteJSON(s.status()); err != nil {
		return
	}
	snap := s.ctrl.Snapshot()
	if err := safeConn.WriteMessage(websocket.BinaryMessage, AppendFrame(nil, snap.Step, snap.Positions)); err != nil {
		return
	}

	s.hub.Add(safeConn)
	defer s.hub.Remove(safeConn)

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		var reply any
		msg, err := ParseControl(data)
		if err == nil {
			err = s.apply(msg)
		}
		if err != nil {
			s.logger.Debug("control message rejected", "error", err)
			reply = ErrorMessage{Type: MessageTypeError, Message: err.Error()}
		} else {
			reply = s.status()
		}
		if err := safeConn.WriteJSON(reply); err != nil {
			return
		}
	}
}

func (s *Server) apply(msg ControlMessage) error {
	switch msg.Type {
	case MessageTypePause:
		return s.ctrl.Pause()
	case MessageTypeResume:
		s.ctrl.Resume()
	case MessageTypeToggle:
		s.ctrl.Toggle()
	case MessageTypeReset:
		return s.ctrl.Restart(s.ctrl.Params())
	case MessageTypeTimeStep:
		return s.ctrl.SetTimeStep(msg.Value)
	case MessageTypeStars:
		p := s.ctrl.Params()
		p.Stars = int(msg.Value)
		return s.ctrl.Restart(p)
	case MessageTypeInitialSpeed:
		p := s.ctrl.Params()
		p.InitialSpeed = msg.Value
		return s.ctrl.Restart(p)
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}

// Run steps the controller every interval until ctx is done. It plays the
// part of the render loop for remote clients.
func (s *Server) Run(ctx context.Context, interval time.Duration, dt float64) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, _, err := s.ctrl.Step(ctx, dt); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// ListenAndServe serves Handler on addr and runs the step loop until ctx is
// done. It fails immediately when addr cannot be bound, and stops stepping if
// the server fails later.
func (s *Server) ListenAndServe(ctx context.Context, addr string, interval time.Duration, dt float64) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("stream server listening", "addr", ln.Addr().String())
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errc <- err
		cancel()
	}()

	runErr := s.Run(runCtx, interval, dt)

	shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil {
		return err
	}
	return runErr
}
