package hub

import (
	"context"
	"net/http"
	"time"

	"github.com/convivial/salon/internal/logging"
	"github.com/convivial/salon/internal/server/auth"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// Handler reacts to connection lifecycle and inbound frames. Message is
// invoked synchronously from the connection's read pump, so one connection's
// events are processed in receipt order relative to its own state.
type Handler interface {
	Connected(ctx context.Context, s *Session)
	Disconnected(ctx context.Context, s *Session)
	Message(ctx context.Context, s *Session, raw []byte)
}

// Server upgrades HTTP requests to WebSocket sessions. Authentication
// happens before the upgrade: a missing or invalid token fails the
// connection before any event is processed.
type Server struct {
	registry      *Registry
	authenticator *auth.Authenticator
	handler       Handler
	logger        logging.Logger
	authTimeout   time.Duration
	upgrader      websocket.Upgrader
}

func NewServer(r *Registry, a *auth.Authenticator, h Handler, l logging.Logger, allowedOrigin string, authTimeout time.Duration) *Server {
	return &Server{
		registry:      r,
		authenticator: a,
		handler:       h,
		logger:        l.With("module", "ws"),
		authTimeout:   authTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
	}
}

// ServeWS is the websocket endpoint handler.
func (srv *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), srv.authTimeout)
	defer cancel()

	q := r.URL.Query()
	identity, err := srv.authenticator.VerifyOrClaim(q.Get("token"), q.Get("userId"), q.Get("username"))
	if err != nil {
		srv.logger.Warn(ctx, "connection refused", "error", err)
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := srv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		srv.logger.Warn(ctx, "upgrade failed", "error", err)
		return
	}

	s := srv.registry.Register(conn, identity)
	srv.logger.Info(ctx, "user connected", "username", identity.Username, "userId", identity.UserID, "session", s.ID)

	go srv.writePump(s)

	srv.handler.Connected(ctx, s)

	// blocks for the lifetime of the connection
	srv.readPump(r.Context(), s)

	if srv.registry.Unregister(s) {
		srv.handler.Disconnected(context.WithoutCancel(r.Context()), s)
	}
	srv.logger.Info(ctx, "user disconnected", "username", identity.Username, "session", s.ID)
}

func (srv *Server) readPump(ctx context.Context, s *Session) {
	defer s.conn.Close()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				srv.logger.Debug(ctx, "read error", "session", s.ID, "error", err)
			}
			return
		}

		s.touch()
		srv.handler.Message(ctx, s, raw)
	}
}

func (srv *Server) writePump(s *Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
