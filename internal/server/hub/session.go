// Package hub owns the live-connection state of a server instance: the
// session registry, the WebSocket read/write pumps, and the router that
// delivers backbone envelopes to local sessions.
package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/convivial/salon/internal/server/auth"
	"github.com/convivial/salon/internal/server/events"
	"github.com/gorilla/websocket"
)

// Session binds one live connection to a verified identity. An identity may
// hold several concurrent sessions (multiple devices); each gets its own
// Session. All fields behind mu are owned by the registry and the
// connection's own read pump.
type Session struct {
	ID       string
	Identity auth.Identity

	conn *websocket.Conn
	send chan []byte

	mu           sync.Mutex
	groups       map[string]struct{}
	mood         string
	lastActivity time.Time
	closed       bool
}

func newSession(id string, identity auth.Identity, conn *websocket.Conn) *Session {
	return &Session{
		ID:       id,
		Identity: identity,
		conn:     conn,
		send:     make(chan []byte, 64),
		groups:   make(map[string]struct{}),
	}
}

// Mood returns the session's current mood tag.
func (s *Session) Mood() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mood
}

func (s *Session) setMood(mood string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mood = mood
}

func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// InGroup reports whether the session has joined the given group.
func (s *Session) InGroup(group string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.groups[group]
	return ok
}

// Send queues a pre-marshalled frame. It never blocks: a session whose
// buffer is full misses the frame, which the at-least-once contract allows
// (clients resynchronize on reconnect). Sending to a session that already
// disconnected is a no-op.
func (s *Session) Send(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// closeSend marks the session closed and releases the write pump. Safe to
// call more than once.
func (s *Session) closeSend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// SendEvent marshals and queues a server event for this session only.
func (s *Session) SendEvent(event string, payload any) bool {
	frame, err := json.Marshal(events.ServerMessage{Type: event, Payload: payload})
	if err != nil {
		return false
	}
	return s.Send(frame)
}

// SendError unicasts an error event to this session.
func (s *Session) SendError(message string) {
	s.SendEvent(events.TypeError, events.Error{Message: message})
}
