package hub

import (
	"sync"
	"time"

	"github.com/convivial/salon/internal/server/auth"
	"github.com/convivial/salon/internal/server/backbone"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Registry is the authoritative in-memory table of live sessions on this
// instance. It is explicitly owned and passed by handle to every component
// that needs it; there is no package-level state. All methods are safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session            // session id -> session
	groups   map[string]map[string]*Session // group -> session id -> session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		groups:   make(map[string]map[string]*Session),
	}
}

// Register creates a Session for the connection and joins it to the shared
// salon plus the identity's private channel.
func (r *Registry) Register(conn *websocket.Conn, identity auth.Identity) *Session {
	s := newSession(uuid.NewString(), identity, conn)
	s.lastActivity = time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.ID] = s
	r.join(s, backbone.ChannelSalon)
	r.join(s, backbone.UserChannel(identity.UserID))

	return s
}

// join requires r.mu held.
func (r *Registry) join(s *Session, group string) {
	if r.groups[group] == nil {
		r.groups[group] = make(map[string]*Session)
	}
	r.groups[group][s.ID] = s
	s.mu.Lock()
	s.groups[group] = struct{}{}
	s.mu.Unlock()
}

// Unregister removes the session from every group. It is idempotent and
// tolerates sessions that never completed registration. The return value
// reports whether the session was actually present.
func (r *Registry) Unregister(s *Session) bool {
	if s == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ID]; !ok {
		return false
	}
	delete(r.sessions, s.ID)

	for group := range r.groups {
		delete(r.groups[group], s.ID)
		if len(r.groups[group]) == 0 {
			delete(r.groups, group)
		}
	}

	s.closeSend()
	return true
}

// Sessions returns a snapshot of the sessions joined to a group.
func (r *Registry) Sessions(group string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.groups[group]
	out := make([]*Session, 0, len(members))
	for _, s := range members {
		out = append(out, s)
	}
	return out
}

// SetMood updates the session's mood tag. No broadcast happens here; the
// mood rides along on the next presence.searching event.
func (r *Registry) SetMood(s *Session, mood string) {
	s.setMood(mood)
	s.touch()
}

// Count returns the number of live sessions on this instance.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
