package hub

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/convivial/salon/internal/server/auth"
	"github.com/convivial/salon/internal/server/backbone"
	"github.com/convivial/salon/internal/server/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_JoinsSalonAndPrivateChannel(t *testing.T) {
	r := NewRegistry()

	s := r.Register(nil, auth.Identity{UserID: "u1", Username: "margot"})

	assert.True(t, s.InGroup(backbone.ChannelSalon))
	assert.True(t, s.InGroup(backbone.UserChannel("u1")))
	assert.Equal(t, 1, r.Count())
	assert.Len(t, r.Sessions(backbone.ChannelSalon), 1)
	assert.Len(t, r.Sessions(backbone.UserChannel("u1")), 1)
}

func TestRegister_MultipleSessionsPerIdentity(t *testing.T) {
	r := NewRegistry()

	s1 := r.Register(nil, auth.Identity{UserID: "u1", Username: "margot"})
	s2 := r.Register(nil, auth.Identity{UserID: "u1", Username: "margot"})

	require.NotEqual(t, s1.ID, s2.ID)
	assert.Equal(t, 2, r.Count())
	assert.Len(t, r.Sessions(backbone.UserChannel("u1")), 2)
}

func TestUnregister_Idempotent(t *testing.T) {
	r := NewRegistry()

	s := r.Register(nil, auth.Identity{UserID: "u1"})

	assert.True(t, r.Unregister(s))
	assert.False(t, r.Unregister(s), "second unregister must be a no-op")
	assert.False(t, r.Unregister(nil))
	assert.Equal(t, 0, r.Count())
	assert.Empty(t, r.Sessions(backbone.ChannelSalon))
}

func TestUnregister_NeverRegisteredSession(t *testing.T) {
	r := NewRegistry()

	// a session constructed but lost in a race with authentication failure
	s := newSession("ghost", auth.Identity{UserID: "u1"}, nil)

	assert.False(t, r.Unregister(s))
}

func TestSendAfterUnregister_IsNoOp(t *testing.T) {
	r := NewRegistry()

	s := r.Register(nil, auth.Identity{UserID: "u1"})
	require.True(t, r.Unregister(s))

	assert.False(t, s.Send([]byte("{}")))
	assert.NotPanics(t, func() { s.SendError("too late") })
}

func TestSetMood(t *testing.T) {
	r := NewRegistry()

	s := r.Register(nil, auth.Identity{UserID: "u1"})
	r.SetMood(s, "nostalgic")

	assert.Equal(t, "nostalgic", s.Mood())
}

func TestSendEvent_MarshalsServerMessage(t *testing.T) {
	r := NewRegistry()
	s := r.Register(nil, auth.Identity{UserID: "u1"})

	require.True(t, s.SendEvent(events.TypeError, events.Error{Message: "validation error"}))

	frame := <-s.send
	var msg struct {
		Type    string       `json:"type"`
		Payload events.Error `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(frame, &msg))
	assert.Equal(t, events.TypeError, msg.Type)
	assert.Equal(t, "validation error", msg.Payload.Message)
}

func TestRegistry_ConcurrentRegisterUnregister(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := r.Register(nil, auth.Identity{UserID: "u1"})
			r.SetMood(s, "curious")
			r.Unregister(s)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, r.Count())
	assert.Empty(t, r.Sessions(backbone.ChannelSalon))
}
