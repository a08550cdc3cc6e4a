package presence

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"log/slog"
	"os"

	"github.com/convivial/salon/internal/dbx"
	"github.com/convivial/salon/internal/logging"
	"github.com/convivial/salon/internal/server/auth"
	"github.com/convivial/salon/internal/server/backbone"
	"github.com/convivial/salon/internal/server/events"
	"github.com/convivial/salon/internal/server/hub"
	"github.com/convivial/salon/internal/server/models"
	"github.com/convivial/salon/internal/server/repositories/repomanager"
	"github.com/convivial/salon/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	touched  []string
	touchErr error
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	return &models.User{ID: id}, nil
}

func (f *fakeUsers) TouchLastSeen(_ context.Context, id string) error {
	f.touched = append(f.touched, id)
	return f.touchErr
}

type fakeRepos struct {
	repomanager.RepositoryManager
	users *fakeUsers
}

func (f *fakeRepos) Users(_ dbx.DBTX) users.Repository { return f.users }

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

func recvEnvelope(t *testing.T, stream <-chan backbone.Envelope) backbone.Envelope {
	t.Helper()
	select {
	case env := <-stream:
		return env
	case <-time.After(time.Second):
		t.Fatal("expected an envelope")
		return backbone.Envelope{}
	}
}

func TestBroadcaster_Connected(t *testing.T) {
	b := backbone.NewMemoryBackbone()
	defer b.Close()
	stream, err := b.Subscribe(context.Background())
	require.NoError(t, err)

	fu := &fakeUsers{}
	p := NewBroadcaster(nil, &fakeRepos{users: fu}, b, testLogger(), time.Second)

	s := hub.NewRegistry().Register(nil, auth.Identity{UserID: "u1", Username: "margot"})
	p.Connected(context.Background(), s)

	env := recvEnvelope(t, stream)
	assert.Equal(t, events.TypePresenceOnline, env.Event)
	assert.Equal(t, backbone.ChannelSalon, env.Channel)
	assert.Equal(t, s.ID, env.OriginSession)

	var payload events.PresenceOnline
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "margot", payload.Username)
	assert.False(t, payload.Timestamp.IsZero())

	assert.Equal(t, []string{"u1"}, fu.touched)
}

func TestBroadcaster_ConnectedTouchFailureStillAnnounces(t *testing.T) {
	b := backbone.NewMemoryBackbone()
	defer b.Close()
	stream, err := b.Subscribe(context.Background())
	require.NoError(t, err)

	fu := &fakeUsers{touchErr: assert.AnError}
	p := NewBroadcaster(nil, &fakeRepos{users: fu}, b, testLogger(), time.Second)

	s := hub.NewRegistry().Register(nil, auth.Identity{UserID: "u1", Username: "margot"})
	p.Connected(context.Background(), s)

	env := recvEnvelope(t, stream)
	assert.Equal(t, events.TypePresenceOnline, env.Event)
}

func TestBroadcaster_Disconnected(t *testing.T) {
	b := backbone.NewMemoryBackbone()
	defer b.Close()
	stream, err := b.Subscribe(context.Background())
	require.NoError(t, err)

	p := NewBroadcaster(nil, &fakeRepos{users: &fakeUsers{}}, b, testLogger(), time.Second)

	s := hub.NewRegistry().Register(nil, auth.Identity{UserID: "u2", Username: "felix"})
	p.Disconnected(context.Background(), s)

	env := recvEnvelope(t, stream)
	assert.Equal(t, events.TypePresenceOffline, env.Event)
	assert.Equal(t, s.ID, env.OriginSession)

	var payload events.PresenceOffline
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "felix", payload.Username)
}
