package coffee

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"log/slog"
	"os"

	"github.com/convivial/salon/internal/common"
	"github.com/convivial/salon/internal/dbx"
	"github.com/convivial/salon/internal/logging"
	"github.com/convivial/salon/internal/server/backbone"
	"github.com/convivial/salon/internal/server/events"
	"github.com/convivial/salon/internal/server/models"
	"github.com/convivial/salon/internal/server/repositories/collisions"
	"github.com/convivial/salon/internal/server/repositories/digests"
	"github.com/convivial/salon/internal/server/repositories/discoveries"
	"github.com/convivial/salon/internal/server/repositories/repomanager"
	"github.com/convivial/salon/internal/server/repositories/searches"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	entries map[string][]byte
	fields  map[string]map[string]int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}, fields: map[string]map[string]int{}}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	b, ok := c.entries[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	return b, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.entries[key] = value
	return nil
}

func (c *memoryCache) IncrField(_ context.Context, key, field string) error {
	if c.fields[key] == nil {
		c.fields[key] = map[string]int{}
	}
	c.fields[key][field]++
	return nil
}

func (c *memoryCache) Close() error { return nil }

type fakeDiscoveries struct {
	byDay []models.DiscoveryView
}

func (f *fakeDiscoveries) Create(_ context.Context, _ *models.Discovery) error { return nil }

func (f *fakeDiscoveries) ListRecent(_ context.Context, _ int) ([]models.DiscoveryView, error) {
	return f.byDay, nil
}

func (f *fakeDiscoveries) ListForDay(_ context.Context, _ time.Time) ([]models.DiscoveryView, error) {
	return f.byDay, nil
}

type fakeSearches struct {
	popular []searches.QueryCount
}

func (f *fakeSearches) Create(_ context.Context, _ *models.SearchSession) error { return nil }

func (f *fakeSearches) FindMatches(_ context.Context, _, _ string, _ time.Time) ([]models.User, error) {
	return nil, nil
}

func (f *fakeSearches) PopularQueries(_ context.Context, _ time.Time, _ int) ([]searches.QueryCount, error) {
	return f.popular, nil
}

type fakeCollisions struct {
	recent []models.CollisionView
}

func (f *fakeCollisions) Create(_ context.Context, _ *models.Collision) error { return nil }

func (f *fakeCollisions) ExistsForPair(_ context.Context, _, _, _ string, _ time.Time) (bool, error) {
	return false, nil
}

func (f *fakeCollisions) ListRecent(_ context.Context, _ time.Time, _ int) ([]models.CollisionView, error) {
	return f.recent, nil
}

type fakeDigests struct {
	upserted []*models.Digest
}

func (f *fakeDigests) Upsert(_ context.Context, d *models.Digest) error {
	f.upserted = append(f.upserted, d)
	return nil
}

type fakeRepos struct {
	repomanager.RepositoryManager
	discoveries *fakeDiscoveries
	searches    *fakeSearches
	collisions  *fakeCollisions
	digests     *fakeDigests
}

func (f *fakeRepos) Discoveries(_ dbx.DBTX) discoveries.Repository { return f.discoveries }
func (f *fakeRepos) Searches(_ dbx.DBTX) searches.Repository       { return f.searches }
func (f *fakeRepos) Collisions(_ dbx.DBTX) collisions.Repository   { return f.collisions }
func (f *fakeRepos) Digests(_ dbx.DBTX) digests.Repository         { return f.digests }

func newFakeRepos() *fakeRepos {
	return &fakeRepos{
		discoveries: &fakeDiscoveries{},
		searches:    &fakeSearches{},
		collisions:  &fakeCollisions{},
		digests:     &fakeDigests{},
	}
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

func TestGenerator_GeneratePersistsCachesAndAnnounces(t *testing.T) {
	b := backbone.NewMemoryBackbone()
	defer b.Close()
	stream, err := b.Subscribe(context.Background())
	require.NoError(t, err)

	repos := newFakeRepos()
	repos.discoveries.byDay = []models.DiscoveryView{
		{Discovery: models.Discovery{ID: "d1", Title: "Celestial atlas, 1822"}, Username: "margot"},
		{Discovery: models.Discovery{ID: "d2", Title: "Rain on a tin roof"}, Username: "felix"},
	}
	repos.searches.popular = []searches.QueryCount{{Query: "old vinyl records", Count: 4}}
	repos.collisions.recent = []models.CollisionView{{}}

	cache := newMemoryCache()
	g := NewGenerator(nil, repos, b, cache, testLogger())

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	d, err := g.Generate(context.Background(), day)
	require.NoError(t, err)

	assert.Equal(t, 2, d.Count)
	assert.Contains(t, d.Summary, "2 discoveries")
	assert.Contains(t, d.Summary, "old vinyl records")
	require.Len(t, repos.digests.upserted, 1)

	_, ok := cache.entries[digestCacheKey(day)]
	assert.True(t, ok)

	select {
	case env := <-stream:
		assert.Equal(t, events.TypeCoffeeReady, env.Event)
		assert.Empty(t, env.OriginSession)
		var p events.CoffeeReady
		require.NoError(t, json.Unmarshal(env.Payload, &p))
		assert.Equal(t, "2026-03-01", p.Date)
		assert.Equal(t, 2, p.Count)
	case <-time.After(time.Second):
		t.Fatal("expected coffee.ready")
	}
}

func TestGenerator_CachedServesWarmDigestWithoutRegenerating(t *testing.T) {
	b := backbone.NewMemoryBackbone()
	defer b.Close()

	repos := newFakeRepos()
	cache := newMemoryCache()
	g := NewGenerator(nil, repos, b, cache, testLogger())

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	warm := &models.Digest{Date: day, Count: 7, Summary: "7 discoveries shared."}
	raw, err := json.Marshal(warm)
	require.NoError(t, err)
	require.NoError(t, cache.Set(context.Background(), digestCacheKey(day), raw, time.Hour))

	d, err := g.Cached(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, 7, d.Count)
	assert.Empty(t, repos.digests.upserted)
}

func TestGenerator_CachedRegeneratesOnMiss(t *testing.T) {
	b := backbone.NewMemoryBackbone()
	defer b.Close()

	repos := newFakeRepos()
	g := NewGenerator(nil, repos, b, newMemoryCache(), testLogger())

	d, err := g.Cached(context.Background(), time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, d.Count)
	assert.Equal(t, "A quiet day in the salon.", d.Summary)
	assert.Len(t, repos.digests.upserted, 1)
}

func TestGenerator_ReactCountsPerDay(t *testing.T) {
	b := backbone.NewMemoryBackbone()
	defer b.Close()

	cache := newMemoryCache()
	g := NewGenerator(nil, newFakeRepos(), b, cache, testLogger())

	day := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)
	g.React(context.Background(), day, "☕")
	g.React(context.Background(), day, "☕")
	g.React(context.Background(), day, "🥐")

	counts := cache.fields[reactionCacheKey(day)]
	assert.Equal(t, 2, counts["☕"])
	assert.Equal(t, 1, counts["🥐"])
}

func TestScheduler_NextFiring(t *testing.T) {
	s := NewScheduler(nil, testLogger(), 8)

	before := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), s.nextFiring(before))

	after := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), s.nextFiring(after))

	exactly := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), s.nextFiring(exactly))
}
