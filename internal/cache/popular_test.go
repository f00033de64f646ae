package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"filmrate/backend/internal/models"
	"filmrate/backend/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Run locally:
//   GO_TEST_INTEGRATION=1 go test ./internal/cache -v -count=1

func startRedis(t *testing.T) *Popular {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	p, err := NewPopular(ctx, fmt.Sprintf("redis://%s:%s/0", host, port.Port()), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// startMiniredis serves the cache from an in-process Redis, no Docker needed.
func startMiniredis(t *testing.T) *Popular {
	t.Helper()
	mr := miniredis.RunT(t)

	p, err := NewPopular(context.Background(), "redis://"+mr.Addr()+"/0", time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestKey(t *testing.T) {
	require.Equal(t, "films:popular:v3:10:2:1999", key(3, storage.PopularFilter{Count: 10, GenreID: 2, Year: 1999}))
}

func TestPopular_SetGetInvalidate(t *testing.T) {
	p := startRedis(t)
	ctx := context.Background()
	filter := storage.PopularFilter{Count: 10}

	_, version, ok, err := p.Get(ctx, filter)
	require.NoError(t, err)
	require.False(t, ok)

	films := []models.Film{{
		ID:          1,
		Name:        "Film",
		ReleaseDate: models.NewDate(2001, time.May, 4),
		Duration:    100,
		Likes:       map[uint]int{3: 8},
	}}
	require.NoError(t, p.Set(ctx, filter, version, films))

	got, _, ok, err := p.Get(ctx, filter)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	require.Equal(t, "Film", got[0].Name)
	require.Equal(t, 8, got[0].Likes[3])
	require.True(t, films[0].ReleaseDate.Equal(got[0].ReleaseDate.Time))

	require.NoError(t, p.Invalidate(ctx))
	_, _, ok, err = p.Get(ctx, filter)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPopular_InvalidateOrphansLists(t *testing.T) {
	p := startMiniredis(t)
	ctx := context.Background()
	filter := storage.PopularFilter{Count: 5, Year: 2001}
	films := []models.Film{{ID: 1, Name: "Film", Likes: map[uint]int{}}}

	_, version, ok, err := p.Get(ctx, filter)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, p.Set(ctx, filter, version, films))

	got, _, ok, err := p.Get(ctx, filter)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Film", got[0].Name)

	require.NoError(t, p.Invalidate(ctx))
	_, newVersion, ok, err := p.Get(ctx, filter)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, version+1, newVersion)
}

func TestPopular_SetAfterInvalidateIsNotServed(t *testing.T) {
	p := startMiniredis(t)
	ctx := context.Background()
	filter := storage.PopularFilter{Count: 10}
	stale := []models.Film{{ID: 1, Name: "before like"}}

	_, version, ok, err := p.Get(ctx, filter)
	require.NoError(t, err)
	require.False(t, ok)

	// A like invalidates while the stale list is still being loaded.
	require.NoError(t, p.Invalidate(ctx))
	require.NoError(t, p.Set(ctx, filter, version, stale))

	_, _, ok, err = p.Get(ctx, filter)
	require.NoError(t, err)
	require.False(t, ok)
}
