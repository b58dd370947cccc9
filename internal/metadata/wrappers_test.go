package metadata

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/kdimtricp/popscan/internal/cache"
	"github.com/kdimtricp/popscan/internal/models"
)

func TestCachedServesRepeatQueries(t *testing.T) {
	mem := cache.NewMemory(0)
	defer mem.Close()

	sub := &fakeSub{name: "omdb", results: map[string][]models.MediaTitle{
		"the last of us": {lastOfUsOMDb()},
	}}
	wrapped := Cached(sub, mem, time.Minute, zerolog.Nop())
	assert.Equal(t, "omdb", wrapped.Name())

	first, err := wrapped.Lookup(context.Background(), "The Last of Us")
	require.NoError(t, err)
	second, err := wrapped.Lookup(context.Background(), " the last of us ")
	require.NoError(t, err)

	assert.Len(t, sub.calls(), 1)
	assert.Equal(t, first, second)
}

func TestCachedSkipsFailures(t *testing.T) {
	mem := cache.NewMemory(0)
	defer mem.Close()

	sub := &fakeSub{name: "omdb", err: errBoom}
	wrapped := Cached(sub, mem, time.Minute, zerolog.Nop())

	_, err := wrapped.Lookup(context.Background(), "Dune")
	require.ErrorIs(t, err, errBoom)
	_, err = wrapped.Lookup(context.Background(), "Dune")
	require.ErrorIs(t, err, errBoom)
	assert.Len(t, sub.calls(), 2)
	assert.Zero(t, mem.Len())
}

func TestCachedDropsCorruptEntries(t *testing.T) {
	mem := cache.NewMemory(0)
	defer mem.Close()
	mem.Set(context.Background(), CacheKey("omdb", "Dune"), []byte("not json"), 0)

	sub := &fakeSub{name: "omdb"}
	titles, err := Cached(sub, mem, time.Minute, zerolog.Nop()).Lookup(context.Background(), "Dune")
	require.NoError(t, err)
	assert.Empty(t, titles)
	assert.Len(t, sub.calls(), 1)
}

func TestLimitHonoursContext(t *testing.T) {
	sub := &fakeSub{name: "tvmaze"}
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	wrapped := Limit(sub, limiter)

	_, err := wrapped.Lookup(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = wrapped.Lookup(ctx, "second")
	assert.Error(t, err)
	assert.Equal(t, []string{"first"}, sub.calls())
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "subprov:tmdb:dune: part two", CacheKey("tmdb", "  Dune: Part Two "))
}
