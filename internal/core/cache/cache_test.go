package cache_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/anvil/internal/core/cache"
)

func TestCache_SetGet(t *testing.T) {
	c := cache.New(filepath.Join(t.TempDir(), "cache.txt"))
	c.Set("a", "digest1")

	digest, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "digest1", digest)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_NeedsRebuild(t *testing.T) {
	c := cache.New(filepath.Join(t.TempDir(), "cache.txt"))

	assert.True(t, c.NeedsRebuild("a", "digest1"), "absent entries always need rebuild")

	c.Set("a", "digest1")
	assert.False(t, c.NeedsRebuild("a", "digest1"))
	assert.True(t, c.NeedsRebuild("a", "digest2"))
}

func TestCache_SaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.txt")

	c := cache.New(path)
	c.Set("b", "digest-b")
	c.Set("a", "digest-a")
	require.NoError(t, c.Save())

	reloaded := cache.New(path)
	require.NoError(t, reloaded.Load())

	digestA, ok := reloaded.Get("a")
	require.True(t, ok)
	assert.Equal(t, "digest-a", digestA)

	digestB, ok := reloaded.Get("b")
	require.True(t, ok)
	assert.Equal(t, "digest-b", digestB)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a=digest-a\nb=digest-b\n", string(raw), "entries are sorted by name in the flat file")
}

func TestCache_Load_MissingFileIsNotError(t *testing.T) {
	c := cache.New(filepath.Join(t.TempDir(), "does-not-exist.txt"))
	require.NoError(t, c.Load())
	assert.True(t, c.Empty())
}

func TestCache_RemoveAndClear(t *testing.T) {
	c := cache.New(filepath.Join(t.TempDir(), "cache.txt"))
	c.Set("a", "d1")
	c.Set("b", "d2")

	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))
	assert.Equal(t, 1, c.Size())

	c.Clear()
	assert.True(t, c.Empty())
}
