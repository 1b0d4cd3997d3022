package enrich

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_RoundTripAndTTL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "comp.json")
	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	c := LoadCache(path, DefaultTTL, clock)
	assert.Equal(t, 0, c.Len())

	c.Put("hooli", estimateEntry(Estimate{Min: 1_000_000, Max: 2_000_000}))
	require.NoError(t, c.Save())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.EqualValues(t, 1_000_000, raw["hooli"]["minValue"])
	assert.EqualValues(t, 2_000_000, raw["hooli"]["maxValue"])
	assert.Equal(t, SourceFallback, raw["hooli"]["source"])
	assert.EqualValues(t, now.UnixMilli(), raw["hooli"]["ts"])

	later := now.Add(DefaultTTL - time.Minute)
	c2 := LoadCache(path, DefaultTTL, func() time.Time { return later })
	_, ok := c2.Get("hooli")
	assert.True(t, ok)

	expired := now.Add(DefaultTTL)
	c3 := LoadCache(path, DefaultTTL, func() time.Time { return expired })
	e, ok := c3.Get("hooli")
	assert.False(t, ok)
	assert.EqualValues(t, 2_000_000, e.MaxValue, "stale entries stay on disk until refreshed")
}

func TestCache_MaxOnlyEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comp.json")
	c := LoadCache(path, 0, nil)
	c.Put("globex", estimateEntry(Estimate{Max: 900_000}))
	require.NoError(t, c.Save())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "minValue")
}

func TestCache_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comp.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	c := LoadCache(path, DefaultTTL, nil)
	assert.Equal(t, 0, c.Len())
}

func TestCache_SaveSkipsWhenClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comp.json")
	require.NoError(t, LoadCache(path, DefaultTTL, nil).Save())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestCache_StaleEntriesSurviveUnrelatedSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comp.json")
	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	old := now.Add(-DefaultTTL - time.Hour)

	c := LoadCache(path, DefaultTTL, func() time.Time { return old })
	c.Put("initrode", estimateEntry(Estimate{Max: 3_000_000}))
	require.NoError(t, c.Save())

	c = LoadCache(path, DefaultTTL, func() time.Time { return now })
	_, ok := c.Get("initrode")
	require.False(t, ok)
	c.Put("hooli", estimateEntry(Estimate{Max: 2_000_000}))
	require.NoError(t, c.Save())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]CacheEntry
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Contains(t, raw, "hooli")
	require.Contains(t, raw, "initrode")
	assert.Equal(t, old.UnixMilli(), raw["initrode"].TS)
}
