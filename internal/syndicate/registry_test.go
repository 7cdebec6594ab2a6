package syndicate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSourcesMissing(t *testing.T) {
	sources, err := LoadSources(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestLoadSources(t *testing.T) {
	dir := t.TempDir()
	content := `
[[pages]]
page_id = "abc123"
slug = "go-generics"
topics = ["go", "generics"]

[[pages]]
page_id = "def456"
slug = "sqlite-tips"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sources.toml"), []byte(content), 0o644))

	sources, err := LoadSources(dir)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "abc123", sources[0].PageID)
	assert.Equal(t, []string{"go", "generics"}, sources[0].Topics)
	assert.Equal(t, "sqlite-tips", sources[1].Slug)
}

func TestLoadSourcesRejectsIncomplete(t *testing.T) {
	dir := t.TempDir()
	content := `
[[pages]]
page_id = "abc123"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sources.toml"), []byte(content), 0o644))

	_, err := LoadSources(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page_id and slug")
}

func TestRegistryRoundTrip(t *testing.T) {
	dir := t.TempDir()

	reg, err := LoadRegistry(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, reg.Len())

	_, ok := reg.Get("abc123")
	assert.False(t, ok)

	reg.Put("abc123", Entry{
		QiitaID:     "q-1",
		ZennPath:    "articles/go-generics.md",
		ContentHash: "deadbeef",
		SyncedAt:    time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, reg.Save())

	reloaded, err := LoadRegistry(dir)
	require.NoError(t, err)
	entry, ok := reloaded.Get("abc123")
	require.True(t, ok)
	assert.Equal(t, "q-1", entry.QiitaID)
	assert.Equal(t, "deadbeef", entry.ContentHash)
	assert.True(t, entry.SyncedAt.Equal(time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)))
}

func TestRegistrySaveOverwrites(t *testing.T) {
	dir := t.TempDir()

	reg, err := LoadRegistry(dir)
	require.NoError(t, err)
	reg.Put("p1", Entry{ContentHash: "v1"})
	require.NoError(t, reg.Save())

	reg.Put("p1", Entry{ContentHash: "v2"})
	require.NoError(t, reg.Save())

	reloaded, err := LoadRegistry(dir)
	require.NoError(t, err)
	entry, _ := reloaded.Get("p1")
	assert.Equal(t, "v2", entry.ContentHash)
	assert.Equal(t, 1, reloaded.Len())
}
