package syndicate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotes struct {
	pages  map[string]*Page
	blocks map[string][]Block
}

func (f *fakeNotes) Page(_ context.Context, id string) (*Page, error) {
	p, ok := f.pages[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPageNotFound, id)
	}
	return p, nil
}

func (f *fakeNotes) Blocks(_ context.Context, id string) ([]Block, error) {
	return f.blocks[id], nil
}

type fakeQiita struct {
	mu      sync.Mutex
	created []string
	updated []string
}

func (f *fakeQiita) Create(_ context.Context, a *Article) (*QiitaArticle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, a.PageID)
	return &QiitaArticle{ID: "q-" + a.PageID, URL: "https://qiita.example/" + a.Slug}, nil
}

func (f *fakeQiita) Update(_ context.Context, id string, a *Article) (*QiitaArticle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, a.PageID)
	return &QiitaArticle{ID: id, URL: "https://qiita.example/" + a.Slug}, nil
}

func (f *fakeQiita) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fakeZenn struct {
	published []string
}

func (f *fakeZenn) Publish(_ context.Context, a *Article) (string, error) {
	f.published = append(f.published, a.Slug)
	return filepath.Join("articles", a.Slug+".md"), nil
}

type fakeSocial struct {
	announced []string
}

func (f *fakeSocial) Announce(_ context.Context, title, excerpt, url string) error {
	f.announced = append(f.announced, title)
	return nil
}

type fakeEvents struct {
	subjects []string
}

func (f *fakeEvents) Publish(_ context.Context, subject string, _ any) error {
	f.subjects = append(f.subjects, subject)
	return nil
}

func writeSources(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sources.toml"), []byte(content), 0o644))
}

func newFixture(t *testing.T) (dir string, notes *fakeNotes, qiita *fakeQiita, zenn *fakeZenn, social *fakeSocial, events *fakeEvents) {
	t.Helper()
	dir = t.TempDir()
	writeSources(t, dir, `
[[pages]]
page_id = "p1"
slug = "go-generics"
topics = ["go"]
`)
	notes = &fakeNotes{
		pages: map[string]*Page{
			"p1": {ID: "p1", Title: "Go Generics", LastEdited: time.Now()},
		},
		blocks: map[string][]Block{
			"p1": {
				{Type: BlockHeading1, Text: "Go Generics"},
				{Type: BlockParagraph, Text: "Type parameters arrived in 1.18."},
			},
		},
	}
	return dir, notes, &fakeQiita{}, &fakeZenn{}, &fakeSocial{}, &fakeEvents{}
}

func newService(t *testing.T, dir string, notes *fakeNotes, qiita *fakeQiita, zenn *fakeZenn, social *fakeSocial, events *fakeEvents) *Service {
	t.Helper()
	svc, err := NewService(Options{
		ContentDir:     dir,
		Interval:       time.Hour,
		RequestsPerSec: 1000,
		SiteBaseURL:    "https://blog.example",
	}, notes, qiita, zenn, social, events, nil)
	require.NoError(t, err)
	return svc
}

func TestRunPublishesNewPage(t *testing.T) {
	dir, notes, qiita, zenn, social, events := newFixture(t)
	svc := newService(t, dir, notes, qiita, zenn, social, events)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Synced)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, []string{"go-generics"}, report.Published)

	assert.Equal(t, []string{"p1"}, qiita.created)
	assert.Empty(t, qiita.updated)
	assert.Equal(t, []string{"go-generics"}, zenn.published)
	assert.Equal(t, []string{"Go Generics"}, social.announced)
	assert.Equal(t, []string{"article.published"}, events.subjects)

	reg, err := LoadRegistry(dir)
	require.NoError(t, err)
	entry, ok := reg.Get("p1")
	require.True(t, ok)
	assert.Equal(t, "q-p1", entry.QiitaID)
	assert.NotEmpty(t, entry.ContentHash)
}

func TestRunIsIdempotent(t *testing.T) {
	dir, notes, qiita, zenn, social, events := newFixture(t)
	svc := newService(t, dir, notes, qiita, zenn, social, events)

	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Synced)
	assert.Equal(t, 1, report.Skipped)

	// Nothing hit the platforms a second time.
	assert.Len(t, qiita.created, 1)
	assert.Empty(t, qiita.updated)
	assert.Len(t, zenn.published, 1)
	assert.Len(t, social.announced, 1)
}

func TestRunUpdatesChangedPage(t *testing.T) {
	dir, notes, qiita, zenn, social, events := newFixture(t)
	svc := newService(t, dir, notes, qiita, zenn, social, events)

	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	notes.blocks["p1"] = append(notes.blocks["p1"], Block{Type: BlockParagraph, Text: "New section."})

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Synced)

	// Updated in place, not recreated, and not re-announced.
	assert.Len(t, qiita.created, 1)
	assert.Equal(t, []string{"p1"}, qiita.updated)
	assert.Len(t, social.announced, 1)
	assert.Len(t, events.subjects, 2)
}

func TestRunCountsFailures(t *testing.T) {
	dir, notes, qiita, zenn, social, events := newFixture(t)
	writeSources(t, dir, `
[[pages]]
page_id = "p1"
slug = "go-generics"

[[pages]]
page_id = "gone"
slug = "missing-page"
`)
	svc := newService(t, dir, notes, qiita, zenn, social, events)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Synced)
	assert.Equal(t, 1, report.Failed)
}

func TestSchedulerStartStop(t *testing.T) {
	dir, notes, qiita, zenn, social, events := newFixture(t)
	svc := newService(t, dir, notes, qiita, zenn, social, events)

	require.NoError(t, svc.Start())
	assert.Error(t, svc.Start())
	require.NoError(t, svc.Stop())
	require.NoError(t, svc.Stop())

	// Restartable after a stop.
	require.NoError(t, svc.Start())
	require.NoError(t, svc.Stop())
}

func TestWatcherTriggersEarlyRun(t *testing.T) {
	dir, notes, qiita, zenn, social, events := newFixture(t)
	svc := newService(t, dir, notes, qiita, zenn, social, events)

	require.NoError(t, svc.Start())
	defer svc.Stop()

	// Touch sources.toml and wait for the kicked run to publish.
	writeSources(t, dir, `
[[pages]]
page_id = "p1"
slug = "go-generics"
topics = ["go"]
`)

	assert.Eventually(t, func() bool {
		return qiita.createdCount() > 0
	}, 5*time.Second, 50*time.Millisecond)
}
