package syndicate

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Source names one page to syndicate. Sources live in sources.toml inside
// the content dir and are edited by hand.
type Source struct {
	PageID string   `toml:"page_id"`
	Slug   string   `toml:"slug"`
	Topics []string `toml:"topics"`
}

// sourcesFile is the on-disk shape of sources.toml.
type sourcesFile struct {
	Pages []Source `toml:"pages"`
}

// LoadSources reads the source list from dir. A missing file is an empty
// list, not an error.
func LoadSources(dir string) ([]Source, error) {
	path := filepath.Join(dir, "sources.toml")
	var f sourcesFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	for i, s := range f.Pages {
		if s.PageID == "" || s.Slug == "" {
			return nil, fmt.Errorf("%s: pages[%d] needs both page_id and slug", path, i)
		}
	}
	return f.Pages, nil
}

// Entry records where one page has been published, keyed by page ID.
type Entry struct {
	QiitaID     string    `toml:"qiita_id,omitempty"`
	ZennPath    string    `toml:"zenn_path,omitempty"`
	ContentHash string    `toml:"content_hash"`
	SyncedAt    time.Time `toml:"synced_at"`
}

// Registry maps page IDs to published article state so reruns update
// instead of duplicating. It persists as registry.toml in the content
// dir.
type Registry struct {
	path    string
	entries map[string]Entry
}

// LoadRegistry reads registry.toml from dir, creating an empty registry
// when the file does not exist yet.
func LoadRegistry(dir string) (*Registry, error) {
	r := &Registry{
		path:    filepath.Join(dir, "registry.toml"),
		entries: make(map[string]Entry),
	}
	var f struct {
		Articles map[string]Entry `toml:"articles"`
	}
	if _, err := toml.DecodeFile(r.path, &f); err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("reading %s: %w", r.path, err)
	}
	if f.Articles != nil {
		r.entries = f.Articles
	}
	return r, nil
}

// Get returns the entry for a page ID.
func (r *Registry) Get(pageID string) (Entry, bool) {
	e, ok := r.entries[pageID]
	return e, ok
}

// Put records an entry. Call Save to persist.
func (r *Registry) Put(pageID string, e Entry) {
	r.entries[pageID] = e
}

// Len returns the number of recorded pages.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Save writes the registry atomically next to the content it tracks.
func (r *Registry) Save() error {
	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".registry-*")
	if err != nil {
		return fmt.Errorf("creating temp registry: %w", err)
	}

	// The encoder sorts map keys, so the file stays diffable.
	enc := toml.NewEncoder(tmp)
	err = enc.Encode(struct {
		Articles map[string]Entry `toml:"articles"`
	}{Articles: r.entries})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing registry: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("placing registry: %w", err)
	}
	return nil
}
