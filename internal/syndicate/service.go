package syndicate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// notesAPI, articleAPI, zennAPI and socialAPI are what the orchestrator
// needs from each platform client. Tests swap in fakes.
type notesAPI interface {
	Page(ctx context.Context, pageID string) (*Page, error)
	Blocks(ctx context.Context, pageID string) ([]Block, error)
}

type articleAPI interface {
	Create(ctx context.Context, a *Article) (*QiitaArticle, error)
	Update(ctx context.Context, qiitaID string, a *Article) (*QiitaArticle, error)
}

type zennAPI interface {
	Publish(ctx context.Context, a *Article) (string, error)
}

type socialAPI interface {
	Announce(ctx context.Context, title, excerpt, url string) error
}

// EventPublisher receives article.published notifications.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, v any) error
}

// PublishedEvent is the payload sent on article.published.
type PublishedEvent struct {
	PageID  string `json:"page_id"`
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	QiitaID string `json:"qiita_id,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Options bundle the orchestrator's knobs.
type Options struct {
	ContentDir     string
	Interval       time.Duration
	RequestsPerSec float64
	SiteBaseURL    string
	// ExcerptRunes caps the social announcement excerpt, 0 means the
	// default of 180.
	ExcerptRunes int
}

// Service drives the whole pipeline: reads sources, converts pages,
// publishes everywhere, and keeps the registry current. A scheduler
// goroutine reruns it at the configured interval, and edits to
// sources.toml trigger an early run.
type Service struct {
	opts    Options
	notes   notesAPI
	qiita   articleAPI
	zenn    zennAPI
	social  socialAPI
	events  EventPublisher
	limiter *rate.Limiter
	logger  *zap.Logger

	// runMu serializes Run: the scheduler and the on-demand HTTP trigger
	// must not race on the registry file.
	runMu sync.Mutex

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	kick    chan struct{}
	watcher *fsnotify.Watcher
}

// NewService creates the orchestrator. social and events may be nil,
// those steps are then skipped.
func NewService(opts Options, notes notesAPI, qiita articleAPI, zenn zennAPI, social socialAPI, events EventPublisher, logger *zap.Logger) (*Service, error) {
	if opts.ContentDir == "" {
		return nil, fmt.Errorf("content dir is required")
	}
	if notes == nil || qiita == nil || zenn == nil {
		return nil, fmt.Errorf("notes, qiita and zenn clients are required")
	}
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 1
	}
	if opts.ExcerptRunes <= 0 {
		opts.ExcerptRunes = 180
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		opts:    opts,
		notes:   notes,
		qiita:   qiita,
		zenn:    zenn,
		social:  social,
		events:  events,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSec), 1),
		logger:  logger,
		kick:    make(chan struct{}, 1),
	}, nil
}

// Run performs one full sync over every source page. Failures on one
// page are logged and counted, the rest still sync.
func (s *Service) Run(ctx context.Context) (*PublishReport, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	start := time.Now()

	sources, err := LoadSources(s.opts.ContentDir)
	if err != nil {
		return nil, err
	}
	registry, err := LoadRegistry(s.opts.ContentDir)
	if err != nil {
		return nil, err
	}

	report := &PublishReport{}
	for _, src := range sources {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
		synced, err := s.syncPage(ctx, src, registry)
		switch {
		case err != nil:
			report.Failed++
			s.logger.Error("page sync failed",
				zap.String("page.id", src.PageID),
				zap.Error(err))
		case synced:
			report.Synced++
			report.Published = append(report.Published, src.Slug)
		default:
			report.Skipped++
		}
	}

	if err := registry.Save(); err != nil {
		return nil, err
	}
	report.Duration = time.Since(start)
	s.logger.Info("syndication run finished",
		zap.Int("synced", report.Synced),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// syncPage publishes one page everywhere it needs to go. Returns false
// when the registry shows the content has not changed.
func (s *Service) syncPage(ctx context.Context, src Source, registry *Registry) (bool, error) {
	page, err := s.notes.Page(ctx, src.PageID)
	if err != nil {
		return false, err
	}
	blocks, err := s.notes.Blocks(ctx, src.PageID)
	if err != nil {
		return false, err
	}

	markdown := ToMarkdown(blocks)
	sum := sha256.Sum256([]byte(page.Title + "\x00" + markdown))
	hash := hex.EncodeToString(sum[:])

	entry, seen := registry.Get(src.PageID)
	if seen && entry.ContentHash == hash {
		return false, nil
	}

	article := &Article{
		PageID:   src.PageID,
		Title:    page.Title,
		Slug:     src.Slug,
		Topics:   src.Topics,
		Markdown: markdown,
	}

	var qiitaID, articleURL string
	if seen && entry.QiitaID != "" {
		updated, err := s.qiita.Update(ctx, entry.QiitaID, article)
		if err != nil {
			return false, err
		}
		qiitaID, articleURL = updated.ID, updated.URL
	} else {
		created, err := s.qiita.Create(ctx, article)
		if err != nil {
			return false, err
		}
		qiitaID, articleURL = created.ID, created.URL
	}

	zennPath, err := s.zenn.Publish(ctx, article)
	if err != nil {
		return false, err
	}
	if zennPath == "" && seen {
		zennPath = entry.ZennPath
	}

	if s.opts.SiteBaseURL != "" {
		articleURL = s.opts.SiteBaseURL + "/" + src.Slug
	}

	// Announce only the first time a page goes out.
	if !seen && s.social != nil {
		excerpt := Excerpt(markdown, s.opts.ExcerptRunes)
		if err := s.social.Announce(ctx, page.Title, excerpt, articleURL); err != nil {
			// The article is already published, do not fail the sync.
			s.logger.Warn("social announcement failed",
				zap.String("page.id", src.PageID),
				zap.Error(err))
		}
	}

	registry.Put(src.PageID, Entry{
		QiitaID:     qiitaID,
		ZennPath:    zennPath,
		ContentHash: hash,
		SyncedAt:    time.Now().UTC(),
	})

	if s.events != nil {
		ev := PublishedEvent{
			PageID:  src.PageID,
			Slug:    src.Slug,
			Title:   page.Title,
			QiitaID: qiitaID,
			URL:     articleURL,
		}
		if err := s.events.Publish(ctx, "article.published", ev); err != nil {
			s.logger.Warn("Failed to publish article.published",
				zap.String("page.id", src.PageID),
				zap.Error(err))
		}
	}
	return true, nil
}

// Start begins the background sync scheduler. Calling Start on a running
// service is an error.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("syndication scheduler is already running")
	}
	if s.opts.Interval <= 0 {
		return fmt.Errorf("syndication interval must be > 0")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating content watcher: %w", err)
	}
	if err := watcher.Add(s.opts.ContentDir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", s.opts.ContentDir, err)
	}

	s.watcher = watcher
	s.stopCh = make(chan struct{})
	s.running = true

	s.logger.Info("syndication scheduler started",
		zap.Duration("interval", s.opts.Interval),
		zap.String("content_dir", s.opts.ContentDir))

	go s.watch()
	go s.loop()
	return nil
}

// Stop shuts the scheduler down. Stopping a stopped service is a no-op.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.logger.Info("stopping syndication scheduler")
	s.running = false
	close(s.stopCh)
	s.watcher.Close()
	return nil
}

// watch forwards sources.toml edits into the kick channel so the loop
// runs early.
func (s *Service) watch() {
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != "sources.toml" {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case s.kick <- struct{}{}:
			default:
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("content watcher error", zap.Error(err))
		}
	}
}

func (s *Service) loop() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("syndication loop panicked, recovering",
				zap.Any("panic", r),
				zap.Stack("stack"))
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}
	}()

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.safeRun()
		case <-s.kick:
			s.logger.Debug("content change detected, syncing early")
			s.safeRun()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Service) safeRun() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("syndication run panicked, continuing scheduler",
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if _, err := s.Run(ctx); err != nil {
		s.logger.Error("syndication run failed", zap.Error(err))
	}
}
