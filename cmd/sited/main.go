// Sited is the daemon backing a personal web-app suite: todo tracking
// with completion stats, a spaced-repetition tech quiz, massage ticket
// accounting, a lift-level calculator, a dex browser proxy, image
// uploads and content syndication.
//
// Configuration is loaded from a YAML file plus environment overrides.
//
// Usage:
//
//	# Start with the default config path (~/.config/sited/config.yaml)
//	sited
//
//	# Explicit config plus env overrides
//	SERVER_PORT=8800 sited --config /etc/sited/config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/google/go-github/v57/github"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/hikarilabs/sited/internal/config"
	"github.com/hikarilabs/sited/internal/dex"
	"github.com/hikarilabs/sited/internal/events"
	"github.com/hikarilabs/sited/internal/httpapi"
	"github.com/hikarilabs/sited/internal/images"
	"github.com/hikarilabs/sited/internal/logging"
	"github.com/hikarilabs/sited/internal/quiz"
	"github.com/hikarilabs/sited/internal/store"
	"github.com/hikarilabs/sited/internal/syndicate"
	"github.com/hikarilabs/sited/internal/ticket"
	"github.com/hikarilabs/sited/internal/todo"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to the config file (default ~/.config/sited/config.yaml)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("sited\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// run wires everything together and blocks until ctx is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	logCfg := logging.NewDefaultConfig()
	logCfg.Level = level
	logCfg.Format = cfg.Logging.Format
	zl, err := logging.NewLogger(logCfg)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = zl.Sync()
	}()
	logger := zl.Underlying()

	logger.Info("Starting sited",
		zap.String("version", version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port))

	dbPath, err := config.ExpandHome(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("resolving database path: %w", err)
	}
	st, err := store.Open(ctx, dbPath, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	// A nil bus is valid everywhere downstream; publishes become no-ops.
	var bus *events.Bus
	if cfg.NATS.Enabled {
		bus, err = events.Connect(cfg.NATS.URL, logger)
		if err != nil {
			return fmt.Errorf("connecting event bus: %w", err)
		}
	}
	defer bus.Close()

	dexClient, err := dex.NewClient(dex.Config{
		BaseURL:        cfg.Dex.BaseURL,
		CacheTTL:       cfg.Dex.CacheTTL.Duration(),
		CacheEntries:   cfg.Cache.MaxEntries,
		RequestsPerSec: cfg.Dex.RequestsPerSec,
		Timeout:        cfg.Dex.Timeout.Duration(),
	}, logger)
	if err != nil {
		return fmt.Errorf("creating dex client: %w", err)
	}

	imgRoot, err := config.ExpandHome(cfg.Images.Root)
	if err != nil {
		return fmt.Errorf("resolving image root: %w", err)
	}
	imgSvc, err := images.NewService(st, images.Config{
		Root:     imgRoot,
		MaxBytes: cfg.Images.MaxBytes,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating image service: %w", err)
	}

	deps := httpapi.Deps{
		Todos:   todo.NewService(st, bus, logger),
		Quiz:    quiz.NewService(st, quiz.NewPolicy(cfg.Quiz.IntervalDays), logger),
		Tickets: ticket.NewService(st, bus, logger),
		Dex:     dexClient,
		Images:  imgSvc,
	}

	if cfg.Syndicate.Enabled {
		syndicator, err := buildSyndicator(ctx, &cfg.Syndicate, bus, logger)
		if err != nil {
			return fmt.Errorf("creating syndication pipeline: %w", err)
		}
		if err := syndicator.Start(); err != nil {
			return fmt.Errorf("starting syndication scheduler: %w", err)
		}
		defer func() {
			_ = syndicator.Stop()
		}()
		deps.Syndicate = syndicator
	}

	srv, err := httpapi.NewServer(deps, cfg.Server, cfg.Cache, cfg.Auth.Token, newMetricsRegistry(), logger)
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newMetricsRegistry builds the Prometheus registry with the standard
// process and runtime collectors.
func newMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// buildSyndicator assembles the platform clients behind the pipeline.
func buildSyndicator(ctx context.Context, sc *config.SyndicateConfig, bus *events.Bus, logger *zap.Logger) (*syndicate.Service, error) {
	notes, err := syndicate.NewNotesClient(sc.NotesAPIURL, sc.NotesToken.Value(), logger)
	if err != nil {
		return nil, err
	}
	qiita, err := syndicate.NewQiitaClient(sc.QiitaAPIURL, sc.QiitaToken.Value(), logger)
	if err != nil {
		return nil, err
	}

	var gitAuth transport.AuthMethod
	var gh *github.Client
	if sc.GitHubToken.IsSet() {
		gitAuth = &githttp.BasicAuth{Username: "git", Password: sc.GitHubToken.Value()}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: sc.GitHubToken.Value()})
		gh = github.NewClient(oauth2.NewClient(ctx, ts))
	}
	zenn, err := syndicate.NewZennPublisher(syndicate.ZennConfig{
		RepoPath:   sc.ZennRepoPath,
		Remote:     sc.ZennGitRemote,
		Branch:     sc.ZennBranch,
		ReviewMode: sc.ReviewMode,
		Owner:      sc.GitHubOwner,
		Repo:       sc.GitHubRepo,
	}, gitAuth, gh, logger)
	if err != nil {
		return nil, err
	}

	contentDir, err := config.ExpandHome(sc.ContentDir)
	if err != nil {
		return nil, err
	}
	opts := syndicate.Options{
		ContentDir:     contentDir,
		Interval:       sc.Interval.Duration(),
		RequestsPerSec: sc.RequestsPerSec,
		SiteBaseURL:    sc.SiteBaseURL,
	}

	if sc.SocialAPIURL != "" && sc.SocialToken.IsSet() {
		social, err := syndicate.NewSocialClient(sc.SocialAPIURL, sc.SocialToken.Value(), logger)
		if err != nil {
			return nil, err
		}
		return syndicate.NewService(opts, notes, qiita, zenn, social, bus, logger)
	}
	return syndicate.NewService(opts, notes, qiita, zenn, nil, bus, logger)
}
