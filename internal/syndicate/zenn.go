package syndicate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
)

// ZennConfig holds the publishing target, a local clone of the Zenn
// article repository.
type ZennConfig struct {
	RepoPath string
	Remote   string
	Branch   string

	// ReviewMode pushes to a topic branch and opens a pull request
	// instead of committing to Branch directly.
	ReviewMode bool
	Owner      string
	Repo       string
}

// ZennPublisher writes articles into the clone and pushes them out.
type ZennPublisher struct {
	cfg    ZennConfig
	auth   transport.AuthMethod
	gh     *github.Client
	logger *zap.Logger
}

// NewZennPublisher creates a publisher. auth may be nil for remotes that
// need none (local paths, ssh-agent). gh is required only in review mode.
func NewZennPublisher(cfg ZennConfig, auth transport.AuthMethod, gh *github.Client, logger *zap.Logger) (*ZennPublisher, error) {
	if cfg.RepoPath == "" {
		return nil, fmt.Errorf("zenn repo path is required")
	}
	if cfg.Remote == "" {
		cfg.Remote = "origin"
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.ReviewMode && gh == nil {
		return nil, fmt.Errorf("review mode requires a GitHub client")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZennPublisher{cfg: cfg, auth: auth, gh: gh, logger: logger}, nil
}

// Publish writes articles/<slug>.md, commits and pushes. In review mode
// the commit lands on a fresh topic branch and a PR is opened. Returns
// the repo-relative path of the article file, or an empty string when
// the content was already up to date.
func (p *ZennPublisher) Publish(ctx context.Context, a *Article) (string, error) {
	repo, err := git.PlainOpen(p.cfg.RepoPath)
	if err != nil {
		return "", fmt.Errorf("opening zenn repo at %s: %w", p.cfg.RepoPath, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("getting worktree: %w", err)
	}

	branch := p.cfg.Branch
	if p.cfg.ReviewMode {
		branch = fmt.Sprintf("syndicate/%s-%d", a.Slug, time.Now().Unix())
	}
	if err := wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: p.cfg.ReviewMode,
		Keep:   true,
	}); err != nil {
		return "", fmt.Errorf("checking out %s: %w", branch, err)
	}

	relPath := filepath.Join("articles", a.Slug+".md")
	absPath := filepath.Join(p.cfg.RepoPath, relPath)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", fmt.Errorf("creating articles dir: %w", err)
	}
	if err := os.WriteFile(absPath, []byte(zennDocument(a)), 0o644); err != nil {
		return "", fmt.Errorf("writing article: %w", err)
	}

	if _, err := wt.Add(relPath); err != nil {
		return "", fmt.Errorf("staging article: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("reading worktree status: %w", err)
	}
	if status.IsClean() {
		p.logger.Debug("zenn article unchanged", zap.String("article.slug", a.Slug))
		return "", nil
	}

	msg := fmt.Sprintf("Publish %q", a.Title)
	if _, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "sited",
			Email: "sited@localhost",
			When:  time.Now(),
		},
	}); err != nil {
		return "", fmt.Errorf("committing article: %w", err)
	}

	refspec := gitconfig.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: p.cfg.Remote,
		RefSpecs:   []gitconfig.RefSpec{refspec},
		Auth:       p.auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return "", fmt.Errorf("pushing %s: %w", branch, err)
	}
	p.logger.Info("zenn article pushed",
		zap.String("article.slug", a.Slug),
		zap.String("git.branch", branch))

	if p.cfg.ReviewMode {
		if err := p.openPullRequest(ctx, a, branch); err != nil {
			return "", err
		}
	}
	return relPath, nil
}

func (p *ZennPublisher) openPullRequest(ctx context.Context, a *Article, head string) error {
	pr, _, err := p.gh.PullRequests.Create(ctx, p.cfg.Owner, p.cfg.Repo, &github.NewPullRequest{
		Title: github.String(fmt.Sprintf("Publish %q", a.Title)),
		Head:  github.String(head),
		Base:  github.String(p.cfg.Branch),
		Body:  github.String(fmt.Sprintf("Automated syndication of note page `%s`.", a.PageID)),
	})
	if err != nil {
		return fmt.Errorf("opening pull request for %s: %w", head, err)
	}
	p.logger.Info("review pull request opened",
		zap.String("article.slug", a.Slug),
		zap.Int("pr.number", pr.GetNumber()))
	return nil
}

// zennDocument renders the article with Zenn's YAML frontmatter.
func zennDocument(a *Article) string {
	topics := make([]string, 0, len(a.Topics))
	for _, t := range a.Topics {
		topics = append(topics, fmt.Sprintf("%q", t))
	}
	var sb strings.Builder
	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "title: %q\n", a.Title)
	sb.WriteString("emoji: \"📝\"\n")
	sb.WriteString("type: \"tech\"\n")
	fmt.Fprintf(&sb, "topics: [%s]\n", strings.Join(topics, ", "))
	sb.WriteString("published: true\n")
	sb.WriteString("---\n\n")
	sb.WriteString(a.Markdown)
	return sb.String()
}
