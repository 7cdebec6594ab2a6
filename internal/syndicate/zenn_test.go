package syndicate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRepos creates a working clone with one commit on master and a
// bare repo wired up as its origin.
func newTestRepos(t *testing.T) (repoDir, bareDir string) {
	t.Helper()
	repoDir = t.TempDir()
	bareDir = t.TempDir()

	_, err := git.PlainInit(bareDir, true)
	require.NoError(t, err)

	repo, err := git.PlainInit(repoDir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(repoDir, "README.md"), []byte("articles\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@localhost", When: time.Now()},
	})
	require.NoError(t, err)

	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{bareDir},
	})
	require.NoError(t, err)
	return repoDir, bareDir
}

func TestZennPublish(t *testing.T) {
	repoDir, bareDir := newTestRepos(t)

	p, err := NewZennPublisher(ZennConfig{RepoPath: repoDir, Branch: "master"}, nil, nil, nil)
	require.NoError(t, err)

	a := &Article{
		PageID:   "p1",
		Title:    "Go Generics",
		Slug:     "go-generics",
		Topics:   []string{"go"},
		Markdown: "# Go Generics\n\nBody.\n",
	}

	relPath, err := p.Publish(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("articles", "go-generics.md"), relPath)

	data, err := os.ReadFile(filepath.Join(repoDir, relPath))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, `title: "Go Generics"`)
	assert.Contains(t, content, `topics: ["go"]`)
	assert.Contains(t, content, "published: true")
	assert.Contains(t, content, "# Go Generics")

	// The push landed on the bare remote.
	bare, err := git.PlainOpen(bareDir)
	require.NoError(t, err)
	ref, err := bare.Reference(plumbing.NewBranchReferenceName("master"), true)
	require.NoError(t, err)
	assert.False(t, ref.Hash().IsZero())
}

func TestZennPublishUnchangedIsNoop(t *testing.T) {
	repoDir, _ := newTestRepos(t)

	p, err := NewZennPublisher(ZennConfig{RepoPath: repoDir, Branch: "master"}, nil, nil, nil)
	require.NoError(t, err)

	a := &Article{PageID: "p1", Title: "Stable", Slug: "stable", Markdown: "Body.\n"}

	relPath, err := p.Publish(context.Background(), a)
	require.NoError(t, err)
	assert.NotEmpty(t, relPath)

	relPath, err = p.Publish(context.Background(), a)
	require.NoError(t, err)
	assert.Empty(t, relPath)
}

func TestNewZennPublisherValidation(t *testing.T) {
	_, err := NewZennPublisher(ZennConfig{}, nil, nil, nil)
	assert.Error(t, err)

	_, err = NewZennPublisher(ZennConfig{RepoPath: "/tmp/x", ReviewMode: true}, nil, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GitHub client")
}
