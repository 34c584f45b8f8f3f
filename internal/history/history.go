package history

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-git/go-git/v6/storage/filesystem"
)

var ErrNoChanges = errors.New("history: nothing to record")

// Entry is one recorded change of the storage directory.
type Entry struct {
	ID      string
	Message string
	When    time.Time
}

// Recorder snapshots the storage directory after a write was applied.
type Recorder interface {
	Record(message string) (string, error)
	Log(limit int) ([]Entry, error)
}

// NopRecorder records nothing.
type NopRecorder struct{}

func (NopRecorder) Record(string) (string, error) { return "", nil }
func (NopRecorder) Log(int) ([]Entry, error)      { return nil, nil }

const (
	authorName  = "flatsql"
	authorEmail = "flatsql@localhost"
)

// GitRecorder keeps a git repository inside the storage directory and
// commits the whole worktree on every Record.
type GitRecorder struct {
	repo *git.Repository
	now  func() time.Time
	log  *slog.Logger
}

// OpenGit opens the repository in dir, initializing it on first use.
func OpenGit(dir string, logger *slog.Logger) (*GitRecorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	wt := osfs.New(dir)
	dot, err := wt.Chroot(".git")
	if err != nil {
		return nil, err
	}
	repo, err := openOrInit(wt, dot)
	if err != nil {
		return nil, fmt.Errorf("history: open repository in %s: %w", dir, err)
	}
	return &GitRecorder{repo: repo, now: time.Now, log: logger}, nil
}

func openOrInit(wt, dot billy.Filesystem) (*git.Repository, error) {
	storer := filesystem.NewStorageWithOptions(
		dot,
		cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: true})

	if _, err := os.Stat(dot.Root()); err != nil {
		return git.Init(storer, git.WithWorkTree(wt))
	}
	return git.Open(storer, wt)
}

// Record stages every file and commits it. A clean worktree returns
// ErrNoChanges.
func (g *GitRecorder) Record(message string) (string, error) {
	wt, err := g.repo.Worktree()
	if err != nil {
		return "", err
	}
	if _, err := wt.Add("."); err != nil {
		return "", fmt.Errorf("history: stage: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return "", err
	}
	if status.IsClean() {
		return "", ErrNoChanges
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  authorName,
			Email: authorEmail,
			When:  g.now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("history: commit: %w", err)
	}
	g.log.Debug("history: recorded", "commit", hash.String(), "msg", message)
	return hash.String(), nil
}

// Log returns up to limit entries, newest first. limit <= 0 means all.
func (g *GitRecorder) Log(limit int) ([]Entry, error) {
	if _, err := g.repo.Head(); err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, err
	}

	iter, err := g.repo.Log(&git.LogOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Entry
	errStop := errors.New("stop")
	err = iter.ForEach(func(c *object.Commit) error {
		if limit > 0 && len(out) >= limit {
			return errStop
		}
		out = append(out, Entry{
			ID:      c.Hash.String(),
			Message: c.Message,
			When:    c.Committer.When,
		})
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	return out, nil
}
