// Package gitsource keeps local checkouts of note repositories up to date.
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

// Sync clones url into localPath if nothing is there yet, or pulls the
// latest changes if a checkout exists. Progress output from the transfer is
// written to progress, which may be nil.
func Sync(ctx context.Context, url, localPath string, progress io.Writer) error {
	_, err := os.Stat(localPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return clone(ctx, url, localPath, progress)
	case err != nil:
		return fmt.Errorf("error checking path %s: %w", localPath, err)
	}
	return pull(ctx, localPath, progress)
}

func clone(ctx context.Context, url, localPath string, progress io.Writer) error {
	slog.Info("Cloning repository", "url", url, "path", localPath)
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(localPath), err)
	}
	_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
		URL:      url,
		Progress: progress,
	})
	if err != nil {
		// Leave no half-written checkout behind to be mistaken for a clone.
		_ = os.RemoveAll(localPath)
		return fmt.Errorf("failed to clone repo %s: %w", url, err)
	}
	return nil
}

func pull(ctx context.Context, localPath string, progress io.Writer) error {
	slog.Info("Pulling latest changes", "path", localPath)
	repo, err := git.PlainOpen(localPath)
	if err != nil {
		return fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
	}
	err = worktree.PullContext(ctx, &git.PullOptions{
		RemoteName: "origin",
		Progress:   progress,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
	}
	return nil
}
