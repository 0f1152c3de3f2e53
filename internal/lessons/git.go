package lessons

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// SyncGit clones repoURL into dir if it doesn't exist there yet, or pulls the latest
// changes if it does, and then reloads the catalog from dir.
func (c *Catalog) SyncGit(ctx context.Context, repoURL, dir string) error {
	if err := syncRepo(ctx, c.logger, repoURL, dir); err != nil {
		return err
	}
	if _, err := c.LoadDir(dir); err != nil {
		return err
	}
	return nil
}

func syncRepo(ctx context.Context, logger *slog.Logger, repoURL, dir string) error {
	_, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("cloning lessons repository", "url", repoURL, "path", dir)
		if _, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{URL: repoURL}); err != nil {
			return fmt.Errorf("failed to clone repo %s: %w", repoURL, err)
		}
	case err == nil:
		logger.Info("pulling lessons repository", "path", dir)
		repo, err := git.PlainOpen(dir)
		if err != nil {
			return fmt.Errorf("failed to open existing repo at %s: %w", dir, err)
		}
		worktree, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("failed to get worktree for repo at %s: %w", dir, err)
		}
		err = worktree.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return fmt.Errorf("failed to pull changes for repo at %s: %w", dir, err)
		}
	default:
		return fmt.Errorf("error checking path %s: %w", dir, err)
	}
	return nil
}

// RepoDir maps a git URL (https or scp-like ssh) to a directory under baseDir,
// e.g. https://github.com/acme/lessons.git -> baseDir/github.com/acme/lessons.
func RepoDir(baseDir, repoURL string) (string, error) {
	parsed, err := url.Parse(repoURL)
	if err == nil && (parsed.Scheme == "https" || parsed.Scheme == "http") {
		return filepath.Join(baseDir, parsed.Host, strings.TrimSuffix(parsed.Path, ".git")), nil
	}

	if user, path, ok := strings.Cut(repoURL, ":"); ok && strings.Contains(user, "@") {
		_, host, _ := strings.Cut(user, "@")
		if host != "" && path != "" {
			return filepath.Join(baseDir, host, strings.TrimSuffix(path, ".git")), nil
		}
	}
	return "", fmt.Errorf("could not parse git URL: %s", repoURL)
}
