// Package git reads commit history from local clones of the configured
// remotes and keeps those clones up to date.
//
// All invocations of the git binary go through a CommandExecutor so the
// parsing and refresh logic can be exercised without a real repository.
package git

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pbaricco/kimai-cli/internal/model"
)

// logFormat yields one "hash|time|author|subject" line per commit.
const logFormat = "--pretty=format:%H|%ad|%an|%s"

// Client is the narrow view of git the gap-filler depends on.
type Client interface {
	// ListCommits returns the commits of the clone at repoPath authored
	// inside [from, to], tagged with repoName.
	ListCommits(ctx context.Context, repoPath, repoName string, from, to time.Time) ([]model.Commit, error)
	// EnsureCloned clones url into path when path does not exist yet and
	// reports whether a clone took place.
	EnsureCloned(ctx context.Context, url, path string) (bool, error)
	// Pull fast-forwards the clone at path.
	Pull(ctx context.Context, path string) error
}

// ExecClient implements Client by running the git binary.
type ExecClient struct {
	Binary   string
	Executor CommandExecutor
}

// NewExecClient returns a client using the git found on PATH.
func NewExecClient() *ExecClient {
	return &ExecClient{Binary: "git", Executor: NewExecExecutor()}
}

func (c *ExecClient) command(ctx context.Context, args ...string) *exec.Cmd {
	bin := c.Binary
	if bin == "" {
		bin = "git"
	}
	return exec.CommandContext(ctx, bin, args...)
}

// LogArgs builds the git log arguments for the window [from, to].
func LogArgs(repoPath string, from, to time.Time) []string {
	return []string{
		"-C", repoPath,
		"log",
		logFormat,
		"--date=format:%H:%M",
		"--after=" + from.Format("2006-01-02 15:04:05"),
		"--before=" + to.Format("2006-01-02 15:04:05"),
	}
}

func (c *ExecClient) ListCommits(ctx context.Context, repoPath, repoName string, from, to time.Time) ([]model.Commit, error) {
	out, err := c.Executor.ExecuteWithOutput(c.command(ctx, LogArgs(repoPath, from, to)...))
	if err != nil {
		return nil, err
	}
	return ParseLog(out, repoName), nil
}

func (c *ExecClient) EnsureCloned(ctx context.Context, url, path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("checking clone %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("creating cache directory: %w", err)
	}
	if err := c.Executor.Execute(c.command(ctx, "clone", url, path)); err != nil {
		return false, err
	}
	return true, nil
}

func (c *ExecClient) Pull(ctx context.Context, path string) error {
	return c.Executor.Execute(c.command(ctx, "-C", path, "pull"))
}

// ParseLog turns git log output into commits. Lines that do not split into
// exactly four fields are dropped; every field is trimmed.
func ParseLog(raw, repo string) []model.Commit {
	var commits []model.Commit
	for _, line := range strings.Split(raw, "\n") {
		fields := strings.Split(line, "|")
		if len(fields) != 4 {
			continue
		}
		commits = append(commits, model.Commit{
			Repo:    repo,
			Hash:    strings.TrimSpace(fields[0]),
			Date:    strings.TrimSpace(fields[1]),
			Author:  strings.TrimSpace(fields[2]),
			Message: strings.TrimSpace(fields[3]),
		})
	}
	return commits
}

// CachePath is the clone location of url: dir joined with the md5 of the URL.
func CachePath(dir, url string) string {
	sum := md5.Sum([]byte(url))
	return filepath.Join(dir, hex.EncodeToString(sum[:]))
}

// RepoName is the last slash-separated segment of url.
func RepoName(url string) string {
	if i := strings.LastIndex(url, "/"); i >= 0 {
		return url[i+1:]
	}
	return url
}
