// Package git runs the git binary on behalf of the filesystem store.
package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrLockTimeout is returned when the lock could not be taken before the
// context ended.
var ErrLockTimeout = errors.New("timed out waiting for lock")

const lockRetryInterval = 10 * time.Millisecond

// Client wraps git command execution with a file-based lock for process safety.
type Client struct {
	WorkDir  string
	Logger   *slog.Logger
	lockPath string
}

// NewClient creates a new git client for the given working directory.
// lockPath is relative to workDir.
func NewClient(workDir, lockPath string, logger *slog.Logger) *Client {
	if lockPath == "" {
		lockPath = ".catset.lock"
	}
	return &Client{
		WorkDir:  workDir,
		Logger:   logger,
		lockPath: lockPath,
	}
}

// LockPath returns the absolute path of the lock file.
func (c *Client) LockPath() string {
	return filepath.Join(c.WorkDir, c.lockPath)
}

// Lock acquires the file-based lock, retrying until ctx is done.
// The lock spans processes: any writer sharing WorkDir waits on it.
func (c *Client) Lock(ctx context.Context) (func(), error) {
	fullLockPath := c.LockPath()
	if err := os.MkdirAll(filepath.Dir(fullLockPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for {
		f, err := os.OpenFile(fullLockPath, os.O_CREATE|os.O_EXCL, 0666)
		if err == nil {
			f.Close()
			return func() {
				os.Remove(fullLockPath)
			}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w %s: %w", ErrLockTimeout, fullLockPath, ctx.Err())
		case <-ticker.C:
		}
	}
}

// IsInstalled checks if git is available in the system path.
func IsInstalled() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// IsRepo reports whether WorkDir is inside a git work tree.
func (c *Client) IsRepo() bool {
	out, err := c.Run(context.Background(), "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// Run executes a raw git command in the working directory.
// It does NOT acquire the lock; callers serialize through Lock.
func (c *Client) Run(ctx context.Context, args ...string) (string, error) {
	if c.Logger != nil {
		c.Logger.Debug("executing git", "args", args, "dir", c.WorkDir)
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.WorkDir

	out, err := cmd.CombinedOutput()
	output := string(out)

	if err != nil {
		return output, fmt.Errorf("git %s failed: %w\nOutput: %s", subcommand(args), err, output)
	}

	return strings.TrimSpace(output), nil
}

// subcommand returns the git command name in args, skipping global options
// such as "-c key=value".
func subcommand(args []string) string {
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-c" || args[i] == "-C":
			i++
		case strings.HasPrefix(args[i], "-"):
		default:
			return args[i]
		}
	}
	return strings.Join(args, " ")
}

// Init initializes a new git repository.
func (c *Client) Init(ctx context.Context) error {
	_, err := c.Run(ctx, "init")
	return err
}

// Add adds files to the stage.
func (c *Client) Add(ctx context.Context, files ...string) error {
	if len(files) == 0 {
		return nil
	}
	args := append([]string{"add", "--"}, files...)
	_, err := c.Run(ctx, args...)
	return err
}

// Unstage removes files from the index, leaving the working tree alone.
// Files that are not tracked are ignored.
func (c *Client) Unstage(ctx context.Context, files ...string) error {
	if len(files) == 0 {
		return nil
	}
	args := append([]string{"rm", "--cached", "--quiet", "--ignore-unmatch", "--"}, files...)
	_, err := c.Run(ctx, args...)
	return err
}

// Commit records staged changes. Identity falls back to a local committer
// so that fresh machines and CI can commit without global git config.
func (c *Client) Commit(ctx context.Context, msg string) error {
	_, err := c.Run(ctx,
		"-c", "user.name="+envOr("GIT_AUTHOR_NAME", "catset"),
		"-c", "user.email="+envOr("GIT_AUTHOR_EMAIL", "catset@localhost"),
		"commit", "-m", msg)
	return err
}

// HasStagedChanges reports whether the index differs from HEAD.
func (c *Client) HasStagedChanges(ctx context.Context) (bool, error) {
	_, err := c.Run(ctx, "diff", "--cached", "--quiet")
	if err == nil {
		return false, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return true, nil
	}
	return false, err
}

// Commit is one line of history.
type Commit struct {
	Hash    string
	Date    time.Time
	Subject string
}

// Log returns up to n commits that touched path, newest first.
func (c *Client) Log(ctx context.Context, path string, n int) ([]Commit, error) {
	args := []string{"log", "--format=%H%x1f%cI%x1f%s"}
	if n > 0 {
		args = append(args, fmt.Sprintf("-n%d", n))
	}
	if path != "" {
		args = append(args, "--", path)
	}

	out, err := c.Run(ctx, args...)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}

	var commits []Commit
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(line, "\x1f", 3)
		if len(parts) != 3 {
			continue
		}
		date, _ := time.Parse(time.RFC3339, parts[1])
		commits = append(commits, Commit{Hash: parts[0], Date: date, Subject: parts[2]})
	}
	return commits, nil
}

// FormatMessage builds a conventional commit message. A reason that already
// follows the convention ("type(scope): ...") is kept as is.
func FormatMessage(kind, scope, reason string) string {
	if i := strings.Index(reason, ": "); i > 0 && !strings.ContainsAny(reason[:i], " \t") {
		return reason
	}
	if scope == "" {
		return kind + ": " + reason
	}
	return kind + "(" + scope + "): " + reason
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
