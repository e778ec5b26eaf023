package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Lock(t *testing.T) {
	tmpDir := t.TempDir()
	client := NewClient(tmpDir, ".catset/store.lock", nil)

	unlock, err := client.Lock(context.Background())
	require.NoError(t, err)

	lockPath := filepath.Join(tmpDir, ".catset", "store.lock")
	_, err = os.Stat(lockPath)
	require.NoError(t, err, "lock file not created")

	// A second holder waits until its context gives up.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Lock(ctx)
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	_, err = os.Stat(lockPath)
	assert.True(t, os.IsNotExist(err), "lock file not removed after unlock")

	unlock, err = client.Lock(context.Background())
	require.NoError(t, err)
	unlock()
}

func TestClient_LockHandoff(t *testing.T) {
	client := NewClient(t.TempDir(), "", nil)
	unlock, err := client.Lock(context.Background())
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := client.Lock(context.Background())
		if err == nil {
			second()
		}
		close(acquired)
	}()

	time.Sleep(30 * time.Millisecond)
	unlock()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("waiting holder never acquired the lock")
	}
}

func TestFormatMessage(t *testing.T) {
	assert.Equal(t, "feat(dataset): append entry", FormatMessage("feat", "dataset", "append entry"))
	assert.Equal(t, "chore: configure ignore", FormatMessage("chore", "", "configure ignore"))
	assert.Equal(t, "fix(data): repair", FormatMessage("feat", "dataset", "fix(data): repair"))
	assert.Equal(t, "feat(dataset): append entry: x", FormatMessage("feat", "dataset", "append entry: x"))
}

func TestSubcommand(t *testing.T) {
	assert.Equal(t, "commit", subcommand([]string{"-c", "user.name=x", "-c", "user.email=y", "commit", "-m", "msg"}))
	assert.Equal(t, "add", subcommand([]string{"add", "--", "a.json"}))
	assert.Equal(t, "log", subcommand([]string{"--no-pager", "log"}))
}

func TestClient_RunErrorNamesSubcommand(t *testing.T) {
	if !IsInstalled() {
		t.Skip("git not installed")
	}
	client := NewClient(t.TempDir(), "", nil)
	_, err := client.Run(context.Background(), "-c", "user.name=x", "no-such-command")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "git no-such-command failed")
}

func TestClient_InitCommitLog(t *testing.T) {
	if !IsInstalled() {
		t.Skip("git not installed")
	}
	ctx := context.Background()
	tmpDir := t.TempDir()
	client := NewClient(tmpDir, "", nil)

	require.NoError(t, client.Init(ctx))
	assert.True(t, client.IsRepo())

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "a.json"), []byte("{}"), 0644))
	require.NoError(t, client.Add(ctx, "a.json"))
	staged, err := client.HasStagedChanges(ctx)
	require.NoError(t, err)
	assert.True(t, staged)
	require.NoError(t, client.Commit(ctx, "feat(dataset): first"))

	staged, err = client.HasStagedChanges(ctx)
	require.NoError(t, err)
	assert.False(t, staged)

	commits, err := client.Log(ctx, "a.json", 10)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "feat(dataset): first", commits[0].Subject)
	assert.Len(t, commits[0].Hash, 40)
	assert.False(t, commits[0].Date.IsZero())
}
