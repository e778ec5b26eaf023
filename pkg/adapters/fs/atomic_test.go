package fs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Run("Creates And Overwrites", func(t *testing.T) {
		filename := filepath.Join(t.TempDir(), "customData.json")

		require.NoError(t, writeFileAtomic(filename, []byte("first"), 0644))
		require.NoError(t, writeFileAtomic(filename, []byte("second"), 0644))

		got, err := os.ReadFile(filename)
		require.NoError(t, err)
		assert.Equal(t, "second", string(got))
	})

	t.Run("Leaves No Temp Files", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, writeFileAtomic(filepath.Join(dir, "doc.json"), []byte("{}"), 0644))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.False(t, strings.HasPrefix(e.Name(), TempFilePrefix), e.Name())
		}
		assert.Len(t, entries, 1)
	})

	t.Run("Fails if Directory Missing", func(t *testing.T) {
		filename := filepath.Join(t.TempDir(), "missing_folder", "doc.json")
		assert.Error(t, writeFileAtomic(filename, []byte("fail"), 0644))
	})
}
