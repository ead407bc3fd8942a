package bot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskGallerySkipsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"instruction1.jpg", "instruction3.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("jpg"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "instruction4.jpg"), 0o755))

	g := NewDiskGallery(dir, []string{"instruction1.jpg", "instruction2.jpg", "instruction3.jpg", "instruction4.jpg"})
	assert.Equal(t, []string{
		filepath.Join(dir, "instruction1.jpg"),
		filepath.Join(dir, "instruction3.jpg"),
	}, g.InstructionPhotos())
}

func TestEnsureDirCreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	require.NoError(t, EnsureDir(dir))
	assert.DirExists(t, dir)
	require.NoError(t, EnsureDir(dir))
}
