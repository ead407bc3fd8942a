package bot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/m3rciful/pricebot/core/logger"
)

// DiskGallery serves instruction photos from a directory.
type DiskGallery struct {
	dir   string
	files []string
}

// NewDiskGallery lists files (in album order) under dir.
func NewDiskGallery(dir string, files []string) *DiskGallery {
	return &DiskGallery{dir: dir, files: append([]string(nil), files...)}
}

// InstructionPhotos returns the paths that currently exist. Missing files are skipped.
func (g *DiskGallery) InstructionPhotos() []string {
	out := make([]string, 0, len(g.files))
	for _, name := range g.files {
		path := filepath.Join(g.dir, name)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			logger.Warn(context.Background(), "content", "content.photo_missing",
				slog.String("status", "skip"),
				slog.String("path", path),
			)
			continue
		}
		out = append(out, path)
	}
	return out
}

// EnsureDir creates the images directory when it is missing.
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create images dir: %w", err)
	}
	logger.Info(context.Background(), "content", "content.images_dir",
		slog.String("status", "ok"),
		slog.String("path", dir),
	)
	return nil
}
