package photos

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// DirLibrary saves each avatar as a file in a folder.
type DirLibrary struct {
	dir    string
	logger *log.Logger
}

// NewDirLibrary creates a library rooted at dir. An empty dir means the
// current working directory.
func NewDirLibrary(dir string, logger *log.Logger) *DirLibrary {
	if dir == "" {
		dir = "."
	}
	if logger == nil {
		logger = log.Default()
	}
	return &DirLibrary{dir: dir, logger: logger}
}

// Dir returns the folder avatars are written to.
func (l *DirLibrary) Dir() string {
	return l.dir
}

// QueryWritePermission creates the folder if needed and probes it with a
// temporary file.
func (l *DirLibrary) QueryWritePermission(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		l.logger.Debug("photo folder not creatable", "dir", l.dir, "err", err)
		return false
	}
	probe, err := os.CreateTemp(l.dir, ".robohashy-probe-*")
	if err != nil {
		l.logger.Debug("photo folder not writable", "dir", l.dir, "err", err)
		return false
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return true
}

// Save implements Library.
func (l *DirLibrary) Save(ctx context.Context, item Item) (string, error) {
	if err := validate(ctx, item); err != nil {
		return "", err
	}
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return "", fmt.Errorf("%w: error creating output folder: %w", ErrSaveFailed, err)
	}

	ext := item.Format
	if ext == "" {
		ext = "png"
	}
	filename := fmt.Sprintf("%s_%s_%s.%s",
		sanitizeSeed(item.Seed),
		strings.ToLower(sanitizeSeed(item.Style)),
		uuid.NewString()[:8],
		ext,
	)
	path := filepath.Join(l.dir, filename)

	if err := os.WriteFile(path, item.Data, 0644); err != nil {
		return "", fmt.Errorf("%w: error saving image: %w", ErrSaveFailed, err)
	}
	l.logger.Debug("wrote avatar", "path", path, "bytes", len(item.Data))
	return path, nil
}

// Close implements Store.
func (l *DirLibrary) Close() error {
	return nil
}
