// Package export writes serialized contact documents to the local
// filesystem.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"contactsync/internal/xmldoc"

	"go.uber.org/zap"
)

type Exporter struct {
	logger *zap.Logger
	perm   os.FileMode
}

func New(logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{logger: logger, perm: 0o644}
}

// Export writes doc to dest and returns the final path. dest may be an
// existing directory or a path ending in a separator, in which case the
// document's filename is appended; an empty dest means the current
// directory. The file is written to a temporary sibling first and renamed
// into place, so readers never observe a partial document.
func (e *Exporter) Export(doc xmldoc.Document, dest string) (string, error) {
	path, err := resolveDest(doc, dest)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("export: create directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("export: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	// Removing after a successful rename is a no-op error we ignore.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(doc.Body); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("export: write: %w", err)
	}
	if err := tmp.Chmod(e.perm); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("export: chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("export: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("export: rename: %w", err)
	}

	e.logger.Debug("contacts exported", zap.String("path", path), zap.Int("bytes", doc.Size()))
	return path, nil
}

func resolveDest(doc xmldoc.Document, dest string) (string, error) {
	name := doc.Filename
	if name == "" {
		name = xmldoc.DefaultFilename
	}

	dest = strings.TrimSpace(dest)
	if dest == "" {
		return name, nil
	}
	if strings.HasSuffix(dest, "/") || strings.HasSuffix(dest, string(filepath.Separator)) {
		return filepath.Join(dest, name), nil
	}

	info, err := os.Stat(dest)
	switch {
	case err == nil && info.IsDir():
		return filepath.Join(dest, name), nil
	case err == nil:
		return dest, nil
	case os.IsNotExist(err):
		return dest, nil
	default:
		return "", fmt.Errorf("export: stat %s: %w", dest, err)
	}
}
