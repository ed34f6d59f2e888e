// Package audiostore persists uploaded audio blobs on the local file system.
//
// Blobs are stored flat under a single uploads directory and addressed by a
// URL of the form /uploads/<name>. Inline data: URLs (base64 audio embedded
// in the note record) never touch this store.
package audiostore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// URLPrefix is the public path prefix under which stored blobs are served.
const URLPrefix = "/uploads/"

// IsInline reports whether an audio reference is an inline data URL rather
// than a stored blob.
func IsInline(audioURL string) bool {
	return strings.HasPrefix(audioURL, "data:")
}

// FS stores audio blobs under a root directory.
type FS struct {
	root string // absolute path to the uploads directory
}

// NewFS creates a blob store rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("audiostore: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("audiostore: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("audiostore: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute uploads directory.
func (f *FS) Root() string {
	return f.root
}

// safeName validates that the name is a plain filename (no path separators,
// no traversal) and returns its absolute path under the uploads dir.
func (f *FS) safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("audiostore: filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("audiostore: invalid filename: %s", name)
	}
	abs := filepath.Join(f.root, cleaned)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("audiostore: path escapes uploads directory")
	}
	return abs, nil
}

// Save atomically writes an audio blob under a fresh random name with the
// given extension (e.g. ".webm") and returns its public URL.
func (f *FS) Save(ext string, data []byte) (string, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	name := uuid.NewString() + ext
	abs, err := f.safeName(name)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(f.root, ".voxnote-tmp-*")
	if err != nil {
		return "", fmt.Errorf("audiostore: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return "", fmt.Errorf("audiostore: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("audiostore: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("audiostore: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return "", fmt.Errorf("audiostore: rename: %w", err)
	}
	success = true
	return URLPrefix + name, nil
}

// Resolve maps a stored blob name to its absolute path for serving.
func (f *FS) Resolve(name string) (string, error) {
	return f.safeName(name)
}

// Release removes the blob behind an audio URL. Inline data URLs and
// already-missing files are ignored so delete stays idempotent.
func (f *FS) Release(audioURL string) error {
	if IsInline(audioURL) {
		return nil
	}
	name := strings.TrimPrefix(audioURL, URLPrefix)
	abs, err := f.safeName(name)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("audiostore: release %s: %w", name, err)
	}
	return nil
}
