package persist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Backend reads and writes serialized snapshots.
type Backend interface {
	// Load returns the last saved snapshot, or ErrNoSnapshot.
	Load(ctx context.Context) ([]byte, error)
	// Save replaces the stored snapshot with data.
	Save(ctx context.Context, data []byte) error
}

// Quarantiner is implemented by backends that can set an unreadable snapshot aside.
type Quarantiner interface {
	Quarantine(ctx context.Context) (string, error)
}

// FileBackend keeps the snapshot in a single JSON file.
type FileBackend struct {
	path string
}

// NewFileBackend constructs a FileBackend writing to path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the snapshot file path.
func (b *FileBackend) Path() string {
	return b.path
}

// Load reads the snapshot file.
func (b *FileBackend) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("persist: read %s: %w", b.path, err)
	}
	return data, nil
}

// Save writes data to a temp file next to the snapshot and renames it into place.
func (b *FileBackend) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(b.path)
	if errMkdir := os.MkdirAll(dir, 0o755); errMkdir != nil {
		return fmt.Errorf("persist: create dir: %w", errMkdir)
	}
	tmp, errCreate := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if errCreate != nil {
		return fmt.Errorf("persist: create temp: %w", errCreate)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, errWrite := tmp.Write(data); errWrite != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("persist: write temp: %w", errWrite)
	}
	if errSync := tmp.Sync(); errSync != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("persist: sync temp: %w", errSync)
	}
	if errClose := tmp.Close(); errClose != nil {
		cleanup()
		return fmt.Errorf("persist: close temp: %w", errClose)
	}
	if errRename := os.Rename(tmpName, b.path); errRename != nil {
		cleanup()
		return fmt.Errorf("persist: rename temp: %w", errRename)
	}
	return nil
}

// Quarantine renames the snapshot file aside and returns the new path.
func (b *FileBackend) Quarantine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target := fmt.Sprintf("%s.corrupt-%d", b.path, time.Now().Unix())
	if errRename := os.Rename(b.path, target); errRename != nil {
		return "", fmt.Errorf("persist: quarantine %s: %w", b.path, errRename)
	}
	return target, nil
}
