package bpcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"time"

	coreerrors "github.com/forem/mediaurl/core/errors"
)

var fileKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// File keeps one JSON document per key under a directory, so several
// processes on one host can share results.
type File struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

type fileEntry struct {
	Breakpoints []int `json:"breakpoints"`
	ExpiresAt   int64 `json:"expires_at,omitempty"`
}

func NewFile(dir string, ttl time.Duration) (*File, error) {
	if dir == "" {
		return nil, coreerrors.Configuration(nil, "missing_cache_dir", "file cache requires a directory")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, coreerrors.Wrap(fmt.Errorf("create cache dir: %w", err), coreerrors.CategoryDependencyMissing, "cache_dir_unavailable", "check the cache directory permissions", false)
	}
	return &File{dir: dir, ttl: ttl, now: time.Now}, nil
}

func (f *File) path(key string) (string, error) {
	if !fileKeyPattern.MatchString(key) {
		return "", coreerrors.Validation(nil, "invalid_cache_key", "cache key %q is not a safe file name", key)
	}
	return filepath.Join(f.dir, key+".json"), nil
}

func (f *File) Get(_ context.Context, key string) ([]int, bool, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, false, err
	}
	// #nosec G304 -- path is built from a validated key inside the cache dir.
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache entry: %w", err)
	}
	var entry fileEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// A torn or foreign file is a miss; the next Set replaces it.
		return nil, false, nil
	}
	if entry.ExpiresAt > 0 && f.now().Unix() >= entry.ExpiresAt {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return entry.Breakpoints, true, nil
}

func (f *File) Set(_ context.Context, key string, widths []int) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	entry := fileEntry{Breakpoints: widths}
	if f.ttl > 0 {
		entry.ExpiresAt = f.now().Add(f.ttl).Unix()
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return writeFileAtomic(path, raw, 0o600)
}

func (f *File) Close() error {
	return nil
}

// writeFileAtomic replaces path through a synced temp file and a rename, so
// readers see either the old or the new entry.
func writeFileAtomic(path string, content []byte, mode os.FileMode) error {
	parent := filepath.Dir(path)
	tempFile, err := os.CreateTemp(parent, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(content); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tempFile.Chmod(mode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS != "windows" {
			return fmt.Errorf("rename temp file: %w", err)
		}
		if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
			return fmt.Errorf("remove destination before rename: %w", removeErr)
		}
		if renameErr := os.Rename(tempPath, path); renameErr != nil {
			return fmt.Errorf("rename temp file after remove: %w", renameErr)
		}
	}
	cleanup = false
	return nil
}
