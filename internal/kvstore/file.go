package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	fileMode = 0o600
	dirMode  = 0o700
)

// File is a Store persisted as one JSON object on disk. It plays the role of
// long-lived local storage for the CLI. Writes replace the file atomically.
type File struct {
	path string
	opts options

	mu sync.Mutex
}

// NewFile returns a store backed by path. The file is created on first write.
func NewFile(path string, opts ...Option) *File {
	return &File{path: path, opts: newOptions(opts)}
}

// Path returns the backing file.
func (f *File) Path() string {
	return f.path
}

func (f *File) Get(_ context.Context, key string, dst any) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.load()
	if err != nil {
		return false, err
	}

	raw, ok := items[key]
	if !ok {
		return false, nil
	}

	found, stale, err := f.opts.decode(raw, dst)
	if stale {
		delete(items, key)
		if saveErr := f.save(items); saveErr != nil {
			return false, saveErr
		}
	}
	return found, err
}

func (f *File) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}

	raw, err := f.opts.encode(value, ttl)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.load()
	if err != nil {
		return err
	}
	items[key] = raw
	return f.save(items)
}

func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := items[key]; !ok {
		return nil
	}
	delete(items, key)
	return f.save(items)
}

func (f *File) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove store file: %w", err)
	}
	return nil
}

func (f *File) load() (map[string]json.RawMessage, error) {
	items := make(map[string]json.RawMessage)

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return items, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store file: %w", err)
	}
	if len(data) == 0 {
		return items, nil
	}

	// A corrupt file is treated as empty and overwritten on the next write.
	if err := json.Unmarshal(data, &items); err != nil {
		return make(map[string]json.RawMessage), nil
	}
	return items, nil
}

func (f *File) save(items map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), dirMode); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, fileMode); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}
