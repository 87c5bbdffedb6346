package localcache

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/makstermee/Gym-planner/internal/workout"
)

// File stores one JSON file per key under Dir and survives restarts.
type File struct {
	Dir string
}

var _ Cache = (*File)(nil)

// NewFile returns a file cache rooted at dir. The directory is created on the
// first Set.
func NewFile(dir string) *File {
	return &File{Dir: dir}
}

func (f *File) path(key string) string {
	return filepath.Join(f.Dir, url.PathEscape(key)+".json")
}

// Get implements Cache.
func (f *File) Get(key string) (workout.Document, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return workout.Document{}, false, nil
	}
	if err != nil {
		return workout.Document{}, false, fmt.Errorf("read cache: %w", err)
	}
	doc, err := workout.Unmarshal(data)
	if err != nil {
		return workout.Document{}, false, fmt.Errorf("read cache: %w", err)
	}
	return doc, true, nil
}

// Set implements Cache. The file is replaced atomically.
func (f *File) Set(key string, doc workout.Document) error {
	data, err := workout.Marshal(doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.Dir, 0o700); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(f.Dir, ".cache-*")
	if err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmpName, f.path(key)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

// Clear implements Cache. Clearing a missing key is not an error.
func (f *File) Clear(key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}
