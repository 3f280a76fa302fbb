package avatar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Object is a stored avatar file.
type Object struct {
	Key     string
	URL     string
	ModTime time.Time
}

// Storage persists resized avatars and maps keys to public URLs.
type Storage interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]Object, error)
}

// LocalStorage keeps avatars in a directory the router serves statically.
type LocalStorage struct {
	dir       string
	urlPrefix string
}

// NewLocalStorage stores files under publicDir/avatars, served at /avatars/.
func NewLocalStorage(publicDir string) (*LocalStorage, error) {
	dir := filepath.Join(publicDir, "avatars")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating avatars dir: %w", err)
	}
	return &LocalStorage{dir: dir, urlPrefix: "/avatars/"}, nil
}

func (s *LocalStorage) Put(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	key = filepath.Base(key)
	f, err := os.Create(filepath.Join(s.dir, key))
	if err != nil {
		return "", fmt.Errorf("creating avatar file: %w", err)
	}

	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return "", fmt.Errorf("writing avatar file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing avatar file: %w", err)
	}

	return s.urlPrefix + key, nil
}

func (s *LocalStorage) Delete(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStorage) List(_ context.Context) ([]Object, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	objects := make([]Object, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		objects = append(objects, Object{
			Key:     entry.Name(),
			URL:     s.urlPrefix + entry.Name(),
			ModTime: info.ModTime(),
		})
	}
	return objects, nil
}
