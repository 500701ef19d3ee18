package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/semmidev/omran/internal/domain"
)

// LocalStorage is the download directory used by the "file" channel and as
// the fallback of every share channel.
type LocalStorage struct {
	basePath string
}

func NewLocal(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve export directory: %w", err)
	}
	return &LocalStorage{basePath: abs}, nil
}

func (l *LocalStorage) Name() string {
	return "file"
}

func (l *LocalStorage) Destination() string {
	return "file://" + filepath.ToSlash(l.basePath)
}

// Deliver writes the payload under the export directory. An existing file
// is never overwritten; a numbered name is picked instead.
func (l *LocalStorage) Deliver(ctx context.Context, d domain.Delivery) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := filepath.Base(d.Filename)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; i < 1000; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		destPath := filepath.Join(l.basePath, candidate)

		dest, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create dest: %w", err)
		}

		if _, err := dest.Write(d.Payload); err != nil {
			dest.Close()
			os.Remove(destPath)
			return "", fmt.Errorf("failed to write: %w", err)
		}
		if err := dest.Close(); err != nil {
			return "", fmt.Errorf("failed to close: %w", err)
		}
		return destPath, nil
	}

	return "", fmt.Errorf("too many files named %s in %s", name, l.basePath)
}

// List returns the files in the export directory.
func (l *LocalStorage) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}

	return files, nil
}

func (l *LocalStorage) GetPath(filename string) string {
	return filepath.Join(l.basePath, filename)
}
