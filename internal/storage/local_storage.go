package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// PublicPrefix is the URL path locally stored blobs are served under.
const PublicPrefix = "/uploads/"

type LocalStorage struct {
	basePath string
}

var _ Storage = (*LocalStorage)(nil)

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}

// SaveFile writes to a temporary file and renames it into place so a blob is
// never visible half written.
func (ls *LocalStorage) SaveFile(ctx context.Context, name string, file io.Reader, info FileInfo) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(ls.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	tmp, err := os.CreateTemp(ls.basePath, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: file}); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(ls.basePath, name)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

func (ls *LocalStorage) DeleteFile(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	fullPath := filepath.Join(ls.basePath, name)
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (ls *LocalStorage) URL(name, baseURL string) string {
	return strings.TrimRight(baseURL, "/") + PublicPrefix + url.PathEscape(name)
}

func (ls *LocalStorage) LocalPath(name string) (string, bool) {
	if validateName(name) != nil {
		return "", false
	}
	return filepath.Join(ls.basePath, name), true
}

// ctxReader stops a copy once the request context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
