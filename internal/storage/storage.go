package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
)

type FileInfo struct {
	Filename    string
	ContentType string
	Size        int64
}

// Storage persists video blobs under caller-chosen names.
type Storage interface {
	SaveFile(ctx context.Context, name string, file io.Reader, info FileInfo) error
	// DeleteFile removes the blob. A blob that is already gone is not an error.
	DeleteFile(ctx context.Context, name string) error
	// URL returns the public address of the blob. baseURL is the scheme and
	// host the request arrived on and is used only by backends without a
	// fixed public endpoint.
	URL(name, baseURL string) string
	// LocalPath reports the on-disk path when the backend stores on local disk.
	LocalPath(name string) (string, bool)
}

// UpstreamError marks a failure reported by an external object store.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("object store %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func validateName(name string) error {
	if name == "" || name == "." || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid path")
	}
	return nil
}
