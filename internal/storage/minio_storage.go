package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectClient is the subset of the minio client the S3 backend needs:
// object-level calls plus creating the upload bucket on first start.
type ObjectClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL overrides the address clients fetch objects from,
	// e.g. a CDN in front of the bucket.
	PublicURL string
}

type MinioStorage struct {
	client    ObjectClient
	bucket    string
	publicURL string
}

var _ Storage = (*MinioStorage)(nil)

func NewMinioStorage(ctx context.Context, cfg S3Config) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}
	return NewMinioStorageWithClient(ctx, client, cfg.Bucket, publicURL)
}

func NewMinioStorageWithClient(ctx context.Context, client ObjectClient, bucket, publicURL string) (*MinioStorage, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, &UpstreamError{Op: "bucket exists", Err: err}
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, &UpstreamError{Op: "make bucket", Err: err}
		}
	}
	return &MinioStorage{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

func (ms *MinioStorage) SaveFile(ctx context.Context, name string, file io.Reader, info FileInfo) error {
	if err := validateName(name); err != nil {
		return err
	}
	size := info.Size
	if size <= 0 {
		size = -1
	}
	_, err := ms.client.PutObject(ctx, ms.bucket, name, file, size, minio.PutObjectOptions{
		ContentType: info.ContentType,
	})
	if err != nil {
		return &UpstreamError{Op: "put " + name, Err: err}
	}
	return nil
}

func (ms *MinioStorage) DeleteFile(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	err := ms.client.RemoveObject(ctx, ms.bucket, name, minio.RemoveObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		return &UpstreamError{Op: "remove " + name, Err: err}
	}
	return nil
}

func (ms *MinioStorage) URL(name, _ string) string {
	return ms.publicURL + "/" + url.PathEscape(name)
}

func (ms *MinioStorage) LocalPath(string) (string, bool) {
	return "", false
}
