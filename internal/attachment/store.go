// Package attachment keeps document attachments in an S3-compatible bucket.
package attachment

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/frahmantamala/approval-portal/internal"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	keyPrefix      = "documents"
	defaultURLTTL  = 15 * time.Minute
	maxNameRunes   = 120
	fallbackName   = "file"
	defaultContent = "application/octet-stream"
)

// ObjectClient is the part of *minio.Client the store uses.
type ObjectClient interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
}

type Store struct {
	client ObjectClient
	bucket string
	urlTTL time.Duration
	logger *slog.Logger
}

func NewMinioClient(cfg internal.StorageConfig) (*minio.Client, error) {
	return minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
}

func NewStore(client ObjectClient, bucket string, logger *slog.Logger) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		urlTTL: defaultURLTTL,
		logger: logger,
	}
}

// EnsureBucket creates the bucket on first start.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return internal.NewTransientError("object store unavailable", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket %s: %w", s.bucket, err)
	}
	s.logger.Info("attachment bucket created", "bucket", s.bucket)
	return nil
}

// Put uploads r under a fresh key for the owner and returns that key.
func (s *Store) Put(ctx context.Context, ownerID int64, fileName, contentType string, r io.Reader, size int64) (string, error) {
	key := Key(ownerID, fileName)
	if contentType == "" {
		contentType = defaultContent
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:        contentType,
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", SanitizeFileName(fileName)),
	})
	if err != nil {
		s.logger.Error("failed to upload attachment", "error", err, "key", key)
		return "", internal.NewTransientError("object store unavailable", err)
	}
	s.logger.Info("attachment uploaded", "key", key, "size", size)
	return key, nil
}

// URL returns a presigned download link that names the file as uploaded.
func (s *Store) URL(ctx context.Context, key, fileName string) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", SanitizeFileName(fileName)))
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.urlTTL, params)
	if err != nil {
		return "", internal.NewTransientError("object store unavailable", err)
	}
	return u.String(), nil
}

// Key builds documents/<owner>/<uuid>-<sanitized name>.
func Key(ownerID int64, fileName string) string {
	return path.Join(keyPrefix, fmt.Sprint(ownerID), uuid.NewString()+"-"+SanitizeFileName(fileName))
}

// SanitizeFileName replaces path separators, whitespace and characters
// reserved on common filesystems with '_'.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	n := 0
	for _, r := range name {
		if n == maxNameRunes {
			break
		}
		switch {
		case strings.ContainsRune(`\/:*?"<>|`, r), unicode.IsSpace(r), unicode.IsControl(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
		n++
	}
	out := b.String()
	if out == "" || strings.Trim(out, ".") == "" {
		return fallbackName
	}
	return out
}
