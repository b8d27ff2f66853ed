// Package mirror copies organized files to S3-compatible object storage.
package mirror

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/blockedby/tgstore-scraper/internal/logger"
	"github.com/blockedby/tgstore-scraper/internal/organizer"
)

const uploadTimeout = 30 * time.Second

// Uploader is the subset of minio.Client used by Writer.
type Uploader interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Config holds S3 connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// NewClient creates a minio client and makes sure the bucket exists.
func NewClient(ctx context.Context, cfg Config) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return client, nil
}

// Writer writes through to the local writer and then uploads the same bytes.
// The local copy is authoritative: upload failures are logged, not returned.
type Writer struct {
	next   organizer.ByteWriter
	client Uploader
	bucket string
	prefix string
	root   string
	log    *logger.Logger
}

// NewWriter wraps next. Object keys are the paths relative to root, under prefix.
func NewWriter(next organizer.ByteWriter, client Uploader, bucket, prefix, root string, log *logger.Logger) *Writer {
	if log == nil {
		log = logger.Get()
	}
	return &Writer{next: next, client: client, bucket: bucket, prefix: prefix, root: root, log: log}
}

// Write implements organizer.ByteWriter.
func (w *Writer) Write(p string, data []byte) error {
	if err := w.next.Write(p, data); err != nil {
		return err
	}

	key := w.ObjectKey(p)
	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()

	_, err := w.client.PutObject(ctx, w.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType(p),
	})
	if err != nil {
		w.log.Warn().Err(err).Str("bucket", w.bucket).Str("key", key).Msg("mirror: upload failed")
		return nil
	}

	w.log.Debug().Str("key", key).Int("bytes", len(data)).Msg("mirror: uploaded")
	return nil
}

// ObjectKey maps a local path to its object key.
func (w *Writer) ObjectKey(p string) string {
	rel, err := filepath.Rel(w.root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(p)
	}
	return path.Join(w.prefix, filepath.ToSlash(rel))
}

func contentType(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
