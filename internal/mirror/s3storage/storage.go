// Package s3storage writes archived circulars to S3-compatible buckets.
package s3storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dharsanguruparan/CircularNest/internal/config"
)

// Storage wraps MinIO/S3 interactions for the raw PDF and extracted text.
type Storage struct {
	client     *minio.Client
	rawBucket  string
	textBucket string
	region     string
}

// New creates a MinIO client from the Config.
func New(cfg *config.Config) (*Storage, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Storage{
		client:     client,
		rawBucket:  cfg.RawBucket,
		textBucket: cfg.ProcessedBucket,
		region:     cfg.S3Region,
	}, nil
}

// EnsureBuckets makes sure both buckets exist before use.
func (s *Storage) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.rawBucket, s.textBucket} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
				return fmt.Errorf("make bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

// RawKey is where the PDF of a circular is archived: category/id.pdf.
func RawKey(category, circularID string) string {
	return path.Join(slug(category), circularID+".pdf")
}

// TextKey is the extracted-text companion of RawKey.
func TextKey(rawKey string) string {
	return strings.TrimSuffix(rawKey, path.Ext(rawKey)) + ".txt"
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	dash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "uncategorized"
	}
	return out
}

// UploadRaw stores the PDF in the raw bucket with its title as metadata.
func (s *Storage) UploadRaw(ctx context.Context, objectKey string, data []byte, title string) error {
	opts := minio.PutObjectOptions{
		ContentType:  "application/pdf",
		UserMetadata: map[string]string{"title": title},
	}
	_, err := s.client.PutObject(ctx, s.rawBucket, objectKey, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return fmt.Errorf("upload raw object: %w", err)
	}
	return nil
}

// UploadText stores the extracted text in the text bucket.
func (s *Storage) UploadText(ctx context.Context, objectKey string, text string) error {
	opts := minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"}
	_, err := s.client.PutObject(ctx, s.textBucket, objectKey, strings.NewReader(text), int64(len(text)), opts)
	if err != nil {
		return fmt.Errorf("upload text object: %w", err)
	}
	return nil
}

// DownloadRaw fetches an archived PDF.
func (s *Storage) DownloadRaw(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.rawBucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get raw object: %w", err)
	}
	defer obj.Close()
	buf, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read raw object: %w", err)
	}
	return buf, nil
}

// PresignRawURL returns a signed GET URL for an archived PDF.
func (s *Storage) PresignRawURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.rawBucket, objectKey, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign raw object: %w", err)
	}
	return u.String(), nil
}
