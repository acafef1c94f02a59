// Package storage keeps quiz media and archived import sheets in MinIO.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/config"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// IsSupportedImage reports whether contentType may be stored as a question
// image.
func IsSupportedImage(contentType string) bool {
	_, ok := imageExtensions[contentType]
	return ok
}

type MediaStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
	log     zerolog.Logger
}

// NewMediaStore connects to MinIO and makes sure the bucket exists.
func NewMediaStore(ctx context.Context, cfg config.MinIOConfig, log zerolog.Logger) (*MediaStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		log.Info().Str("bucket", cfg.Bucket).Msg("created bucket")
	}

	return &MediaStore{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: baseURL(cfg),
		log:     log.With().Str("component", "media_store").Logger(),
	}, nil
}

func baseURL(cfg config.MinIOConfig) string {
	if cfg.PublicURL != "" {
		return strings.TrimRight(cfg.PublicURL, "/")
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)
}

func (s *MediaStore) objectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, key)
}

func questionImageKey(quizID, questionID, contentType string) string {
	return path.Join("quizzes", quizID, "questions", questionID, uuid.NewString()+imageExtensions[contentType])
}

func importArchiveKey(educatorID, filename string, now time.Time) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "import.xlsx"
	}
	return path.Join("imports", educatorID, now.UTC().Format("20060102T150405")+"-"+uuid.NewString()[:8]+"-"+name)
}

// UploadQuestionImage stores an image and returns the URL to put on the
// question.
func (s *MediaStore) UploadQuestionImage(ctx context.Context, quizID, questionID string, r io.Reader, size int64, contentType string) (string, error) {
	key := questionImageKey(quizID, questionID, contentType)
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload question image: %w", err)
	}
	s.log.Info().Str("key", key).Int64("size", size).Msg("uploaded question image")
	return s.objectURL(key), nil
}

// ArchiveImport keeps a copy of an imported workbook and returns its key.
func (s *MediaStore) ArchiveImport(ctx context.Context, educatorID, filename string, data []byte) (string, error) {
	key := importArchiveKey(educatorID, filename, time.Now())
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{ContentType: xlsxContentType})
	if err != nil {
		return "", fmt.Errorf("failed to archive import: %w", err)
	}
	return key, nil
}
