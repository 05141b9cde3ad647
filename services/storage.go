package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"inkpost-api/config"
	"inkpost-api/utils"
)

// Storage keeps uploaded assets. Paths are slash-separated and relative to the storage root.
type Storage interface {
	Put(ctx context.Context, dir string, up *Upload) (string, error)
	Delete(ctx context.Context, path string) error
	URL(path string) string
}

// NewStorage builds the backend selected by STORAGE_DRIVER.
func NewStorage(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.StorageDriver {
	case "minio":
		return NewMinioStorage(ctx, cfg)
	case "local", "":
		return NewLocalStorage(cfg.StorageLocalDir, cfg.StoragePublicURL)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// discardAsset removes a stored file. Failures are logged and otherwise ignored; the row
// change that orphaned the file has already committed.
func discardAsset(ctx context.Context, st Storage, p string) {
	if p == "" {
		return
	}
	if err := st.Delete(ctx, p); err != nil {
		utils.Logger.Warn("failed to delete asset", "path", p, "error", err)
	}
}

func objectName(dir string, up *Upload) string {
	return path.Join(strings.Trim(dir, "/"), uuid.NewString()+up.Extension)
}

func publicURL(base, p string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(p, "/")
}

type LocalStorage struct {
	root    string
	baseURL string
}

func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{root: abs, baseURL: baseURL}, nil
}

// Root is the directory served under /storage.
func (s *LocalStorage) Root() string {
	return s.root
}

func (s *LocalStorage) resolve(p string) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+p)))
	if full == s.root || !strings.HasPrefix(full, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid storage path %q", p)
	}
	return full, nil
}

func (s *LocalStorage) Put(ctx context.Context, dir string, up *Upload) (string, error) {
	name := objectName(dir, up)
	full, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, up.Content); err != nil {
		f.Close()
		os.Remove(full)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return "", err
	}
	return name, nil
}

// Delete removes the file at p. A file that is already gone is not an error.
func (s *LocalStorage) Delete(ctx context.Context, p string) error {
	full, err := s.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStorage) URL(p string) string {
	return publicURL(s.baseURL, p)
}

type MinioStorage struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

func NewMinioStorage(ctx context.Context, cfg *config.Config) (*MinioStorage, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	baseURL := cfg.StoragePublicURL
	if baseURL == "" {
		scheme := "http"
		if cfg.MinioUseSSL {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.MinioEndpoint, cfg.MinioBucket)
	}

	return &MinioStorage{client: client, bucket: cfg.MinioBucket, baseURL: baseURL}, nil
}

func (s *MinioStorage) Put(ctx context.Context, dir string, up *Upload) (string, error) {
	name := objectName(dir, up)
	size := up.Size
	if size <= 0 {
		size = -1
	}
	_, err := s.client.PutObject(ctx, s.bucket, name, up.Content, size, minio.PutObjectOptions{
		ContentType: up.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	return name, nil
}

func (s *MinioStorage) Delete(ctx context.Context, p string) error {
	return s.client.RemoveObject(ctx, s.bucket, p, minio.RemoveObjectOptions{})
}

func (s *MinioStorage) URL(p string) string {
	return publicURL(s.baseURL, p)
}
