package localfs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/flavorzest/flavorzest/internal/domain"
)

// Storage keeps product imagery on the local filesystem under
// <root>/<bucket>/<objectKey> and hands out URLs of the form
// <baseURL>/<bucket>/<objectKey>, so the object key stays derivable from the
// stored URL.
type Storage struct {
	root    string
	bucket  string
	baseURL string
}

func New(root, bucket, baseURL string) *Storage {
	return &Storage{root: root, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *Storage) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	key := uuid.New().String() + extFor(contentType)
	dir := filepath.Join(s.root, s.bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, key), data, 0o644); err != nil {
		return "", err
	}
	return s.baseURL + "/" + s.bucket + "/" + key, nil
}

func (s *Storage) Delete(ctx context.Context, objectKey string) error {
	// keep deletes inside the bucket directory
	clean := filepath.Clean(objectKey)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return domain.ErrNotFound
	}
	err := os.Remove(filepath.Join(s.root, s.bucket, clean))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ErrNotFound
	}
	return err
}

// Bucket is the path segment used when deriving keys from public URLs.
func (s *Storage) Bucket() string { return s.bucket }

func extFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
