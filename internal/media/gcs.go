package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// Store uploads storefront images (product photos, payment-proof screenshots)
// to a GCS bucket and hands back the public retrieval URL.
type Store struct {
	Client *storage.Client
	Bucket string
}

func NewStore(ctx context.Context, bucket string) (*Store, error) {
	b := strings.TrimSpace(bucket)
	if b == "" {
		return nil, errors.New("media: bucket is empty")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("media: storage client: %w", err)
	}
	return &Store{Client: client, Bucket: b}, nil
}

func objectPath(prefix, fileName string) (string, error) {
	p := strings.TrimSpace(prefix)
	f := strings.TrimLeft(strings.TrimSpace(fileName), "/")
	if p == "" || f == "" {
		return "", fmt.Errorf("media: invalid prefix or fileName: %q, %q", prefix, fileName)
	}
	return p + "/" + f, nil
}

// Upload writes the object and returns its public URL.
func (s *Store) Upload(ctx context.Context, prefix, fileName, contentType string, r io.Reader) (string, error) {
	path, err := objectPath(prefix, fileName)
	if err != nil {
		return "", err
	}

	w := s.Client.Bucket(s.Bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("media: upload %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("media: finalize %s: %w", path, err)
	}

	return s.PublicURL(path), nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if err := s.Client.Bucket(s.Bucket).Object(path).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("media: delete %s: %w", path, err)
	}
	return nil
}

func (s *Store) PublicURL(path string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.Bucket, path)
}

func (s *Store) Close() error {
	return s.Client.Close()
}
