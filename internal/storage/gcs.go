// Package storage uploads listing photos to a Google Cloud Storage bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/Salmanazari/keylybot/internal/config"
)

// GCS implements object upload/delete against one bucket. Uploaded objects
// are addressed by their public storage URL; the bucket is expected to grant
// public read (the vision model fetches images by URL).
type GCS struct {
	client *gcs.Client
	bucket string
	logger *slog.Logger
}

// New builds the GCS client from config. Credentials come from the
// configured service-account file, or application default credentials.
func New(ctx context.Context, log *slog.Logger, cfg config.StorageConfig) (*GCS, error) {
	if log == nil {
		log = slog.Default()
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init storage client: %w", err)
	}
	return &GCS{
		client: client,
		bucket: cfg.Bucket,
		logger: log.With(slog.String("service", "storage")),
	}, nil
}

// Upload writes the object under key and returns its public URL.
func (g *GCS) Upload(ctx context.Context, key, mime string, r io.Reader) (string, error) {
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = mime
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize object %s: %w", key, err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, key), nil
}

// Delete removes the object at key. Deleting a missing object is not an
// error; ephemeral cleanup may race with bucket lifecycle rules.
func (g *GCS) Delete(ctx context.Context, key string) error {
	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}
