package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/mgpai22/captioner/internal/config"
)

// BlobStore publishes artifacts and fetches remote media.
type BlobStore interface {
	// Upload stores the file at localPath and returns its public URL.
	Upload(ctx context.Context, localPath string) (string, error)
	// Download saves the object at url into dir and returns the local path.
	Download(ctx context.Context, url, dir string) (string, error)
}

// New builds the store selected by cfg.Provider.
func New(ctx context.Context, cfg config.StorageConfig) (BlobStore, error) {
	switch cfg.Provider {
	case "", "local":
		return NewLocalStore(cfg.LocalDir, cfg.BaseURL)
	case "s3":
		return NewS3Store(ctx, S3Options{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			PublicURL:       cfg.S3.PublicURL,
			Prefix:          cfg.S3.Prefix,
		})
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.Provider)
	}
}

// objectName gives uploads a collision free name keeping the extension.
func objectName(prefix, localPath string) string {
	name := uuid.NewString() + strings.ToLower(filepath.Ext(localPath))
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
