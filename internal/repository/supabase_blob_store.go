package repository

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"pdf-signer/internal/domain"

	storage_go "github.com/supabase-community/storage-go"
)

// SupabaseBlobStore stores blobs in Supabase Storage buckets and hands out their
// public URLs.
type SupabaseBlobStore struct {
	storage      *storage_go.Client
	publicPrefix string
	fallback     domain.BlobFetcher
	logger       domain.Logger
}

// NewSupabaseBlobStore creates a store on storage. Objects under the project's
// public URL are downloaded through the storage API; other URLs go to fallback.
func NewSupabaseBlobStore(storage *storage_go.Client, supabaseURL string, fallback domain.BlobFetcher, logger domain.Logger) *SupabaseBlobStore {
	return &SupabaseBlobStore{
		storage:      storage,
		publicPrefix: strings.TrimRight(supabaseURL, "/") + "/storage/v1/object/public/",
		fallback:     fallback,
		logger:       logger,
	}
}

// Store uploads data, overwriting any object with the same name.
func (s *SupabaseBlobStore) Store(ctx context.Context, bucket domain.Bucket, name string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	upsert := true
	_, err := s.storage.UploadFile(string(bucket), name, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", bucket, name, err)
	}

	url := s.storage.GetPublicUrl(string(bucket), name).SignedURL
	s.logger.Info("Uploaded to storage", "bucket", bucket, "name", name, "bytes", len(data))
	return url, nil
}

// Fetch downloads a blob.
func (s *SupabaseBlobStore) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(rawURL, s.publicPrefix); ok {
		bucketName, path, found := strings.Cut(rest, "/")
		if bucket, valid := domain.ParseBucket(bucketName); found && valid {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			data, err := s.storage.DownloadFile(string(bucket), path)
			if err != nil {
				return nil, fmt.Errorf("download %s/%s: %w", bucket, path, err)
			}
			return data, nil
		}
	}
	return s.fallback.Fetch(ctx, rawURL)
}
