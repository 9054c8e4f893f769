package domain

import (
	"context"
	"strings"
)

// Bucket is a storage category. Values are the bucket names used in object storage.
type Bucket string

const (
	BucketDocuments  Bucket = "documents"
	BucketSignatures Bucket = "signatures"
	BucketSigned     Bucket = "signed-documents"
)

// ParseBucket maps a bucket name back to its category.
func ParseBucket(name string) (Bucket, bool) {
	switch b := Bucket(strings.TrimSpace(name)); b {
	case BucketDocuments, BucketSignatures, BucketSigned:
		return b, true
	}
	return "", false
}

// BlobFetcher resolves a URL to bytes.
type BlobFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// BlobStore stores files and returns a URL they can be fetched from.
type BlobStore interface {
	BlobFetcher
	Store(ctx context.Context, bucket Bucket, name string, data []byte, contentType string) (string, error)
}
