package repository

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"pdf-signer/internal/domain"
)

// BlobRoutePrefix is where the HTTP layer serves in-memory blobs.
const BlobRoutePrefix = "/api/v1/blobs/"

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryBlobStore keeps blobs in process memory and serves them through the API.
// It backs local development and tests when Supabase is not configured.
type MemoryBlobStore struct {
	mu       sync.RWMutex
	objects  map[string]memoryObject
	baseURL  string
	fallback domain.BlobFetcher
	logger   domain.Logger
}

// NewMemoryBlobStore creates a store whose URLs start with publicBaseURL. URLs it did
// not issue are resolved through fallback.
func NewMemoryBlobStore(publicBaseURL string, fallback domain.BlobFetcher, logger domain.Logger) *MemoryBlobStore {
	return &MemoryBlobStore{
		objects:  make(map[string]memoryObject),
		baseURL:  strings.TrimRight(publicBaseURL, "/"),
		fallback: fallback,
		logger:   logger,
	}
}

func objectKey(bucket domain.Bucket, name string) string {
	return string(bucket) + "/" + name
}

// Store saves data and returns its URL.
func (m *MemoryBlobStore) Store(_ context.Context, bucket domain.Bucket, name string, data []byte, contentType string) (string, error) {
	if name == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	copied := append([]byte(nil), data...)

	m.mu.Lock()
	m.objects[objectKey(bucket, name)] = memoryObject{data: copied, contentType: contentType}
	m.mu.Unlock()

	m.logger.Debug("Stored blob in memory", "bucket", bucket, "name", name, "bytes", len(data))
	return m.baseURL + BlobRoutePrefix + string(bucket) + "/" + url.PathEscape(name), nil
}

// Get returns a stored object and its content type.
func (m *MemoryBlobStore) Get(bucket domain.Bucket, name string) ([]byte, string, error) {
	m.mu.RLock()
	obj, ok := m.objects[objectKey(bucket, name)]
	m.mu.RUnlock()
	if !ok {
		return nil, "", domain.ErrUnknownBlob
	}
	return obj.data, obj.contentType, nil
}

// Fetch resolves URLs issued by Store locally and everything else through fallback.
func (m *MemoryBlobStore) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	prefix := m.baseURL + BlobRoutePrefix
	if rest, ok := strings.CutPrefix(rawURL, prefix); ok {
		bucketName, escaped, found := strings.Cut(rest, "/")
		bucket, valid := domain.ParseBucket(bucketName)
		if !found || !valid {
			return nil, domain.ErrUnknownBlob
		}
		name, err := url.PathUnescape(escaped)
		if err != nil {
			return nil, domain.ErrUnknownBlob
		}
		data, _, err := m.Get(bucket, name)
		return data, err
	}
	if m.fallback == nil {
		return nil, domain.ErrUnknownBlob
	}
	return m.fallback.Fetch(ctx, rawURL)
}
