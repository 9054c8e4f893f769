package repository

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pdf-signer/internal/domain"
	apperrors "pdf-signer/pkg/errors"
)

// HTTPFetcher downloads blobs over http(s) and decodes data: URLs.
type HTTPFetcher struct {
	client  *http.Client
	maxSize int64
	logger  domain.Logger
}

// NewHTTPFetcher creates a fetcher. maxSize caps the body size; zero means no cap.
func NewHTTPFetcher(timeout time.Duration, maxSize int64, logger domain.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		client:  &http.Client{Timeout: timeout},
		maxSize: maxSize,
		logger:  logger,
	}
}

// Fetch returns the bytes behind rawURL.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if strings.HasPrefix(rawURL, "data:") {
		return decodeDataURL(rawURL)
	}

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, apperrors.NewValidationError("Unsupported URL", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to build request", err)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError("Failed to fetch "+u.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.NewNetworkError("Failed to fetch "+u.Host, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body := io.Reader(resp.Body)
	if f.maxSize > 0 {
		body = io.LimitReader(resp.Body, f.maxSize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, apperrors.NewNetworkError("Failed to read response from "+u.Host, err)
	}
	if f.maxSize > 0 && int64(len(data)) > f.maxSize {
		return nil, apperrors.NewTooLargeError("Remote file is too large", f.maxSize)
	}

	f.logger.Debug("Fetched blob", "host", u.Host, "bytes", len(data), "duration_ms", time.Since(start).Milliseconds())
	return data, nil
}

// decodeDataURL handles data:[<mediatype>][;base64],<data>.
func decodeDataURL(raw string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok {
		return nil, apperrors.NewValidationError("Malformed data URL")
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, apperrors.NewValidationError("Malformed data URL", err.Error())
		}
		return data, nil
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, apperrors.NewValidationError("Malformed data URL", err.Error())
	}
	return []byte(data), nil
}
