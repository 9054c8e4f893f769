package domain

import "time"

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
}

// Config defines the interface for configuration management
type Config interface {
	GetServerPort() string
	GetLogLevel() string
	GetSupabaseURL() string
	GetSupabaseKey() string
	GetStorageBackend() string
	GetPublicBaseURL() string
	GetAllowedOrigins() []string
	GetMaxPDFSize() int64
	GetMaxSignatureSize() int64
	GetMaxSignaturePixels() int64
	GetSignatureDefaults() SignatureDefaults
	GetFetchTimeout() time.Duration
	GetFetchConcurrency() int
	GetRateLimit() (rps float64, burst int)
	GetRenderDPI() float64
	GetSessionTTL() time.Duration
}
