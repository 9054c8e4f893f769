package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"pdf-signer/internal/domain"

	"gopkg.in/yaml.v3"
)

// AppConfig implements the domain.Config interface
type AppConfig struct {
	ServerPort       string                   `yaml:"server_port"`
	LogLevel         string                   `yaml:"log_level"`
	SupabaseURL      string                   `yaml:"supabase_url"`
	SupabaseKey      string                   `yaml:"supabase_key"`
	StorageBackend   string                   `yaml:"storage_backend"`
	PublicBaseURL    string                   `yaml:"public_base_url"`
	AllowedOrigins   []string                 `yaml:"allowed_origins"`
	MaxPDFSize       int64                    `yaml:"max_pdf_size"`
	MaxSignatureSize int64                    `yaml:"max_signature_size"`
	MaxSignaturePx   int64                    `yaml:"max_signature_pixels"`
	Signature        domain.SignatureDefaults `yaml:"signature"`
	FetchTimeout     time.Duration            `yaml:"fetch_timeout"`
	FetchConcurrency int                      `yaml:"fetch_concurrency"`
	RateLimitRPS     float64                  `yaml:"rate_limit_rps"`
	RateLimitBurst   int                      `yaml:"rate_limit_burst"`
	RenderDPI        float64                  `yaml:"render_dpi"`
	SessionTTL       time.Duration            `yaml:"session_ttl"`
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		ServerPort:     "8080",
		LogLevel:       "info",
		StorageBackend: "supabase",
		PublicBaseURL:  "http://localhost:8080",
		AllowedOrigins: []string{
			"http://localhost:3000", // Next.js dev server
			"http://localhost:5173",
		},
		MaxPDFSize:       50 * 1024 * 1024,
		MaxSignatureSize: 5 * 1024 * 1024,
		MaxSignaturePx:   16_000_000,
		Signature: domain.SignatureDefaults{
			Width:  150,
			Height: 70,
			X:      50,
			Y:      50,
		},
		FetchTimeout:     30 * time.Second,
		FetchConcurrency: 4,
		RateLimitRPS:     20,
		RateLimitBurst:   40,
		RenderDPI:        108, // 1.5x of the 72dpi native size
		SessionTTL:       2 * time.Hour,
	}
}

// NewConfig builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and environment variables, in that order of precedence.
func NewConfig() domain.Config {
	cfg := defaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadConfigFile(path, cfg); err != nil {
			log.Printf("Warning: config file %s ignored: %v", path, err)
		}
	}
	applyEnv(cfg)
	return cfg
}

func loadConfigFile(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func applyEnv(c *AppConfig) {
	// Cloud Run (and many PaaS) provide the listening port via PORT.
	// Keep SERVER_PORT for local/dev compatibility.
	c.ServerPort = getEnvOrDefault("PORT", getEnvOrDefault("SERVER_PORT", c.ServerPort))
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.SupabaseURL = getEnvOrDefault("SUPABASE_URL", c.SupabaseURL)
	c.SupabaseKey = getEnvOrDefault("SUPABASE_ANON_KEY", c.SupabaseKey)
	c.StorageBackend = strings.ToLower(getEnvOrDefault("STORAGE_BACKEND", c.StorageBackend))
	c.PublicBaseURL = strings.TrimRight(getEnvOrDefault("PUBLIC_BASE_URL", c.PublicBaseURL), "/")
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = splitList(origins)
	}
	c.MaxPDFSize = getEnvInt64OrDefault("MAX_PDF_SIZE", c.MaxPDFSize)
	c.MaxSignatureSize = getEnvInt64OrDefault("MAX_SIGNATURE_SIZE", c.MaxSignatureSize)
	c.MaxSignaturePx = getEnvInt64OrDefault("MAX_SIGNATURE_PIXELS", c.MaxSignaturePx)
	c.Signature.Width = getEnvFloatOrDefault("SIGNATURE_DEFAULT_WIDTH", c.Signature.Width)
	c.Signature.Height = getEnvFloatOrDefault("SIGNATURE_DEFAULT_HEIGHT", c.Signature.Height)
	c.Signature.X = getEnvFloatOrDefault("SIGNATURE_DEFAULT_X", c.Signature.X)
	c.Signature.Y = getEnvFloatOrDefault("SIGNATURE_DEFAULT_Y", c.Signature.Y)
	c.FetchTimeout = getEnvDurationOrDefault("FETCH_TIMEOUT", c.FetchTimeout)
	c.FetchConcurrency = int(getEnvInt64OrDefault("FETCH_CONCURRENCY", int64(c.FetchConcurrency)))
	c.RateLimitRPS = getEnvFloatOrDefault("RATE_LIMIT_RPS", c.RateLimitRPS)
	c.RateLimitBurst = int(getEnvInt64OrDefault("RATE_LIMIT_BURST", int64(c.RateLimitBurst)))
	c.RenderDPI = getEnvFloatOrDefault("RENDER_DPI", c.RenderDPI)
	c.SessionTTL = getEnvDurationOrDefault("SESSION_TTL", c.SessionTTL)
}

// GetServerPort returns the server port
func (c *AppConfig) GetServerPort() string {
	return c.ServerPort
}

// GetLogLevel returns the logging level
func (c *AppConfig) GetLogLevel() string {
	return c.LogLevel
}

// GetSupabaseURL returns the Supabase URL
func (c *AppConfig) GetSupabaseURL() string {
	return c.SupabaseURL
}

// GetSupabaseKey returns the Supabase anon key
func (c *AppConfig) GetSupabaseKey() string {
	return c.SupabaseKey
}

// GetStorageBackend returns "supabase" or "memory".
func (c *AppConfig) GetStorageBackend() string {
	return c.StorageBackend
}

// GetPublicBaseURL is the externally reachable base of this server.
func (c *AppConfig) GetPublicBaseURL() string {
	return c.PublicBaseURL
}

func (c *AppConfig) GetAllowedOrigins() []string {
	return c.AllowedOrigins
}

// GetMaxPDFSize returns the maximum allowed document size
func (c *AppConfig) GetMaxPDFSize() int64 {
	return c.MaxPDFSize
}

// GetMaxSignatureSize returns the maximum allowed signature image size
func (c *AppConfig) GetMaxSignatureSize() int64 {
	return c.MaxSignatureSize
}

// GetMaxSignaturePixels caps width*height of a signature image before it is decoded.
func (c *AppConfig) GetMaxSignaturePixels() int64 {
	return c.MaxSignaturePx
}

func (c *AppConfig) GetSignatureDefaults() domain.SignatureDefaults {
	return c.Signature
}

func (c *AppConfig) GetFetchTimeout() time.Duration {
	return c.FetchTimeout
}

func (c *AppConfig) GetFetchConcurrency() int {
	if c.FetchConcurrency < 1 {
		return 1
	}
	return c.FetchConcurrency
}

// GetRateLimit returns requests per second and burst; rps <= 0 disables limiting.
func (c *AppConfig) GetRateLimit() (float64, int) {
	return c.RateLimitRPS, c.RateLimitBurst
}

func (c *AppConfig) GetRenderDPI() float64 {
	return c.RenderDPI
}

func (c *AppConfig) GetSessionTTL() time.Duration {
	return c.SessionTTL
}

// Helper functions for environment variable handling
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
