package config

import (
	"strings"

	"pdf-signer/internal/domain"
	"pdf-signer/internal/repository"
	"pdf-signer/internal/service"
	"pdf-signer/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	Config          domain.Config
	Logger          domain.Logger
	SupabaseClient  domain.SupabaseClient
	BlobStore       domain.BlobStore
	MemoryBlobs     *repository.MemoryBlobStore
	Sessions        *service.SessionService
	Renderer        domain.PageRenderer
	DocumentService domain.DocumentService
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	config := NewConfig()
	return NewContainerWithConfig(config, logger.NewLogger(config.GetLogLevel()))
}

// NewContainerWithConfig wires the application around an existing config and logger.
func NewContainerWithConfig(config domain.Config, appLogger domain.Logger) *Container {
	c := &Container{
		Config: config,
		Logger: appLogger,
	}

	fetcher := repository.NewHTTPFetcher(config.GetFetchTimeout(), config.GetMaxPDFSize(), appLogger)
	c.initBlobStore(fetcher)

	c.Sessions = service.NewSessionService(config.GetSessionTTL(), appLogger)
	c.Renderer = service.NewPageRenderer(appLogger)
	signer := service.NewPDFSigner(c.BlobStore, appLogger, config.GetFetchConcurrency(), config.GetMaxSignaturePixels())

	c.DocumentService = service.NewDocumentService(
		c.Sessions,
		c.BlobStore,
		service.NewPDFInspector(),
		signer,
		c.Renderer,
		config,
		appLogger,
	)
	return c
}

// initBlobStore selects Supabase Storage when configured and reachable, otherwise
// the in-memory store served under /api/v1/blobs.
func (c *Container) initBlobStore(fetcher domain.BlobFetcher) {
	if strings.EqualFold(c.Config.GetStorageBackend(), "supabase") {
		client := repository.NewSupabaseClient(c.Config, c.Logger)
		if err := client.Initialize(); err != nil {
			c.Logger.Warn("Supabase unavailable, using in-memory blob store", "error", err.Error())
		} else {
			c.SupabaseClient = client
			c.BlobStore = repository.NewSupabaseBlobStore(client.Storage(), c.Config.GetSupabaseURL(), fetcher, c.Logger)
			return
		}
	}

	c.MemoryBlobs = repository.NewMemoryBlobStore(c.Config.GetPublicBaseURL(), fetcher, c.Logger)
	c.BlobStore = c.MemoryBlobs
	c.Logger.Info("Using in-memory blob store", "base_url", c.Config.GetPublicBaseURL())
}

// GetConfig returns the configuration instance
func (c *Container) GetConfig() domain.Config {
	return c.Config
}

// GetSupabaseClient returns the Supabase client, nil when blobs are kept in memory.
func (c *Container) GetSupabaseClient() domain.SupabaseClient {
	return c.SupabaseClient
}
