package config

import (
	"io"
	"testing"

	"pdf-signer/pkg/logger"
)

func TestNewContainerWithConfig_MemoryBackend(t *testing.T) {
	cfg := defaultConfig()
	cfg.StorageBackend = "memory"

	c := NewContainerWithConfig(cfg, logger.NewLoggerWithWriter("error", io.Discard))

	if c.MemoryBlobs == nil || c.BlobStore == nil {
		t.Fatal("expected in-memory blob store")
	}
	if c.GetSupabaseClient() != nil {
		t.Fatal("expected no Supabase client")
	}
	if c.Sessions == nil || c.DocumentService == nil || c.Renderer == nil {
		t.Fatal("expected services to be wired")
	}
}

func TestNewContainerWithConfig_SupabaseFallsBackWithoutCredentials(t *testing.T) {
	cfg := defaultConfig()
	cfg.StorageBackend = "supabase"
	cfg.SupabaseURL = ""

	c := NewContainerWithConfig(cfg, logger.NewLoggerWithWriter("error", io.Discard))

	if c.MemoryBlobs == nil {
		t.Fatal("expected fallback to in-memory blob store")
	}
	if c.GetConfig() != cfg {
		t.Fatal("expected config to be kept")
	}
}

func TestNewContainerWithConfig_Supabase(t *testing.T) {
	cfg := defaultConfig()
	cfg.StorageBackend = "supabase"
	cfg.SupabaseURL = "https://project.supabase.co"
	cfg.SupabaseKey = "anon-key"

	c := NewContainerWithConfig(cfg, logger.NewLoggerWithWriter("error", io.Discard))

	if c.GetSupabaseClient() == nil || c.GetSupabaseClient().Storage() == nil {
		t.Fatal("expected Supabase storage client")
	}
	if c.MemoryBlobs != nil {
		t.Fatal("memory store should not be created")
	}
}
