package domain

import storage_go "github.com/supabase-community/storage-go"

type SupabaseClient interface {
	Initialize() error
	Storage() *storage_go.Client
}
