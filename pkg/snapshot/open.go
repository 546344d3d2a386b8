package snapshot

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendMinio    = "minio"
	BackendMemory   = "memory"
)

// Config selects and configures a backend.
type Config struct {
	Backend string

	// file
	Dir string

	// postgres
	DatabaseURL string
	Table       string

	// minio
	Object ObjectConfig
}

// Open builds the Storage named by cfg.Backend. An empty backend means file.
func Open(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Backend {
	case "", BackendFile:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("snapshot: file backend needs a directory")
		}
		return NewFileStorage(cfg.Dir)
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("snapshot: postgres backend needs DATABASE_URL")
		}
		return OpenPostgres(ctx, cfg.DatabaseURL, cfg.Table)
	case BackendMinio, "s3":
		return OpenObjectStorage(ctx, cfg.Object)
	case BackendMemory:
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("snapshot: unsupported backend %q", cfg.Backend)
	}
}
