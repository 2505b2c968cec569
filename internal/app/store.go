package app

import (
	"context"
	"fmt"
	"io"

	"clipprompt/internal/storage"
	"clipprompt/pkg/config"
)

// BuildStore opens the configured local store. The returned closer is never
// nil.
func BuildStore(ctx context.Context, cfg *config.Config) (storage.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Backend {
	case "file":
		return storage.NewFileStore(cfg.Storage.Path), noop, nil
	case "sqlite":
		s, err := storage.NewSQLiteStore(ctx, cfg.Storage.Path)
		if err != nil {
			return nil, noop, err
		}
		return s, closerOf(s), nil
	case "gcs":
		s, err := storage.NewGCSStore(ctx, cfg.Storage.Bucket, cfg.Storage.Prefix)
		if err != nil {
			return nil, noop, err
		}
		return s, closerOf(s), nil
	}
	return nil, noop, fmt.Errorf("unknown storage backend: %q", cfg.Storage.Backend)
}

func closerOf(c io.Closer) func() error {
	return c.Close
}
