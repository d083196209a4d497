package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spinscribe/spinscribe/pkg/checkpoint"
	"github.com/spinscribe/spinscribe/pkg/checkpoint/file"
	"github.com/spinscribe/spinscribe/pkg/checkpoint/postgresql"
)

// NewCheckpointStore picks the store implementation from the URL scheme.
// postgres:// and postgresql:// select the database-backed store; everything
// else is treated as a filesystem root.
func NewCheckpointStore(ctx context.Context, logger *slog.Logger, storeURL string) (checkpoint.Store, error) {
	switch parseStoreProvider(storeURL) {
	case "postgresql":
		store, err := postgresql.NewStore(ctx, logger, storeURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres checkpoint store: %w", err)
		}

		return store, nil
	default:
		return file.NewStore(strings.TrimPrefix(storeURL, "file://")), nil
	}
}

func parseStoreProvider(storeURL string) string {
	scheme, _, found := strings.Cut(storeURL, "://")
	if !found {
		return "file"
	}

	switch scheme {
	case "postgres", "postgresql":
		return "postgresql"
	default:
		return "file"
	}
}
