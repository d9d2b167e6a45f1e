package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/christophergentle/ratingchart-bsky/internal/config"
	"github.com/christophergentle/ratingchart-bsky/internal/history"
)

// OpenStore opens the history backend cfg.Store selects. The returned
// close function is never nil.
func OpenStore(ctx context.Context, cfg *config.Config) (history.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store {
	case "file":
		store, err := history.NewFileStore(cfg.HistoryFile)
		if err != nil {
			return nil, noop, err
		}
		log.Printf("Using history file %s", cfg.HistoryFile)
		return store, noop, nil
	case "sqlite":
		store, err := history.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		log.Printf("Using SQLite history at %s", cfg.SQLitePath)
		return store, store.Close, nil
	case "dynamodb":
		store, err := history.NewDynamoStore(ctx, cfg.TableName)
		if err != nil {
			return nil, noop, err
		}
		log.Printf("Using DynamoDB history table %s", cfg.TableName)
		return store, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
