package storage

import (
	"context"
	"fmt"
	"tally/internal/models"
	"tally/internal/providers"
	"tally/internal/structures"
	"time"
)

// Tx is the set of mutations available inside one transaction.
type Tx interface {
	// GetCounter returns the singleton or nil when it has never been written.
	GetCounter(ctx context.Context) (*models.Counter, error)
	PutCounter(ctx context.Context, c *models.Counter) error
	DeleteCounter(ctx context.Context) error
	// AppendEvent stores e, assigning ID and a Timestamp strictly greater than
	// every stored event and not earlier than now.
	AppendEvent(ctx context.Context, e *models.ActivityEvent, now time.Time) error
	UpsertPresence(ctx context.Context, rec *models.PresenceRecord) error
	DeletePresence(ctx context.Context, identity string) error
}

type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	GetCounter(ctx context.Context) (*models.Counter, error)
	// ListPresenceSince returns records with last_seen >= cutoffMs.
	ListPresenceSince(ctx context.Context, cutoffMs int64) ([]models.PresenceRecord, error)
	DeletePresenceBefore(ctx context.Context, cutoffMs int64) (int64, error)
	// ListEventsAfter returns up to limit events with timestamp > afterMs, newest first.
	ListEventsAfter(ctx context.Context, afterMs int64, limit int) ([]models.ActivityEvent, error)
	// ListEventsBefore returns up to limit events with timestamp < beforeMs, oldest first.
	ListEventsBefore(ctx context.Context, beforeMs int64, limit int) ([]models.ActivityEvent, error)
	DeleteEventsThrough(ctx context.Context, beforeMs, maxID int64) (int64, error)
	CountEvents(ctx context.Context) (int64, error)

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

const migrateTimeout = 10 * time.Second

// NewStore opens the configured driver and applies the schema. The returned
// cleanup closes the underlying connections.
func NewStore(conf *structures.Config, logger providers.Logger) (Store, func(), error) {
	var (
		store Store
		err   error
	)
	switch conf.Storage.Driver {
	case "", "sqlite":
		store, err = NewSQLiteStore(conf.Storage.Dsn)
	case "postgres":
		store, err = NewPostgresStore(context.Background(), conf.Storage.Dsn)
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", conf.Storage.Driver)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", conf.Storage.Driver, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Infof(providers.TypeApp, "Storage ready: driver=%s", conf.Storage.Driver)

	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Errorf(providers.TypeApp, "Storage close error: %s", err)
		}
	}
	return store, cleanup, nil
}

func nextTimestamp(nowMs, lastMs int64) int64 {
	if nowMs > lastMs {
		return nowMs
	}
	return lastMs + 1
}
