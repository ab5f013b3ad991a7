package testutil

import (
	"testing"
	"time"

	"tally/internal/storage"
	"tally/internal/structures"

	"github.com/stretchr/testify/require"
)

// Config returns a fully populated config suitable for service and controller tests.
func Config() *structures.Config {
	return &structures.Config{
		AppName: "Tally",
		WebServer: structures.Server{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Logger: structures.LoggerConfig{
			Level: "info",
			Mode:  0644,
			Dir:   "/tmp",
		},
		Storage: structures.StorageConfig{
			Driver: "sqlite",
			Dsn:    "tally.db",
		},
		Counter: structures.CounterConfig{
			Timezone: "UTC",
		},
		Presence: structures.PresenceConfig{
			OnlineWindow:  30 * time.Second,
			SweepInterval: time.Minute,
		},
		Activity: structures.ActivityConfig{
			RecentLimit:   10,
			RecentWindow:  5 * time.Minute,
			MaxLimit:      100,
			PruneInterval: time.Hour,
		},
		Stream: structures.StreamConfig{
			Interval: time.Second,
		},
	}
}

// NewStore opens a migrated in-memory SQLite store private to t.
func NewStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.NewSQLiteStore("sqlite://file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(t.Context()))
	return store
}
