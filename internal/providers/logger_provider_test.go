package providers

import (
	"os"
	"path/filepath"
	"tally/internal/structures"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogTypeByRequestType_POST(t *testing.T) {
	assert.Equal(t, TypeEnum(TypePost), GetLogTypeByRequestType("POST"))
}

func TestGetLogTypeByRequestType_GET(t *testing.T) {
	assert.Equal(t, TypeEnum(TypeGet), GetLogTypeByRequestType("GET"))
}

func TestGetLogTypeByRequestType_Other(t *testing.T) {
	assert.Equal(t, TypeEnum(TypeGet), GetLogTypeByRequestType("PUT"))
	assert.Equal(t, TypeEnum(TypeGet), GetLogTypeByRequestType("DELETE"))
}

func loggerConfig(dir, level string) *structures.Config {
	return &structures.Config{
		Logger: structures.LoggerConfig{
			Level: level,
			Mode:  0644,
			Dir:   dir,
		},
	}
}

func TestNewLogProvider_WritesPerChannelFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	logger, cleanup, err := NewLogProvider(loggerConfig(dir, "debug"))
	require.NoError(t, err)

	logger.Infof(TypeApp, "counter reset by %s", "root")
	logger.Debugf(TypeGet, "GET /counter")
	logger.Warnf(TypePost, "POST /counter/increment")
	cleanup()

	app, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.Contains(t, string(app), "counter reset by root")
	assert.Contains(t, string(app), `"channel":"app"`)

	get, err := os.ReadFile(filepath.Join(dir, "get.log"))
	require.NoError(t, err)
	assert.Contains(t, string(get), "GET /counter")

	post, err := os.ReadFile(filepath.Join(dir, "post.log"))
	require.NoError(t, err)
	assert.Contains(t, string(post), "POST /counter/increment")
}

func TestNewLogProvider_LevelFilters(t *testing.T) {
	dir := t.TempDir()
	logger, cleanup, err := NewLogProvider(loggerConfig(dir, "warn"))
	require.NoError(t, err)

	logger.Infof(TypeApp, "hidden")
	logger.Errorf(TypeApp, "shown")
	cleanup()

	app, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(app), "hidden")
	assert.Contains(t, string(app), "shown")
}

func TestNewLogProvider_InvalidLevel(t *testing.T) {
	_, _, err := NewLogProvider(loggerConfig(t.TempDir(), "loud"))
	assert.Error(t, err)
}

func TestNewLogProvider_InvalidDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, _, err := NewLogProvider(loggerConfig(filepath.Join(blocker, "logs"), "info"))
	assert.Error(t, err)
}

func TestNewLogProvider_CleanupClosesFiles(t *testing.T) {
	logger, cleanup, err := NewLogProvider(loggerConfig(t.TempDir(), "info"))
	require.NoError(t, err)

	lp := logger.(*LogProvider)
	require.Len(t, lp.files, len(logFiles))
	f := lp.files[0]

	cleanup()

	assert.Empty(t, lp.files)
	_, err = f.Write([]byte("after close"))
	assert.ErrorIs(t, err, os.ErrClosed)
	assert.NotPanics(t, cleanup)
}
