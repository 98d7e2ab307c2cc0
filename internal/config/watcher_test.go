package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/pokeproxy/internal/observability"
)

// validConfigYAML is a minimal valid configuration for testing.
const validConfigYAML = `
server:
  host: 127.0.0.1
  port: 8080
upstream:
  baseURL: https://pokeapi.co/api/v2/
cors:
  allowedOrigin: https://example.com
`

// invalidConfigYAML fails validation so reload error paths can be exercised.
const invalidConfigYAML = `
server:
  port: -1
upstream:
  baseURL: ""
`

func TestNewWatcher(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte(validConfigYAML), 0644)
	require.NoError(t, err)

	callback := func(cfg *Config) {}

	watcher, err := NewWatcher(configPath, callback)
	require.NoError(t, err)
	require.NotNil(t, watcher)

	assert.Equal(t, configPath, watcher.path)
	assert.NotNil(t, watcher.callback)
	assert.Equal(t, 100*time.Millisecond, watcher.debounceDelay)
}

func TestNewWatcher_WithOptions(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte(validConfigYAML), 0644)
	require.NoError(t, err)

	callback := func(cfg *Config) {}
	logger := observability.NopLogger()
	errorCallback := func(err error) {}

	watcher, err := NewWatcher(configPath, callback,
		WithDebounceDelay(200*time.Millisecond),
		WithLogger(logger),
		WithErrorCallback(errorCallback),
	)
	require.NoError(t, err)
	require.NotNil(t, watcher)

	assert.Equal(t, 200*time.Millisecond, watcher.debounceDelay)
	assert.Equal(t, logger, watcher.logger)
	assert.NotNil(t, watcher.errorCallback)
}

func TestWatcher_Start(t *testing.T) {
	// Not parallel due to file system operations.

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte(validConfigYAML), 0644)
	require.NoError(t, err)

	watcher, err := NewWatcher(configPath, func(cfg *Config) {})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = watcher.Start(ctx)
	require.NoError(t, err)

	cfg := watcher.GetLastConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "https://example.com", cfg.CORS.AllowedOrigin)

	err = watcher.Stop()
	require.NoError(t, err)
}

func TestWatcher_Start_AlreadyRunning(t *testing.T) {
	// Not parallel due to file system operations.

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte(validConfigYAML), 0644)
	require.NoError(t, err)

	watcher, err := NewWatcher(configPath, func(cfg *Config) {})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = watcher.Start(ctx)
	require.NoError(t, err)

	err = watcher.Start(ctx)
	assert.NoError(t, err)

	err = watcher.Stop()
	require.NoError(t, err)
}

func TestWatcher_Start_InvalidConfig(t *testing.T) {
	// Not parallel due to file system operations.

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte(invalidConfigYAML), 0644)
	require.NoError(t, err)

	watcher, err := NewWatcher(configPath, func(cfg *Config) {})
	require.NoError(t, err)

	err = watcher.Start(context.Background())
	assert.Error(t, err)
}

func TestWatcher_Start_FileNotFound(t *testing.T) {
	// Not parallel due to file system operations.

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nonexistent.yaml")

	watcher, err := NewWatcher(configPath, func(cfg *Config) {})
	require.NoError(t, err)

	err = watcher.Start(context.Background())
	assert.Error(t, err)
}

func TestWatcher_Stop_AfterFailedStart(t *testing.T) {
	// Not parallel due to file system operations.

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nonexistent.yaml")

	watcher, err := NewWatcher(configPath, func(cfg *Config) {})
	require.NoError(t, err)

	err = watcher.Start(context.Background())
	require.Error(t, err)

	// Stop must not wait for a watch loop that never started.
	done := make(chan error, 1)
	go func() { done <- watcher.Stop() }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked after failed Start")
	}
}

func TestWatcher_Stop_NotRunning(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte(validConfigYAML), 0644)
	require.NoError(t, err)

	watcher, err := NewWatcher(configPath, func(cfg *Config) {})
	require.NoError(t, err)

	err = watcher.Stop()
	assert.NoError(t, err)
}

func TestWatcher_GetLastConfig(t *testing.T) {
	// Not parallel due to file system operations.

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte(validConfigYAML), 0644)
	require.NoError(t, err)

	watcher, err := NewWatcher(configPath, func(cfg *Config) {})
	require.NoError(t, err)

	assert.Nil(t, watcher.GetLastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = watcher.Start(ctx)
	require.NoError(t, err)

	cfg := watcher.GetLastConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, 8080, cfg.Server.Port)

	err = watcher.Stop()
	require.NoError(t, err)
}

func TestWatcher_FileChange(t *testing.T) {
	// Not parallel due to file system operations and timing.

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte(validConfigYAML), 0644)
	require.NoError(t, err)

	var mu sync.Mutex
	var receivedConfig *Config
	callbackCalled := make(chan struct{}, 1)

	callback := func(cfg *Config) {
		mu.Lock()
		receivedConfig = cfg
		mu.Unlock()
		select {
		case callbackCalled <- struct{}{}:
		default:
		}
	}

	watcher, err := NewWatcher(configPath, callback,
		WithDebounceDelay(50*time.Millisecond),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = watcher.Start(ctx)
	require.NoError(t, err)

	updatedConfig := `
server:
  host: 127.0.0.1
  port: 9090
upstream:
  baseURL: https://pokeapi.co/api/v2/
cors:
  allowedOrigin: https://example.com
`
	// Give the watcher time to register before modifying.
	time.Sleep(100 * time.Millisecond)

	err = os.WriteFile(configPath, []byte(updatedConfig), 0644)
	require.NoError(t, err)

	select {
	case <-callbackCalled:
		mu.Lock()
		require.NotNil(t, receivedConfig)
		assert.Equal(t, 9090, receivedConfig.Server.Port)
		mu.Unlock()
	case <-time.After(2 * time.Second):
		t.Fatal("callback was not called after file change")
	}

	err = watcher.Stop()
	require.NoError(t, err)
}

func TestWatcher_FileChange_InvalidConfig(t *testing.T) {
	// Not parallel due to file system operations and timing.

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte(validConfigYAML), 0644)
	require.NoError(t, err)

	var errorReceived atomic.Bool
	errorCallback := func(err error) {
		errorReceived.Store(true)
	}

	watcher, err := NewWatcher(configPath, func(cfg *Config) {},
		WithDebounceDelay(50*time.Millisecond),
		WithErrorCallback(errorCallback),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = watcher.Start(ctx)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	err = os.WriteFile(configPath, []byte(invalidConfigYAML), 0644)
	require.NoError(t, err)

	time.Sleep(500 * time.Millisecond)

	assert.True(t, errorReceived.Load(), "error callback should have been called")

	// The previous valid configuration is retained.
	cfg := watcher.GetLastConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, 8080, cfg.Server.Port)

	err = watcher.Stop()
	require.NoError(t, err)
}

func TestWatcher_ContextCancellation(t *testing.T) {
	// Not parallel due to file system operations.

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte(validConfigYAML), 0644)
	require.NoError(t, err)

	watcher, err := NewWatcher(configPath, func(cfg *Config) {})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	err = watcher.Start(ctx)
	require.NoError(t, err)

	cancel()

	time.Sleep(100 * time.Millisecond)

	err = watcher.Stop()
	assert.NoError(t, err)
}

func TestWatcher_ForceReload(t *testing.T) {
	// Not parallel due to file system operations.

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte(validConfigYAML), 0644)
	require.NoError(t, err)

	var callbackCount atomic.Int32
	callback := func(cfg *Config) {
		callbackCount.Add(1)
	}

	watcher, err := NewWatcher(configPath, callback)
	require.NoError(t, err)

	err = watcher.ForceReload()
	require.NoError(t, err)

	assert.Equal(t, int32(1), callbackCount.Load())

	cfg := watcher.GetLastConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestWatcher_ForceReload_InvalidConfig(t *testing.T) {
	// Not parallel due to file system operations.

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte(invalidConfigYAML), 0644)
	require.NoError(t, err)

	watcher, err := NewWatcher(configPath, func(cfg *Config) {})
	require.NoError(t, err)

	err = watcher.ForceReload()
	assert.Error(t, err)
}

func TestWatcher_ForceReload_NilCallback(t *testing.T) {
	// Not parallel due to file system operations.

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte(validConfigYAML), 0644)
	require.NoError(t, err)

	watcher, err := NewWatcher(configPath, nil)
	require.NoError(t, err)

	err = watcher.ForceReload()
	require.NoError(t, err)

	require.NotNil(t, watcher.GetLastConfig())
}

func TestWithDebounceDelay(t *testing.T) {
	t.Parallel()

	w := &Watcher{}
	WithDebounceDelay(500 * time.Millisecond)(w)

	assert.Equal(t, 500*time.Millisecond, w.debounceDelay)
}

func TestWithErrorCallback(t *testing.T) {
	t.Parallel()

	w := &Watcher{}
	var called bool
	WithErrorCallback(func(err error) { called = true })(w)

	require.NotNil(t, w.errorCallback)
	w.errorCallback(nil)
	assert.True(t, called)
}
