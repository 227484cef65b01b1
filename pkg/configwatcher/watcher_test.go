package configwatcher

import (
	"context"
	"learning_progress_backend/internal/config"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("v: 0\n"), 0o644))

	var loads, reloads atomic.Int32
	w := New(file, func(cfg *config.Config) {
		reloads.Add(1)
	})
	w.debounce = 50 * time.Millisecond
	w.load = func(string) (*config.Config, error) {
		loads.Add(1)
		return config.Defaults(), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// 等待监听建立
	time.Sleep(50 * time.Millisecond)
	for i := 1; i <= 3; i++ {
		require.NoError(t, os.WriteFile(file, []byte("v: 1\n"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o644))

	require.Eventually(t, func() bool { return reloads.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), loads.Load(), "burst of writes is coalesced")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestWatcher_KeepsPreviousOnInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("progress: {}\n"), 0o644))

	var reloads atomic.Int32
	w := New(file, func(*config.Config) { reloads.Add(1) })
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(file, []byte("progress:\n  total_count_policy: sometimes\n"), 0o644))

	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, reloads.Load())
}
