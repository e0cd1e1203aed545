package shaders

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TQwan/SpartanEngine/engine/renderer/rhi"
)

type countingInvalidator struct {
	mu  sync.Mutex
	ids []string
}

func (c *countingInvalidator) InvalidateShader(shaderID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, shaderID)
	return 1
}

func (c *countingInvalidator) invalidated() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.ids...)
}

func TestWatcherMarksShaderStaleOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mesh.vert")
	require.NoError(t, os.WriteFile(path, []byte("// v1"), 0o644))

	invalidator := &countingInvalidator{}
	watcher, err := NewWatcher(invalidator)
	require.NoError(t, err)
	defer watcher.Close()

	shader := rhi.NewShader("mesh", "main")
	shader.SourcePath = path
	require.NoError(t, watcher.Register(shader))
	watcher.Start()

	require.NoError(t, os.WriteFile(path, []byte("// v2"), 0o644))

	require.Eventually(t, func() bool {
		return shader.IsStale() && len(invalidator.invalidated()) > 0
	}, 3*time.Second, 10*time.Millisecond)
	assert.Contains(t, invalidator.invalidated(), shader.ID)
}

func TestWatcherIgnoresUnregisteredFiles(t *testing.T) {
	dir := t.TempDir()
	registered := filepath.Join(dir, "mesh.vert")
	other := filepath.Join(dir, "other.vert")
	require.NoError(t, os.WriteFile(registered, []byte("// v1"), 0o644))
	require.NoError(t, os.WriteFile(other, []byte("// v1"), 0o644))

	invalidator := &countingInvalidator{}
	watcher, err := NewWatcher(invalidator)
	require.NoError(t, err)
	defer watcher.Close()

	shader := rhi.NewShader("mesh", "main")
	shader.SourcePath = registered
	require.NoError(t, watcher.Register(shader))
	watcher.Start()

	require.NoError(t, os.WriteFile(other, []byte("// v2"), 0o644))

	time.Sleep(200 * time.Millisecond)
	assert.False(t, shader.IsStale())
	assert.Empty(t, invalidator.invalidated())
}

func TestWatcherRegisterRequiresSourcePath(t *testing.T) {
	watcher, err := NewWatcher(nil)
	require.NoError(t, err)
	defer watcher.Close()

	assert.Error(t, watcher.Register(nil))
	assert.Error(t, watcher.Register(rhi.NewShader("baked", "main")))
}

func TestWatcherRegisterAfterClose(t *testing.T) {
	watcher, err := NewWatcher(nil)
	require.NoError(t, err)
	watcher.Close()

	shader := rhi.NewShader("mesh", "main")
	shader.SourcePath = filepath.Join(t.TempDir(), "mesh.vert")
	assert.Error(t, watcher.Register(shader))
}
