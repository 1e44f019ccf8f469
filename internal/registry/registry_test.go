package registry

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	clarityerrors "github.com/clarity-app/clarity-api/internal/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *FunctionRegistry {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".clarity", registryFile)
	return NewRegistry(path, logrus.NewEntry(&logrus.Logger{Out: io.Discard}))
}

func TestRegistry_LoadMissingFile(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Load(ctx))
	assert.Empty(t, r.ListFunctions(ctx))
	assert.DirExists(t, filepath.Dir(r.FilePath))
}

func TestRegistry_RoundTrip(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	fn, err := r.Register(ctx, "clarity-api", "9000")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, fn.Status)
	require.NoError(t, r.UpdateContainerID(ctx, "clarity-api", "abc123"))
	r.UpdateStatus(ctx, "clarity-api", StatusRunning)
	r.UpdateHealth(ctx, "clarity-api", true)

	got, exists := r.GetFunction(ctx, "clarity-api")
	require.True(t, exists)
	assert.Equal(t, StatusRunning, got.Status)
	assert.True(t, got.Healthy)
	assert.False(t, got.LastChecked.IsZero())

	reloaded := NewRegistry(r.FilePath, logrus.NewEntry(&logrus.Logger{Out: io.Discard}))
	require.NoError(t, reloaded.Load(ctx))

	fn, exists = reloaded.GetFunction(ctx, "clarity-api")
	require.True(t, exists)
	assert.Equal(t, "clarity-api", fn.Name)
	assert.Equal(t, "abc123", fn.ID)
	assert.Equal(t, "9000", fn.Port)
	assert.Equal(t, StatusPending, fn.Status)
	assert.False(t, fn.Healthy)
}

func TestRegistry_RegisterKeepsContainerID(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.Register(ctx, "clarity-api", "9000")
	require.NoError(t, err)
	require.NoError(t, r.UpdateContainerID(ctx, "clarity-api", "abc123"))

	fn, err := r.Register(ctx, "clarity-api", "9001")
	require.NoError(t, err)
	assert.Equal(t, "abc123", fn.ID)
	assert.Equal(t, "9001", fn.Port)
	assert.Len(t, r.ListFunctions(ctx), 1)
}

func TestRegistry_UnknownFunction(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	_, exists := r.GetFunction(ctx, "missing")
	assert.False(t, exists)

	err := r.UpdateContainerID(ctx, "missing", "abc123")
	var notFound *clarityerrors.FunctionNotFoundError
	assert.ErrorAs(t, err, &notFound)

	r.UpdateStatus(ctx, "missing", StatusRunning)
	r.UpdateHealth(ctx, "missing", true)
	assert.NoError(t, r.Remove(ctx, "missing"))
}

func TestRegistry_Remove(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.Register(ctx, "clarity-api", "9000")
	require.NoError(t, err)
	require.NoError(t, r.Remove(ctx, "clarity-api"))

	reloaded := NewRegistry(r.FilePath, logrus.NewEntry(&logrus.Logger{Out: io.Discard}))
	require.NoError(t, reloaded.Load(ctx))
	assert.Empty(t, reloaded.ListFunctions(ctx))
}

func TestRegistry_LoadCorruptFile(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(r.FilePath), 0755))
	require.NoError(t, os.WriteFile(r.FilePath, []byte("functions: [unterminated"), 0644))

	err := r.Load(context.Background())
	var loadErr *clarityerrors.RegistryLoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestRegistry_ConcurrentUpdates(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	_, err := r.Register(ctx, "clarity-api", "9000")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.UpdateHealth(ctx, "clarity-api", i%2 == 0)
			r.GetFunction(ctx, "clarity-api")
			r.ListFunctions(ctx)
		}(i)
	}
	wg.Wait()
}
