package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simforge/engine/internal/sim"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	state := sim.New(nil, 7)
	state.CreateEntity(sim.EntitySpec{ID: "p", Tags: []string{"player"}})
	state.Step(1.0/60.0, nil)
	body, err := state.Dump()
	require.NoError(t, err)

	require.NoError(t, store.Save("checkpoint", body))
	got, err := store.Load("checkpoint")
	require.NoError(t, err)
	assert.Equal(t, body, got)

	restored := sim.New(nil, 0)
	require.NoError(t, restored.Load(got))
	assert.Equal(t, state.Frame, restored.Frame)
	assert.NotNil(t, restored.GetEntity("p"))
}

func TestFileStoreOverwrite(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("s", []byte(`{"v":1}`)))
	require.NoError(t, store.Save("s", []byte(`{"v":2}`)))
	got, err := store.Load("s")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":2}`), got)

	names, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"s"}, names)
}

func TestFileStoreListSorted(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	for _, name := range []string{"beta", "alpha", "gamma"} {
		require.NoError(t, store.Save(name, []byte("{}")))
	}
	names, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, names)
}

func TestFileStoreMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nope")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
	assert.ErrorIs(t, store.Delete("nope"), ErrSnapshotNotFound)

	require.NoError(t, store.Save("gone", []byte("{}")))
	require.NoError(t, store.Delete("gone"))
	_, err = store.Load("gone")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestFileStoreRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	assert.Error(t, store.Save("../escape", []byte("{}")))
	assert.Error(t, store.Save("a/b", []byte("{}")))
	assert.Error(t, store.Save("", []byte("{}")))

	entries, err := os.ReadDir(filepath.Dir(dir))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), "escape")
	}
}

func TestFileStoreCompresses(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	// Highly redundant payload, as state dumps are.
	body := make([]byte, 0, 64*1024)
	for i := 0; i < 4096; i++ {
		body = append(body, []byte(`{"type":"coin","x":0,"y":0}`)...)
	}
	require.NoError(t, store.Save("big", body))

	info, err := os.Stat(filepath.Join(dir, "big.json.zst"))
	require.NoError(t, err)
	assert.Less(t, info.Size(), int64(len(body)/10))
}
