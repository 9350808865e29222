package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileBackendPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	backend, err := NewFileBackend(path)
	require.NoError(t, err)
	store := NewStore(backend, true)
	require.NoError(t, store.Save(ctx, testRecord(RoleTrainer, "tok-t")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := NewFileBackend(path)
	require.NoError(t, err)
	active, err := NewStore(reopened, true).Active(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok-t", active.Token)
	require.Equal(t, RoleTrainer, active.UserType)
}

func TestFileBackendMissingFileIsEmpty(t *testing.T) {
	backend, err := NewFileBackend(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	data, err := backend.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestFileBackendConflictWritesNothing(t *testing.T) {
	ctx := context.Background()
	backend, err := NewFileBackend(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	require.NoError(t, backend.Apply(ctx, Mutation{Set: map[string]string{"token": "a"}}))

	err = backend.Apply(ctx, Mutation{
		Expect: map[string]string{"token": "b"},
		Set:    map[string]string{"token": "c"},
	})
	require.ErrorIs(t, err, ErrConflict)

	data, err := backend.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"token": "a"}, data)
}

func TestFileBackendCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	backend, err := NewFileBackend(path)
	require.NoError(t, err)
	_, err = backend.Load(context.Background())
	require.ErrorIs(t, err, ErrBackendUnavailable)
}
