package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/spacedeck/internal/domain"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	files, err := OpenFileStore(filepath.Join(t.TempDir(), "decks"))
	require.NoError(t, err)

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "spacedeck.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return map[string]Store{"file": files, "sqlite": db}
}

func TestStores(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load("missing")
			assert.ErrorIs(t, err, domain.ErrNotFound)

			require.NoError(t, store.Save("spanish", []byte(`{"cards":[]}`)))
			require.NoError(t, store.Save("french", []byte(`{"name":"french"}`)))

			got, err := store.Load("spanish")
			require.NoError(t, err)
			assert.JSONEq(t, `{"cards":[]}`, string(got))

			require.NoError(t, store.Save("spanish", []byte(`{"cards":[1]}`)))
			got, err = store.Load("spanish")
			require.NoError(t, err)
			assert.JSONEq(t, `{"cards":[1]}`, string(got))

			keys, err := store.Keys()
			require.NoError(t, err)
			assert.Equal(t, []string{"french", "spanish"}, keys)

			require.NoError(t, store.Delete("french"))
			assert.ErrorIs(t, store.Delete("french"), domain.ErrNotFound)

			keys, err = store.Keys()
			require.NoError(t, err)
			assert.Equal(t, []string{"spanish"}, keys)
		})
	}
}

func TestStoresRejectBadKeys(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"", "  ", "a/b", `a\b`, ".."} {
				assert.ErrorIs(t, store.Save(key, []byte(`{}`)), domain.ErrInvalidName, "key %q", key)
			}
		})
	}
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenFileStore(dir)
	require.NoError(t, err)

	for range 3 {
		require.NoError(t, store.Save("deck", []byte(`{"cards":[]}`)))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "deck.json", entries[0].Name())
}

func TestFileStoreFailedSave(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save("deck", []byte(`{"cards":[]}`)))

	// A non-empty directory squatting on the target path makes the rename fail.
	blocked := filepath.Join(dir, "blocked.json")
	require.NoError(t, os.Mkdir(blocked, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(blocked, "x"), nil, 0o644))

	assert.Error(t, store.Save("blocked", []byte(`{"cards":[]}`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"blocked.json", "deck.json"}, names, "temp file is cleaned up")

	got, err := store.Load("deck")
	require.NoError(t, err)
	assert.JSONEq(t, `{"cards":[]}`, string(got))
}
