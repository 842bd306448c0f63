package library

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/spacedeck/internal/deck"
	"github.com/conorfennell/spacedeck/internal/domain"
	"github.com/conorfennell/spacedeck/internal/storage"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func openLibrary(t *testing.T) (*Library, storage.Store) {
	t.Helper()
	store, err := storage.OpenFileStore(t.TempDir())
	require.NoError(t, err)
	lib, err := Open(store, Options{Now: func() time.Time { return t0 }})
	require.NoError(t, err)
	return lib, store
}

func names(decks []*deck.Deck) []string {
	out := make([]string, len(decks))
	for i, d := range decks {
		out[i] = d.Name()
	}
	return out
}

func TestCreate(t *testing.T) {
	lib, store := openLibrary(t)

	d, err := lib.Create("  Spanish ")
	require.NoError(t, err)
	assert.Equal(t, "Spanish", d.Name())

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"Spanish"}, keys, "a created deck is persisted right away")

	_, err = lib.Create("spanish")
	assert.ErrorIs(t, err, domain.ErrDuplicateName)
	assert.False(t, lib.NameAvailable("SPANISH"))
	assert.True(t, lib.NameAvailable("German"))

	for _, bad := range []string{"", "   ", "a/b", `a\b`, "..", strings.Repeat("x", 101)} {
		_, err := lib.Create(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidName, "%q", bad)
	}
	assert.Len(t, lib.Decks(), 1)
}

func TestReopen(t *testing.T) {
	lib, store := openLibrary(t)
	d, err := lib.Create("Spanish")
	require.NoError(t, err)
	_, err = d.AddCard(domain.NewCard("hola", "hello", t0))
	require.NoError(t, err)
	_, err = lib.Create("German")
	require.NoError(t, err)

	reopened, err := Open(store, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"German", "Spanish"}, names(reopened.Decks()))

	got, err := reopened.Get("spanish")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
}

func TestCreateKeepsExistingDocuments(t *testing.T) {
	store, err := storage.OpenFileStore(t.TempDir())
	require.NoError(t, err)
	verbs := []byte(`{"name": "Verbs", "cards": [{"front": "comer", "back": "to eat"}]}`)
	broken := []byte(`{"cards": [`)
	require.NoError(t, store.Save("Spanish", verbs))
	require.NoError(t, store.Save("German", broken))

	lib, err := Open(store, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Verbs"}, names(lib.Decks()), "unreadable documents are left out")

	for _, name := range []string{"Spanish", "spanish", "German"} {
		_, err = lib.Create(name)
		assert.ErrorIs(t, err, domain.ErrDuplicateName, name)
		assert.False(t, lib.NameAvailable(name), name)
	}

	doc, err := store.Load("Spanish")
	require.NoError(t, err)
	assert.Equal(t, verbs, doc)
	doc, err = store.Load("German")
	require.NoError(t, err)
	assert.Equal(t, broken, doc)
}

func TestDelete(t *testing.T) {
	lib, store := openLibrary(t)
	_, err := lib.Create("Spanish")
	require.NoError(t, err)

	require.NoError(t, lib.Delete("SPANISH"))
	assert.Empty(t, lib.Decks())
	_, err = store.Load("Spanish")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, lib.Delete("Spanish"), domain.ErrNotFound)
	_, err = lib.Get("Spanish")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSearch(t *testing.T) {
	lib, _ := openLibrary(t)
	for _, name := range []string{"Spanish verbs", "German nouns", "spanish nouns"} {
		_, err := lib.Create(name)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"spanish nouns", "Spanish verbs"}, names(lib.Search("SPAN")))
	assert.Equal(t, []string{"German nouns", "spanish nouns"}, names(lib.Search("nouns")))
	assert.Len(t, lib.Search(""), 3)
	assert.Empty(t, lib.Search("french"))
}

func TestSort(t *testing.T) {
	store, err := storage.OpenFileStore(t.TempDir())
	require.NoError(t, err)
	at := func(h int) deck.Options {
		return deck.Options{Now: func() time.Time { return t0.Add(time.Duration(h) * time.Hour) }}
	}
	b := deck.New(store, "b", "b", at(1))
	a := deck.New(store, "a", "a", at(2))
	c := deck.New(store, "C", "C", at(3))
	b.MarkStudied(t0.Add(5 * time.Hour))
	c.MarkStudied(t0.Add(4 * time.Hour))

	tests := []struct {
		order SortOrder
		want  []string
	}{
		{NameAsc, []string{"a", "b", "C"}},
		{NameDesc, []string{"C", "b", "a"}},
		{CreatedAsc, []string{"b", "a", "C"}},
		{CreatedDesc, []string{"C", "a", "b"}},
		{StudiedAsc, []string{"a", "C", "b"}},
		{StudiedDesc, []string{"b", "C", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.order.String(), func(t *testing.T) {
			decks := []*deck.Deck{a, b, c}
			Sort(decks, tt.order)
			assert.Equal(t, tt.want, names(decks))
		})
	}
}

func TestParseSortOrder(t *testing.T) {
	for o := NameAsc; o <= StudiedDesc; o++ {
		got, err := ParseSortOrder(o.String())
		require.NoError(t, err)
		assert.Equal(t, o, got)
	}
	got, err := ParseSortOrder(" Created-Desc ")
	require.NoError(t, err)
	assert.Equal(t, CreatedDesc, got)

	_, err = ParseSortOrder("random")
	assert.Error(t, err)
}
