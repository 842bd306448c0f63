package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/spacedeck/internal/deck"
	"github.com/conorfennell/spacedeck/internal/domain"
	"github.com/conorfennell/spacedeck/internal/session"
	"github.com/conorfennell/spacedeck/internal/sm2"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

// flakyStore fails the first failures saves.
type flakyStore struct {
	docs     map[string][]byte
	failures int
	saves    int
}

func (f *flakyStore) Load(key string) ([]byte, error) {
	doc, ok := f.docs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, key)
	}
	return doc, nil
}

func (f *flakyStore) Save(key string, doc []byte) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("disk busy")
	}
	f.saves++
	f.docs[key] = doc
	return nil
}

func (f *flakyStore) Delete(key string) error {
	delete(f.docs, key)
	return nil
}

func (f *flakyStore) Keys() ([]string, error) { return nil, nil }
func (f *flakyStore) Close() error            { return nil }

type fixture struct {
	store *flakyStore
	deck  *deck.Deck
	sched *sm2.Scheduler
	out   *bytes.Buffer
}

func newFixture(t *testing.T, fronts ...string) *fixture {
	t.Helper()
	clock := func() time.Time { return t0 }
	store := &flakyStore{docs: map[string][]byte{}}
	d := deck.New(store, "spanish", "Spanish", deck.Options{Now: clock})
	for _, front := range fronts {
		_, err := d.AddCard(domain.NewCard(front, front+" back", t0))
		require.NoError(t, err)
	}
	sched, err := sm2.NewScheduler(nil, sm2.WithoutFuzz())
	require.NoError(t, err)
	return &fixture{store: store, deck: d, sched: sched, out: &bytes.Buffer{}}
}

func (f *fixture) run(t *testing.T, input string, opts StudyOptions) (Summary, error) {
	t.Helper()
	clock := func() time.Time { return t0 }
	s, err := session.New(f.sched, session.Options{Now: clock}, f.deck)
	require.NoError(t, err)
	opts.In = strings.NewReader(input)
	opts.Out = f.out
	opts.Now = clock
	return NewStudyCLI(s, f.sched, opts).Run(context.Background())
}

func TestStudyAllCards(t *testing.T) {
	f := newFixture(t, "hola", "adiós")
	saves := f.store.saves

	summary, err := f.run(t, "\n4\n\neasy\n", StudyOptions{})
	require.NoError(t, err)

	assert.Equal(t, Summary{Reviewed: 2, Remaining: 0}, summary)
	out := f.out.String()
	assert.Contains(t, out, "hola")
	assert.Contains(t, out, "hola back")
	assert.Contains(t, out, "[1] again (1m)")
	assert.Contains(t, out, "[4] easy (4d)")
	assert.Contains(t, out, "All done! Reviewed 2 cards.")

	assert.Equal(t, saves+1, f.store.saves, "one save at the end of the run")
	assert.Equal(t, map[domain.Status]int{domain.New: 0, domain.Learning: 0, domain.Review: 2}, f.deck.Stats())
	last, ok := f.deck.LastStudiedAt()
	require.True(t, ok)
	assert.Equal(t, t0, last)
}

func TestStudyRejectsUnknownRatings(t *testing.T) {
	f := newFixture(t, "hola")

	summary, err := f.run(t, "\nmaybe\n3\nq\n", StudyOptions{})
	require.NoError(t, err)

	assert.Equal(t, Summary{Reviewed: 1, Remaining: 1}, summary, "good on a new card keeps it in learning")
	assert.Contains(t, f.out.String(), `Unknown rating "maybe"`)
	assert.Contains(t, f.out.String(), "1 left for later")
	assert.Equal(t, domain.Learning, f.deck.Peek().Status)
}

func TestStudyQuitBeforeRating(t *testing.T) {
	f := newFixture(t, "hola")
	saves := f.store.saves

	summary, err := f.run(t, "q\n", StudyOptions{})
	require.NoError(t, err)
	assert.Equal(t, Summary{Reviewed: 0, Remaining: 1}, summary)
	assert.Equal(t, saves, f.store.saves, "nothing to save")
	_, ok := f.deck.LastStudiedAt()
	assert.False(t, ok)
}

func TestStudyEndOfInput(t *testing.T) {
	f := newFixture(t, "hola", "adiós")

	summary, err := f.run(t, "\n4", StudyOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Reviewed)
}

func TestStudyMarksOnlyStudiedDecks(t *testing.T) {
	f := newFixture(t, "hola")
	clock := func() time.Time { return t0 }
	other := &flakyStore{docs: map[string][]byte{}}
	later := deck.New(other, "german", "German", deck.Options{Now: clock})
	c := domain.NewCard("Hund", "dog", t0)
	c.Status = domain.Review
	c.ScheduledAt = t0.Add(72 * time.Hour)
	_, err := later.AddCard(c)
	require.NoError(t, err)
	saves := other.saves

	s, err := session.New(f.sched, session.Options{Now: clock}, f.deck, later)
	require.NoError(t, err)
	summary, err := NewStudyCLI(s, f.sched, StudyOptions{In: strings.NewReader("\n4\n"), Out: f.out, Now: clock}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Reviewed)

	_, ok := f.deck.LastStudiedAt()
	assert.True(t, ok)
	_, ok = later.LastStudiedAt()
	assert.False(t, ok, "a deck with no rated card is not marked")
	assert.Equal(t, saves, other.saves)
}

func TestStudyRetriesPersist(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		f := newFixture(t, "hola")
		f.store.failures = 2

		_, err := f.run(t, "\n4\n", StudyOptions{PersistAttempts: 3})
		require.NoError(t, err)
		assert.Zero(t, f.store.failures)
		assert.Contains(t, string(f.store.docs["spanish"]), `"status": "review"`)
	})

	t.Run("gives up after the last attempt", func(t *testing.T) {
		f := newFixture(t, "hola")
		f.store.failures = 5

		_, err := f.run(t, "\n4\n", StudyOptions{PersistAttempts: 2})
		assert.ErrorIs(t, err, domain.ErrPersistence)
		assert.Equal(t, 3, f.store.failures)
	})
}

func TestFormatInterval(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "<1m"},
		{time.Minute, "1m"},
		{10 * time.Minute, "10m"},
		{90 * time.Minute, "2h"},
		{22 * time.Hour, "22h"},
		{46 * time.Hour, "2d"},
		{20 * 24 * time.Hour, "20d"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatInterval(tt.d))
		})
	}
}

func TestPrintListings(t *testing.T) {
	f := newFixture(t, "hola", "adiós")
	var buf bytes.Buffer

	require.NoError(t, PrintDecks(&buf, []*deck.Deck{f.deck}, t0))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"Spanish", "2", "2", "0", "0", "0", "never"}, strings.Fields(lines[1]))

	buf.Reset()
	require.NoError(t, PrintCards(&buf, f.deck))
	lines = strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "0"))
	assert.Contains(t, lines[1], "hola")
	assert.Contains(t, lines[2], "adiós")
}
