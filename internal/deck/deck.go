package deck

import (
	"container/heap"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/conorfennell/spacedeck/internal/domain"
	"github.com/conorfennell/spacedeck/internal/storage"
)

// Options configures a Deck.
type Options struct {
	// Now is the clock. Nil means time.Now.
	Now func() time.Time
}

// Deck is a named collection of cards kept in due order and persisted to a
// Store after every change. A Deck is not safe for concurrent use.
type Deck struct {
	key         string
	name        string
	createdAt   time.Time
	lastStudied *time.Time

	store storage.Store
	queue dueQueue
	byID  map[uint64]*entry
	now   func() time.Time
}

type deckRecord struct {
	Name        string         `json:"name,omitempty"`
	CreatedAt   string         `json:"created_at,omitempty"`
	LastStudied *string        `json:"last_studied,omitempty"`
	Cards       []*domain.Card `json:"cards"`
}

// New returns an empty deck stored under key. Nothing is written until the
// first change or an explicit Save.
func New(store storage.Store, key, name string, opts Options) *Deck {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if name == "" {
		name = key
	}
	return &Deck{
		key:       key,
		name:      name,
		createdAt: opts.Now(),
		store:     store,
		byID:      make(map[uint64]*entry),
		now:       opts.Now,
	}
}

// Load reads the deck stored under key. A missing document yields an empty
// deck. Malformed metadata fields are logged and defaulted, and unreadable
// cards are skipped; cards without a usable due date are due now. A document
// that is not a JSON object fails with ErrMalformedRecord so that it is never
// overwritten by an empty deck.
func Load(store storage.Store, key string, opts Options) (*Deck, error) {
	d := New(store, key, key, opts)

	data, err := store.Load(key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return d, nil
		}
		return nil, fmt.Errorf("failed to load deck %q: %w", key, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		if err == nil {
			err = errors.New("document is null")
		}
		return nil, fmt.Errorf("%w: deck %q: %w", domain.ErrMalformedRecord, key, err)
	}

	var name string
	if decodeField(key, fields, "name", &name) && name != "" {
		d.name = name
	}
	if t, ok := timestampField(key, fields, "created_at"); ok {
		d.createdAt = t
	}
	if t, ok := timestampField(key, fields, "last_studied"); ok {
		d.lastStudied = &t
	}

	var cards []json.RawMessage
	decodeField(key, fields, "cards", &cards)
	now := d.now()
	for i, raw := range cards {
		card, err := domain.DecodeCard(raw, domain.DecodeOptions{Now: now, Unscheduled: now})
		if card == nil {
			slog.Warn("Skipping unreadable card", "deck", key, "index", i, "error", err)
			continue
		}
		if err != nil {
			slog.Warn("Recovered malformed card", "deck", key, "index", i, "error", err)
		}
		d.queue = append(d.queue, &entry{card: card, due: card.ScheduledAt, index: len(d.queue)})
		d.byID[card.ID] = d.queue[len(d.queue)-1]
	}
	heap.Init(&d.queue)

	slog.Debug("Deck loaded", "deck", d.name, "cards", d.Len())
	return d, nil
}

// decodeField unmarshals one top-level field of a deck document. A missing
// field or null is skipped silently; a malformed one is logged and skipped.
func decodeField(key string, fields map[string]json.RawMessage, name string, dst any) bool {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		slog.Warn("Ignoring malformed deck field", "deck", key, "field", name, "error", err)
		return false
	}
	return true
}

func timestampField(key string, fields map[string]json.RawMessage, name string) (time.Time, bool) {
	var s string
	if !decodeField(key, fields, name, &s) || s == "" {
		return time.Time{}, false
	}
	t, err := domain.ParseTimestamp(s)
	if err != nil {
		slog.Warn("Ignoring malformed deck field", "deck", key, "field", name, "error", err)
		return time.Time{}, false
	}
	return t, true
}

// Key returns the storage key of the deck.
func (d *Deck) Key() string { return d.key }

// Name returns the human label of the deck.
func (d *Deck) Name() string { return d.name }

// CreatedAt returns when the deck was first created.
func (d *Deck) CreatedAt() time.Time { return d.createdAt }

// LastStudiedAt returns when the deck was last studied, if ever.
func (d *Deck) LastStudiedAt() (time.Time, bool) {
	if d.lastStudied == nil {
		return time.Time{}, false
	}
	return *d.lastStudied, true
}

// MarkStudied records a study run. It is persisted with the next save.
func (d *Deck) MarkStudied(t time.Time) {
	d.lastStudied = &t
}

// Len returns the number of cards in the deck.
func (d *Deck) Len() int { return len(d.queue) }

// Cards returns the cards in due order.
func (d *Deck) Cards() []*domain.Card {
	entries := slices.Clone(d.queue)
	slices.SortFunc(entries, func(a, b *entry) int {
		switch {
		case domain.DueBefore(a.due, a.card.ID, b.due, b.card.ID):
			return -1
		case domain.DueBefore(b.due, b.card.ID, a.due, a.card.ID):
			return 1
		}
		return 0
	})
	cards := make([]*domain.Card, len(entries))
	for i, e := range entries {
		cards[i] = e.card
	}
	return cards
}

// Peek returns the card that is due first, or nil for an empty deck.
func (d *Deck) Peek() *domain.Card {
	if len(d.queue) == 0 {
		return nil
	}
	return d.queue[0].card
}

// Card looks a card up by ID.
func (d *Deck) Card(id uint64) (*domain.Card, bool) {
	e, ok := d.byID[id]
	if !ok {
		return nil, false
	}
	return e.card, true
}

// Contains reports whether the card with the given ID belongs to the deck.
func (d *Deck) Contains(id uint64) bool {
	_, ok := d.byID[id]
	return ok
}

// AddCard files card under its due time, defaulting an unscheduled card to
// now, and persists the deck. The card stays in the deck even when the save
// fails.
func (d *Deck) AddCard(card *domain.Card) (*domain.Card, error) {
	if card == nil {
		return nil, fmt.Errorf("deck %q: cannot add a nil card", d.name)
	}
	d.push(card)
	return card, d.Save()
}

// AddCards adds several cards with a single save.
func (d *Deck) AddCards(cards ...*domain.Card) error {
	for _, card := range cards {
		if card != nil {
			d.push(card)
		}
	}
	return d.Save()
}

func (d *Deck) push(card *domain.Card) {
	if card.ID == 0 {
		card.ID = domain.NextID()
	}
	if _, ok := d.byID[card.ID]; ok {
		return
	}
	if !card.IsScheduled() {
		card.ScheduledAt = d.now()
	}
	e := &entry{card: card, due: card.ScheduledAt}
	heap.Push(&d.queue, e)
	d.byID[card.ID] = e
}

// DeleteAt removes the card at position i of the due order (see Cards).
func (d *Deck) DeleteAt(i int) (*domain.Card, error) {
	cards := d.Cards()
	if i < 0 || i >= len(cards) {
		return nil, fmt.Errorf("%w: no card at index %d in deck %q", domain.ErrNotFound, i, d.name)
	}
	return d.remove(cards[i])
}

// Delete removes card, matched by identity.
func (d *Deck) Delete(card *domain.Card) (*domain.Card, error) {
	if card == nil || !d.Contains(card.ID) || d.byID[card.ID].card != card {
		return nil, fmt.Errorf("%w: card not in deck %q", domain.ErrNotFound, d.name)
	}
	return d.remove(card)
}

func (d *Deck) remove(card *domain.Card) (*domain.Card, error) {
	e := d.byID[card.ID]
	heap.Remove(&d.queue, e.index)
	delete(d.byID, card.ID)
	return card, d.Save()
}

// Reschedule refiles the card with the given ID under its current
// ScheduledAt. It reports whether the card belongs to the deck.
func (d *Deck) Reschedule(id uint64) bool {
	e, ok := d.byID[id]
	if !ok {
		return false
	}
	e.due = e.card.ScheduledAt
	heap.Fix(&d.queue, e.index)
	return true
}

// Reset wipes the memory of every card: all become New and due now.
func (d *Deck) Reset() error {
	now := d.now()
	for _, e := range d.queue {
		e.card.Reset(now)
		e.due = now
	}
	heap.Init(&d.queue)
	return d.Save()
}

// Stats counts the deck's cards per status.
func (d *Deck) Stats() map[domain.Status]int {
	counts := make(map[domain.Status]int, len(domain.Statuses))
	for _, s := range domain.Statuses {
		counts[s] = 0
	}
	for _, e := range d.queue {
		counts[e.card.Status]++
	}
	return counts
}

// DueCount returns how many cards are due on or before the day of now.
func (d *Deck) DueCount(now time.Time) int {
	n := 0
	for _, e := range d.queue {
		if e.card.Status != domain.New && e.card.DueOn(now) {
			n++
		}
	}
	return n
}

// Save writes the deck's name, metadata and cards to the store. On failure
// the in-memory deck is unchanged and Save can be retried.
func (d *Deck) Save() error {
	rec := deckRecord{
		Name:      d.name,
		CreatedAt: domain.FormatTimestamp(d.createdAt),
		Cards:     d.Cards(),
	}
	if d.lastStudied != nil {
		s := domain.FormatTimestamp(*d.lastStudied)
		rec.LastStudied = &s
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to encode deck %q: %w", domain.ErrPersistence, d.name, err)
	}
	if err := d.store.Save(d.key, data); err != nil {
		return fmt.Errorf("%w: failed to save deck %q: %w", domain.ErrPersistence, d.name, err)
	}
	return nil
}
