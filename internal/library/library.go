// Package library manages the set of decks kept in one store.
package library

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/spacedeck/internal/deck"
	"github.com/conorfennell/spacedeck/internal/domain"
	"github.com/conorfennell/spacedeck/internal/storage"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type deckName struct {
	Name string `validate:"required,max=100,excludesall=/\\"`
}

// Options configures a Library.
type Options struct {
	// Now is the clock handed to every deck. Nil means time.Now.
	Now func() time.Time
}

// Library is the set of decks stored in one Store. Deck names are unique
// ignoring case and double as storage keys.
type Library struct {
	store storage.Store
	opts  deck.Options
	decks []*deck.Deck
	// unreadable holds the keys of documents that could not be loaded.
	unreadable []string
}

// Open loads every deck in store. Documents that are not valid deck records
// are logged and left out, and their keys stay reserved.
func Open(store storage.Store, opts Options) (*Library, error) {
	keys, err := store.Keys()
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	lib := &Library{store: store, opts: deck.Options{Now: opts.Now}}
	for _, key := range keys {
		d, err := deck.Load(store, key, lib.opts)
		if errors.Is(err, domain.ErrMalformedRecord) {
			slog.Error("Skipping unreadable deck", "key", key, "error", err)
			lib.unreadable = append(lib.unreadable, key)
			continue
		}
		if err != nil {
			return nil, err
		}
		lib.decks = append(lib.decks, d)
	}
	slog.Debug("Library opened", "decks", len(lib.decks))
	return lib, nil
}

// Decks returns every deck ordered by name.
func (l *Library) Decks() []*deck.Deck {
	decks := slices.Clone(l.decks)
	Sort(decks, NameAsc)
	return decks
}

// Get finds a deck by name, ignoring case.
func (l *Library) Get(name string) (*deck.Deck, error) {
	name = strings.TrimSpace(name)
	for _, d := range l.decks {
		if strings.EqualFold(d.Name(), name) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: deck %q", domain.ErrNotFound, name)
}

// NameAvailable reports whether no deck is called name and no stored
// document uses it as a key, ignoring case.
func (l *Library) NameAvailable(name string) bool {
	name = strings.TrimSpace(name)
	if _, err := l.Get(name); err == nil {
		return false
	}
	for _, d := range l.decks {
		if strings.EqualFold(d.Key(), name) {
			return false
		}
	}
	return !slices.ContainsFunc(l.unreadable, func(key string) bool {
		return strings.EqualFold(key, name)
	})
}

// Create adds an empty deck and persists it.
func (l *Library) Create(name string) (*deck.Deck, error) {
	name = strings.TrimSpace(name)
	if err := validate.Struct(deckName{Name: name}); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", domain.ErrInvalidName, name, err)
	}
	if err := storage.ValidateKey(name); err != nil {
		return nil, err
	}
	if !l.NameAvailable(name) {
		return nil, fmt.Errorf("%w: %q", domain.ErrDuplicateName, name)
	}

	d := deck.New(l.store, name, name, l.opts)
	if err := d.Save(); err != nil {
		return nil, err
	}
	l.decks = append(l.decks, d)
	slog.Info("Deck created", "deck", name)
	return d, nil
}

// Delete removes a deck from the library and from the store.
func (l *Library) Delete(name string) error {
	d, err := l.Get(name)
	if err != nil {
		return err
	}
	if err := l.store.Delete(d.Key()); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: failed to delete deck %q: %w", domain.ErrPersistence, d.Name(), err)
	}
	l.decks = slices.DeleteFunc(l.decks, func(other *deck.Deck) bool { return other == d })
	slog.Info("Deck deleted", "deck", d.Name())
	return nil
}

// Search returns the decks whose name contains phrase, ignoring case, ordered
// by name. An empty phrase matches every deck.
func (l *Library) Search(phrase string) []*deck.Deck {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	var found []*deck.Deck
	for _, d := range l.Decks() {
		if strings.Contains(strings.ToLower(d.Name()), phrase) {
			found = append(found, d)
		}
	}
	return found
}
