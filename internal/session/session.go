package session

import (
	"container/heap"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/conorfennell/spacedeck/internal/deck"
	"github.com/conorfennell/spacedeck/internal/domain"
)

// DefaultLimit is the number of cards pulled into a session when no limit
// is given.
const DefaultLimit = 20

// Scheduler updates a card in place for a rating.
type Scheduler interface {
	Apply(c *domain.Card, r domain.Rating, now time.Time) error
}

// Options configures a Session.
type Options struct {
	// Limit caps the working set. Zero means DefaultLimit.
	Limit int
	// Now is the clock. Nil means time.Now.
	Now func() time.Time
}

// Session is one study run over a bounded working set drawn from one or
// more decks. It never copies cards: every card is resolved through the deck
// that owns it, so scheduling changes are visible to the deck immediately.
type Session struct {
	scheduler Scheduler
	sources   []*deck.Deck
	limit     int
	now       func() time.Time

	queue    workQueue
	current  *item
	modified map[uint64]struct{}
}

// New builds a session. Cards in review or learning that are due today come
// first, in due order; New cards fill whatever capacity is left.
func New(scheduler Scheduler, opts Options, sources ...*deck.Deck) (*Session, error) {
	if scheduler == nil {
		return nil, errors.New("session: scheduler is required")
	}
	if len(sources) == 0 {
		return nil, errors.New("session: at least one deck is required")
	}
	if opts.Limit < 0 {
		return nil, fmt.Errorf("session: limit %d must not be negative", opts.Limit)
	}
	if opts.Limit == 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Session{
		scheduler: scheduler,
		sources:   sources,
		limit:     opts.Limit,
		now:       opts.Now,
		modified:  make(map[uint64]struct{}),
	}
	for _, it := range s.selectCards() {
		heap.Push(&s.queue, it)
	}
	s.Peek()

	slog.Debug("Session built", "decks", len(sources), "cards", s.Len(), "limit", s.limit)
	return s, nil
}

func (s *Session) selectCards() []*item {
	type candidate struct {
		card  *domain.Card
		owner *deck.Deck
	}
	var all []candidate
	seen := make(map[uint64]bool)
	for _, d := range s.sources {
		for _, c := range d.Cards() {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			all = append(all, candidate{card: c, owner: d})
		}
	}
	slices.SortStableFunc(all, func(a, b candidate) int {
		switch {
		case a.card.Less(b.card):
			return -1
		case b.card.Less(a.card):
			return 1
		}
		return 0
	})

	today := s.now()
	var reviews, news []*item
	for _, cand := range all {
		if len(reviews) >= s.limit {
			break
		}
		it := &item{id: cand.card.ID, owner: cand.owner, due: cand.card.ScheduledAt}
		switch cand.card.Status {
		case domain.Review, domain.Learning:
			if cand.card.DueOn(today) {
				reviews = append(reviews, it)
			}
		case domain.New:
			if len(news) < s.limit {
				news = append(news, it)
			}
		}
	}
	selected := append(reviews, news...)
	return selected[:min(len(selected), s.limit)]
}

// HasCards reports whether any card is left in the session.
func (s *Session) HasCards() bool {
	return len(s.queue) > 0
}

// Len returns the size of the working set.
func (s *Session) Len() int {
	return len(s.queue)
}

// Sources returns the decks the session draws from.
func (s *Session) Sources() []*deck.Deck {
	return s.sources
}

// Peek makes the card due first the current card and returns it. It
// returns nil when the session is finished.
func (s *Session) Peek() *domain.Card {
	for len(s.queue) > 0 {
		it := s.queue[0]
		if c, ok := it.card(); ok {
			s.current = it
			return c
		}
		// Deleted from its deck behind the session's back.
		heap.Pop(&s.queue)
	}
	s.current = nil
	return nil
}

// Current returns the current card, or nil.
func (s *Session) Current() *domain.Card {
	if s.current == nil {
		return nil
	}
	c, _ := s.current.card()
	return c
}

// PopCurrent removes the current card from the working set and returns it.
// The card stays in its deck.
func (s *Session) PopCurrent() *domain.Card {
	if s.current == nil && s.Peek() == nil {
		return nil
	}
	it := s.current
	heap.Remove(&s.queue, it.index)
	s.current = nil
	c, _ := it.card()
	return c
}

// Rate applies r to the current card. Again and ratings that leave the card
// in learning put it back into the session at its new due time; Easy and
// answers that leave the card in review retire it from the session. The new
// due time is propagated to every source deck holding the card, and the next
// due card becomes current.
func (s *Session) Rate(r domain.Rating) error {
	it := s.current
	if it == nil {
		return domain.ErrNoCurrentCard
	}
	card, ok := it.card()
	if !ok {
		heap.Remove(&s.queue, it.index)
		s.Peek()
		return fmt.Errorf("%w: current card was deleted from deck %q", domain.ErrNotFound, it.owner.Name())
	}
	if err := s.scheduler.Apply(card, r, s.now()); err != nil {
		return err
	}
	s.modified[it.id] = struct{}{}

	heap.Remove(&s.queue, it.index)
	s.current = nil
	if r == domain.Again || (r != domain.Easy && card.Status == domain.Learning) {
		it.due = card.ScheduledAt
		heap.Push(&s.queue, it)
	}

	for _, d := range s.sources {
		d.Reschedule(it.id)
	}

	slog.Debug("Card rated", "deck", it.owner.Name(), "rating", r, "status", card.Status, "due", card.ScheduledAt)
	s.Peek()
	return nil
}

// Modified returns how many cards were rated since the last successful
// Persist.
func (s *Session) Modified() int {
	return len(s.modified)
}

// Persist saves every source deck that holds a rated card. Decks that fail
// to save keep their cards marked as modified so Persist can be retried.
func (s *Session) Persist() error {
	var (
		errs   []error
		failed []*deck.Deck
	)
	for _, d := range s.Touched() {
		if err := d.Save(); err != nil {
			errs = append(errs, err)
			failed = append(failed, d)
		}
	}
	for id := range s.modified {
		if !slices.ContainsFunc(failed, func(d *deck.Deck) bool { return d.Contains(id) }) {
			delete(s.modified, id)
		}
	}
	return errors.Join(errs...)
}

// Touched returns the source decks holding a card rated since the last
// successful Persist.
func (s *Session) Touched() []*deck.Deck {
	var touched []*deck.Deck
	for _, d := range s.sources {
		if s.touches(d) {
			touched = append(touched, d)
		}
	}
	return touched
}

func (s *Session) touches(d *deck.Deck) bool {
	for id := range s.modified {
		if d.Contains(id) {
			return true
		}
	}
	return false
}

// Stats counts the cards left in the working set per status.
func (s *Session) Stats() map[domain.Status]int {
	counts := make(map[domain.Status]int, len(domain.Statuses))
	for _, st := range domain.Statuses {
		counts[st] = 0
	}
	for _, it := range s.queue {
		if c, ok := it.card(); ok {
			counts[c.Status]++
		}
	}
	return counts
}
