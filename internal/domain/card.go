package domain

import (
	"sync/atomic"
	"time"
)

const (
	// DefaultEasiness is the easiness factor of a card that has never graduated.
	DefaultEasiness = 2.5
	// MinEasiness is the hard floor of the easiness factor.
	MinEasiness = 1.3
)

// FarFuture is the due date given to cards whose persisted due date is
// missing, so they sort after everything that has been scheduled.
var FarFuture = time.Date(9999, 12, 31, 23, 59, 59, 999999000, time.UTC)

var lastID atomic.Uint64

// NextID returns a fresh process-local card identifier. Identifiers increase
// monotonically and are used to break ties between cards due at the same time.
func NextID() uint64 {
	return lastID.Add(1)
}

// HistoryEntry records a single rating applied to a card.
type HistoryEntry struct {
	At     time.Time
	Rating Rating
}

// Card is a single memorized fact together with its scheduling state.
// Cards are mutated in place by the scheduler; two cards with the same text
// are still distinct cards.
type Card struct {
	ID    uint64
	Front string
	Back  string

	CreatedAt      time.Time
	Status         Status
	LastReviewedAt *time.Time
	IntervalDays   int
	Repetitions    int
	Easiness       float64
	Lapses         int
	// ScheduledAt is the next due time. The zero value means unscheduled,
	// which sorts first.
	ScheduledAt  time.Time
	History      []HistoryEntry
	LearningStep int
}

// NewCard creates an unscheduled card in the New state.
func NewCard(front, back string, now time.Time) *Card {
	return &Card{
		ID:        NextID(),
		Front:     front,
		Back:      back,
		CreatedAt: now,
		Status:    New,
		Easiness:  DefaultEasiness,
		History:   []HistoryEntry{},
	}
}

// IsScheduled reports whether the card has a due time.
func (c *Card) IsScheduled() bool {
	return !c.ScheduledAt.IsZero()
}

// Graduated reports whether the card has reached the review phase.
func (c *Card) Graduated() bool {
	return c.Status == Review
}

// DueOn reports whether the card's due date falls on or before the calendar
// day of t, in t's location. Unscheduled cards are always due.
func (c *Card) DueOn(t time.Time) bool {
	if !c.IsScheduled() {
		return true
	}
	y, m, d := t.Date()
	endOfDay := time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
	return c.ScheduledAt.Before(endOfDay)
}

// Reset wipes all memory of the card: it becomes New again, due at now.
func (c *Card) Reset(now time.Time) {
	c.Status = New
	c.Repetitions = 0
	c.IntervalDays = 0
	c.Easiness = DefaultEasiness
	c.Lapses = 0
	c.LearningStep = 0
	c.LastReviewedAt = nil
	c.ScheduledAt = now
	c.History = []HistoryEntry{}
}

// Less orders cards by due time, then by ID.
func (c *Card) Less(other *Card) bool {
	return DueBefore(c.ScheduledAt, c.ID, other.ScheduledAt, other.ID)
}

// DueBefore is the ordering shared by every due-ordered queue.
func DueBefore(at time.Time, id uint64, otherAt time.Time, otherID uint64) bool {
	if !at.Equal(otherAt) {
		return at.Before(otherAt)
	}
	return id < otherID
}

func (c *Card) String() string {
	return "Front: " + c.Front + ", Back: " + c.Back
}
