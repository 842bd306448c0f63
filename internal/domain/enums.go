package domain

import (
	"encoding"
	"fmt"
	"strconv"
	"strings"
)

// Status is the learning phase of a card.
type Status int

const (
	New      Status = iota // never reviewed
	Learning               // short-interval drilling
	Review                 // long-interval retention
)

// Statuses lists every status in phase order.
var Statuses = []Status{New, Learning, Review}

var statusTokens = [...]string{New: "new", Learning: "learning", Review: "review"}

var (
	_ fmt.Stringer             = Status(0)
	_ encoding.TextMarshaler   = Status(0)
	_ encoding.TextUnmarshaler = (*Status)(nil)
)

// IsValid reports whether s is one of New, Learning or Review.
func (s Status) IsValid() bool {
	return s >= New && s <= Review
}

// String returns the persisted token ("new", "learning", "review").
func (s Status) String() string {
	if s.IsValid() {
		return statusTokens[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("spacedeck: invalid status: %d", int(s))
	}
	return []byte(statusTokens[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	for i, tok := range statusTokens {
		if tok == string(text) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("spacedeck: invalid status: %q", text)
}

// Rating is the learner's self-reported recall quality. The ordinal values
// are SM-2 grades and feed the easiness formula directly.
type Rating int

const (
	Again Rating = 0
	Hard  Rating = 2
	Good  Rating = 4
	Easy  Rating = 5
)

// Ratings lists every rating from worst to best.
var Ratings = []Rating{Again, Hard, Good, Easy}

// IsValid reports whether r is Again, Hard, Good or Easy.
func (r Rating) IsValid() bool {
	switch r {
	case Again, Hard, Good, Easy:
		return true
	}
	return false
}

func (r Rating) String() string {
	switch r {
	case Again:
		return "again"
	case Hard:
		return "hard"
	case Good:
		return "good"
	case Easy:
		return "easy"
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}

// ParseRating accepts a rating name ("again", "good", ...) or its answer key
// position 1-4 as typed at a prompt.
func ParseRating(s string) (Rating, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, r := range Ratings {
		if s == r.String() || s == strconv.Itoa(i+1) || (len(s) == 1 && s[0] == r.String()[0]) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRating, s)
}
