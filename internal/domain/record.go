package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp. Timestamps without a zone
// offset are read in local time.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FormatTimestamp renders t the way card records store it.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

type cardRecord struct {
	Front         string          `json:"front"`
	Back          string          `json:"back"`
	CreateDate    string          `json:"create_date"`
	LastReview    *string         `json:"last_review"`
	Interval      int             `json:"interval"`
	Repetition    int             `json:"repetition"`
	Easiness      float64         `json:"easiness"`
	Lapses        int             `json:"lapses"`
	ScheduledDate string          `json:"scheduled_date,omitempty"`
	History       []historyRecord `json:"history"`
	Status        Status          `json:"status"`
	LearningIndex int             `json:"learning_index"`
}

// historyRecord is persisted as a two element array: [timestamp, rating].
type historyRecord struct {
	At     string
	Rating int
}

func (h historyRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{h.At, h.Rating})
}

// MarshalJSON encodes the card as its persisted record.
func (c Card) MarshalJSON() ([]byte, error) {
	rec := cardRecord{
		Front:         c.Front,
		Back:          c.Back,
		CreateDate:    FormatTimestamp(c.CreatedAt),
		Interval:      c.IntervalDays,
		Repetition:    c.Repetitions,
		Easiness:      c.Easiness,
		Lapses:        c.Lapses,
		History:       make([]historyRecord, 0, len(c.History)),
		Status:        c.Status,
		LearningIndex: c.LearningStep,
	}
	if c.LastReviewedAt != nil {
		s := FormatTimestamp(*c.LastReviewedAt)
		rec.LastReview = &s
	}
	if c.IsScheduled() {
		rec.ScheduledDate = FormatTimestamp(c.ScheduledAt)
	}
	for _, h := range c.History {
		rec.History = append(rec.History, historyRecord{At: FormatTimestamp(h.At), Rating: int(h.Rating)})
	}
	return json.Marshal(rec)
}

// UnmarshalJSON decodes a persisted record. Malformed fields are replaced by
// their defaults and logged; only a record that is not a JSON object fails.
// A JSON null leaves c unchanged.
func (c *Card) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	card, err := DecodeCard(data, DecodeOptions{})
	if card == nil {
		return err
	}
	if err != nil {
		slog.Warn("Recovered malformed card record", "front", card.Front, "error", err)
	}
	*c = *card
	return nil
}

// DecodeOptions controls the defaults DecodeCard substitutes.
type DecodeOptions struct {
	// Now replaces a missing creation date. Zero means time.Now().
	Now time.Time
	// Unscheduled replaces a missing or unparsable due date. Zero means FarFuture.
	Unscheduled time.Time
}

// DecodeCard decodes a card record field by field. Fields that are missing
// take their documented defaults; fields that are present but malformed also
// take their defaults and are reported in the returned error, which wraps
// ErrMalformedRecord. The card is non-nil unless data is not a JSON object.
func DecodeCard(data []byte, opts DecodeOptions) (*Card, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		if err == nil {
			err = errors.New("record is null")
		}
		return nil, fmt.Errorf("%w: card: %w", ErrMalformedRecord, err)
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Unscheduled.IsZero() {
		opts.Unscheduled = FarFuture
	}

	d := &fieldDecoder{raw: raw}
	c := NewCard("", "", opts.Now)
	d.decode("front", &c.Front)
	d.decode("back", &c.Back)
	if t, ok := d.timestamp("create_date"); ok {
		c.CreatedAt = t
	}
	if t, ok := d.timestamp("last_review"); ok {
		c.LastReviewedAt = &t
	}
	if d.decode("interval", &c.IntervalDays) && c.IntervalDays < 0 {
		d.problem("interval", fmt.Errorf("negative value %d", c.IntervalDays))
		c.IntervalDays = 0
	}
	if d.decode("repetition", &c.Repetitions) && c.Repetitions < 0 {
		d.problem("repetition", fmt.Errorf("negative value %d", c.Repetitions))
		c.Repetitions = 0
	}
	if d.decode("easiness", &c.Easiness) && c.Easiness < MinEasiness {
		d.problem("easiness", fmt.Errorf("%.2f below floor", c.Easiness))
		c.Easiness = MinEasiness
	}
	if d.decode("lapses", &c.Lapses) && c.Lapses < 0 {
		d.problem("lapses", fmt.Errorf("negative value %d", c.Lapses))
		c.Lapses = 0
	}
	c.ScheduledAt = opts.Unscheduled
	if t, ok := d.timestamp("scheduled_date"); ok {
		c.ScheduledAt = t
	}
	c.History = d.history("history")
	d.decode("status", &c.Status)
	if d.decode("learning_index", &c.LearningStep) && c.LearningStep < 0 {
		d.problem("learning_index", fmt.Errorf("negative value %d", c.LearningStep))
		c.LearningStep = 0
	}

	if len(d.problems) > 0 {
		return c, fmt.Errorf("%w: %w", ErrMalformedRecord, errors.Join(d.problems...))
	}
	return c, nil
}

type fieldDecoder struct {
	raw      map[string]json.RawMessage
	problems []error
}

func (d *fieldDecoder) problem(key string, err error) {
	d.problems = append(d.problems, fmt.Errorf("field %q: %w", key, err))
}

// decode unmarshals key into dst, reporting whether a usable value was found.
// A missing key or an explicit null is not a problem.
func (d *fieldDecoder) decode(key string, dst any) bool {
	v, ok := d.raw[key]
	if !ok || string(v) == "null" {
		return false
	}
	if err := json.Unmarshal(v, dst); err != nil {
		d.problem(key, err)
		return false
	}
	return true
}

func (d *fieldDecoder) timestamp(key string) (time.Time, bool) {
	var s string
	if !d.decode(key, &s) || s == "" {
		return time.Time{}, false
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		d.problem(key, err)
		return time.Time{}, false
	}
	return t, true
}

// history keeps every well-formed [timestamp, rating] pair in order and
// skips the rest.
func (d *fieldDecoder) history(key string) []HistoryEntry {
	entries := []HistoryEntry{}
	var pairs [][]json.RawMessage
	if !d.decode(key, &pairs) {
		return entries
	}
	for i, pair := range pairs {
		if len(pair) != 2 {
			d.problem(key, fmt.Errorf("entry %d: want 2 elements, got %d", i, len(pair)))
			continue
		}
		var (
			ts     string
			rating float64
		)
		if err := json.Unmarshal(pair[0], &ts); err != nil {
			d.problem(key, fmt.Errorf("entry %d: %w", i, err))
			continue
		}
		at, err := ParseTimestamp(ts)
		if err != nil {
			d.problem(key, fmt.Errorf("entry %d: %w", i, err))
			continue
		}
		if err := json.Unmarshal(pair[1], &rating); err != nil {
			d.problem(key, fmt.Errorf("entry %d: %w", i, err))
			continue
		}
		r := Rating(rating)
		if float64(r) != rating || !r.IsValid() {
			d.problem(key, fmt.Errorf("entry %d: %w: %v", i, ErrInvalidRating, rating))
			continue
		}
		entries = append(entries, HistoryEntry{At: at, Rating: r})
	}
	return entries
}
