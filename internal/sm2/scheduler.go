package sm2

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"time"

	"github.com/conorfennell/spacedeck/internal/domain"
)

// Scheduler moves cards through the New → Learning → Review state machine.
// It performs no I/O; the only source of nondeterminism is interval fuzzing.
type Scheduler struct {
	params Params
	rng    *rand.Rand
	noFuzz bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRand makes the scheduler draw fuzz from rng instead of the
// process-wide generator.
func WithRand(rng *rand.Rand) Option {
	return func(s *Scheduler) { s.rng = rng }
}

// WithoutFuzz disables interval fuzzing.
func WithoutFuzz() Option {
	return func(s *Scheduler) { s.noFuzz = true }
}

// NewScheduler creates a Scheduler. A nil p uses DefaultParams.
func NewScheduler(p *Params, opts ...Option) (*Scheduler, error) {
	if p == nil {
		p = DefaultParams()
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{params: *p}
	s.params.LearningSteps = slices.Clone(p.LearningSteps)
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Params returns a copy of the scheduler's constants.
func (s *Scheduler) Params() Params {
	p := s.params
	p.LearningSteps = slices.Clone(s.params.LearningSteps)
	return p
}

// Apply records rating r for card c at now and updates its scheduling state
// in place. Every call appends exactly one history entry.
func (s *Scheduler) Apply(c *domain.Card, r domain.Rating, now time.Time) error {
	if !r.IsValid() {
		return fmt.Errorf("%w: %d", domain.ErrInvalidRating, int(r))
	}
	s.apply(c, r, now, !s.noFuzz)
	return nil
}

// Preview returns the due time each rating would give c at now, without
// touching c. Intervals are not fuzzed.
func (s *Scheduler) Preview(c *domain.Card, now time.Time) map[domain.Rating]time.Time {
	due := make(map[domain.Rating]time.Time, len(domain.Ratings))
	for _, r := range domain.Ratings {
		clone := *c
		clone.History = slices.Clone(c.History)
		s.apply(&clone, r, now, false)
		due[r] = clone.ScheduledAt
	}
	return due
}

func (s *Scheduler) apply(c *domain.Card, r domain.Rating, now time.Time, fuzz bool) {
	reviewed := now
	c.LastReviewedAt = &reviewed
	c.History = append(c.History, domain.HistoryEntry{At: now, Rating: r})

	switch c.Status {
	case domain.Learning:
		s.fromLearning(c, r, now, fuzz)
	case domain.Review:
		s.fromReview(c, r, now, fuzz)
	default:
		s.fromNew(c, r, now, fuzz)
	}
}

func (s *Scheduler) fromNew(c *domain.Card, r domain.Rating, now time.Time, fuzz bool) {
	if r == domain.Easy {
		s.graduate(c, s.params.EasyInterval, s.params.EasyEase, now, fuzz)
		return
	}
	c.Status = domain.Learning
	c.LearningStep = 0
	c.ScheduledAt = s.stepDue(now, 0)
}

func (s *Scheduler) fromLearning(c *domain.Card, r domain.Rating, now time.Time, fuzz bool) {
	switch r {
	case domain.Again:
		c.LearningStep = 0
		c.ScheduledAt = s.stepDue(now, 0)
	case domain.Hard:
		// Repeat the current step.
		c.LearningStep = min(max(c.LearningStep, 0), len(s.params.LearningSteps)-1)
		c.ScheduledAt = s.stepDue(now, c.LearningStep)
	case domain.Good:
		c.LearningStep++
		if c.LearningStep >= len(s.params.LearningSteps) {
			s.graduate(c, s.params.GraduatingInterval, s.params.InitialEase, now, fuzz)
			return
		}
		c.ScheduledAt = s.stepDue(now, c.LearningStep)
	case domain.Easy:
		s.graduate(c, s.params.EasyInterval, s.params.EasyEase, now, fuzz)
	}
}

func (s *Scheduler) fromReview(c *domain.Card, r domain.Rating, now time.Time, fuzz bool) {
	if r == domain.Again {
		c.Status = domain.Learning
		c.LearningStep = 0
		c.Repetitions = 0
		c.IntervalDays = 0
		c.Lapses++
		c.ScheduledAt = s.stepDue(now, 0)
		return
	}

	c.Easiness = s.params.NextEasiness(c.Easiness, r)
	c.Repetitions++

	if c.Repetitions == 1 {
		if r == domain.Easy {
			c.IntervalDays = s.params.EasyInterval
		} else {
			c.IntervalDays = s.params.GraduatingInterval
		}
	} else {
		interval := float64(c.IntervalDays)
		switch r {
		case domain.Hard:
			c.IntervalDays = atLeastOneDay(interval * s.params.HardMultiplier)
		case domain.Good:
			c.IntervalDays = atLeastOneDay(interval * c.Easiness)
		case domain.Easy:
			c.IntervalDays = atLeastOneDay(interval * c.Easiness * s.params.EasyBonus)
			c.Easiness += s.params.EasyEaseBonus
		}
	}
	c.ScheduledAt = s.scheduleDay(now, s.fuzz(c.IntervalDays, fuzz))
}

func (s *Scheduler) graduate(c *domain.Card, interval int, ease float64, now time.Time, fuzz bool) {
	c.Status = domain.Review
	c.Repetitions = 1
	c.IntervalDays = interval
	c.Easiness = ease
	c.LearningStep = 0
	c.ScheduledAt = s.scheduleDay(now, s.fuzz(interval, fuzz))
}

func atLeastOneDay(days float64) int {
	return max(1, int(math.Round(days)))
}

// stepDue returns the due time of learning step i.
func (s *Scheduler) stepDue(now time.Time, i int) time.Time {
	return now.Add(time.Duration(s.params.LearningSteps[i]) * time.Minute)
}

// scheduleDay returns the calendar day `days` after now, at the review hour,
// so that review-phase due dates compare by day.
func (s *Scheduler) scheduleDay(now time.Time, days int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+days, s.params.ReviewHour, 0, 0, 0, now.Location())
}

// fuzz perturbs intervals longer than the fuzz threshold by up to
// ±FuzzFactor of their length.
func (s *Scheduler) fuzz(days int, enabled bool) int {
	if !enabled || days <= s.params.FuzzThreshold {
		return days
	}
	spread := int(float64(days) * s.params.FuzzFactor)
	if spread == 0 {
		return days
	}
	return days + s.intn(2*spread+1) - spread
}

func (s *Scheduler) intn(n int) int {
	if s.rng != nil {
		return s.rng.Intn(n)
	}
	return rand.Intn(n)
}
