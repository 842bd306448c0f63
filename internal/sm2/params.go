package sm2

import (
	"fmt"
	"math"

	"github.com/conorfennell/spacedeck/internal/domain"
)

// Params holds the constants of the SM-2 derived scheduler.
type Params struct {
	// LearningSteps is the learning ladder, in minutes.
	LearningSteps []int `koanf:"learning_steps" validate:"required,min=1,dive,gt=0"`
	// GraduatingInterval is the first review interval, in days, after the
	// ladder is completed.
	GraduatingInterval int `koanf:"graduating_interval" validate:"gt=0"`
	// EasyInterval is the first review interval, in days, after an Easy answer.
	EasyInterval   int     `koanf:"easy_interval" validate:"gt=0"`
	EasyBonus      float64 `koanf:"easy_bonus" validate:"gte=1"`
	HardMultiplier float64 `koanf:"hard_multiplier" validate:"gt=0"`
	MinimumEase    float64 `koanf:"minimum_ease" validate:"gt=0"`
	InitialEase    float64 `koanf:"initial_ease" validate:"gtefield=MinimumEase"`
	EasyEase       float64 `koanf:"easy_ease" validate:"gtefield=MinimumEase"`
	EasyEaseBonus  float64 `koanf:"easy_ease_bonus" validate:"gte=0"`
	// Intervals up to FuzzThreshold days are never fuzzed.
	FuzzThreshold int     `koanf:"fuzz_threshold" validate:"gte=0"`
	FuzzFactor    float64 `koanf:"fuzz_factor" validate:"gte=0,lt=1"`
	// ReviewHour is the hour of day every review-phase due date lands on.
	ReviewHour int `koanf:"review_hour" validate:"gte=0,lte=23"`
}

// DefaultParams returns the stock scheduling constants.
func DefaultParams() *Params {
	return &Params{
		LearningSteps:      []int{1, 10},
		GraduatingInterval: 1,
		EasyInterval:       4,
		EasyBonus:          1.3,
		HardMultiplier:     1.2,
		MinimumEase:        domain.MinEasiness,
		InitialEase:        domain.DefaultEasiness,
		EasyEase:           2.65,
		EasyEaseBonus:      0.15,
		FuzzThreshold:      2,
		FuzzFactor:         0.15,
		ReviewHour:         8,
	}
}

// Validate checks that p describes a usable scheduler.
func (p *Params) Validate() error {
	if len(p.LearningSteps) == 0 {
		return fmt.Errorf("sm2: learning steps must not be empty")
	}
	for i, step := range p.LearningSteps {
		if step <= 0 {
			return fmt.Errorf("sm2: learning step %d must be positive, got %d", i, step)
		}
	}
	switch {
	case p.GraduatingInterval <= 0:
		return fmt.Errorf("sm2: graduating interval %d must be positive", p.GraduatingInterval)
	case p.EasyInterval <= 0:
		return fmt.Errorf("sm2: easy interval %d must be positive", p.EasyInterval)
	case p.EasyBonus < 1:
		return fmt.Errorf("sm2: easy bonus %.2f must be at least 1", p.EasyBonus)
	case p.HardMultiplier <= 0:
		return fmt.Errorf("sm2: hard multiplier %.2f must be positive", p.HardMultiplier)
	case p.MinimumEase <= 0:
		return fmt.Errorf("sm2: minimum ease %.2f must be positive", p.MinimumEase)
	case p.InitialEase < p.MinimumEase || p.EasyEase < p.MinimumEase:
		return fmt.Errorf("sm2: initial and easy ease must not be below the minimum %.2f", p.MinimumEase)
	case p.EasyEaseBonus < 0:
		return fmt.Errorf("sm2: easy ease bonus %.2f must not be negative", p.EasyEaseBonus)
	case p.FuzzThreshold < 0:
		return fmt.Errorf("sm2: fuzz threshold %d must not be negative", p.FuzzThreshold)
	case p.FuzzFactor < 0 || p.FuzzFactor >= 1:
		return fmt.Errorf("sm2: fuzz factor %.2f out of range [0, 1)", p.FuzzFactor)
	case p.ReviewHour < 0 || p.ReviewHour > 23:
		return fmt.Errorf("sm2: review hour %d out of range [0, 23]", p.ReviewHour)
	}
	return nil
}

// NextEasiness applies the SM-2 easiness update for rating r and clamps the
// result to the minimum ease.
// Formula: EF' = EF - 0.8 + 0.28*q - 0.02*q^2
func (p *Params) NextEasiness(ef float64, r domain.Rating) float64 {
	q := float64(r)
	return math.Max(p.MinimumEase, ef-0.8+0.28*q-0.02*q*q)
}
