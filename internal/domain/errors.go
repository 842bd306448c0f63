package domain

import "errors"

// Sentinel errors shared across spacedeck packages.
// Use errors.Is to check: errors.Is(err, domain.ErrNotFound)
var (
	ErrNotFound        = errors.New("spacedeck: not found")
	ErrDuplicateName   = errors.New("spacedeck: duplicate name")
	ErrInvalidName     = errors.New("spacedeck: invalid name")
	ErrMalformedRecord = errors.New("spacedeck: malformed record")
	ErrPersistence     = errors.New("spacedeck: persistence failure")
	ErrInvalidRating   = errors.New("spacedeck: invalid rating")
	ErrNoCurrentCard   = errors.New("spacedeck: no current card")
)
