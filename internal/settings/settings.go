// Package settings holds the session's dispatch pacing configuration.
package settings

import (
	"sync"

	"github.com/meghana-0211/email-automation/internal/apperr"
)

// Settings is the dispatch pacing configuration sent with a job.
type Settings struct {
	RatePerHour  int
	PauseSeconds int
}

// Store holds the current settings for the session. Not persisted anywhere;
// lost on session end.
type Store struct {
	mu  sync.Mutex
	cur Settings
}

// NewStore creates a store seeded with defaults.
func NewStore(defaults Settings) *Store {
	if defaults.RatePerHour <= 0 {
		defaults.RatePerHour = 100
	}
	if defaults.PauseSeconds < 0 {
		defaults.PauseSeconds = 0
	}
	return &Store{cur: defaults}
}

// Update validates and replaces the stored settings. A non-positive rate is
// rejected and leaves the prior settings unchanged; a negative pause is
// clamped to zero.
func (s *Store) Update(ratePerHour, pauseSeconds int) error {
	if ratePerHour <= 0 {
		return apperr.Validationf("rate per hour must be positive, got %d", ratePerHour)
	}
	if pauseSeconds < 0 {
		pauseSeconds = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = Settings{RatePerHour: ratePerHour, PauseSeconds: pauseSeconds}
	return nil
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}
