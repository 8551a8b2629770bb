package settings

import (
	"testing"

	"github.com/meghana-0211/email-automation/internal/apperr"
)

func TestUpdate(t *testing.T) {
	s := NewStore(Settings{RatePerHour: 100})

	if err := s.Update(250, 3); err != nil {
		t.Fatalf("failed to update: %v", err)
	}
	got := s.Get()
	if got.RatePerHour != 250 || got.PauseSeconds != 3 {
		t.Errorf("expected 250/3, got %d/%d", got.RatePerHour, got.PauseSeconds)
	}
}

func TestUpdateRejectsZeroRate(t *testing.T) {
	s := NewStore(Settings{RatePerHour: 100, PauseSeconds: 1})

	err := s.Update(0, 5)
	if err == nil {
		t.Fatal("expected error for zero rate")
	}
	if !apperr.IsValidation(err) {
		t.Errorf("expected ValidationError, got %T: %v", err, err)
	}

	// prior valid settings remain unchanged
	got := s.Get()
	if got.RatePerHour != 100 || got.PauseSeconds != 1 {
		t.Errorf("expected unchanged 100/1, got %d/%d", got.RatePerHour, got.PauseSeconds)
	}
}

func TestUpdateClampsNegativePause(t *testing.T) {
	s := NewStore(Settings{RatePerHour: 100})

	if err := s.Update(100, -10); err != nil {
		t.Fatalf("failed to update: %v", err)
	}
	if got := s.Get().PauseSeconds; got != 0 {
		t.Errorf("expected pause clamped to 0, got %d", got)
	}
}

func TestNewStoreDefaults(t *testing.T) {
	s := NewStore(Settings{})
	got := s.Get()
	if got.RatePerHour != 100 || got.PauseSeconds != 0 {
		t.Errorf("expected defaults 100/0, got %d/%d", got.RatePerHour, got.PauseSeconds)
	}
}
