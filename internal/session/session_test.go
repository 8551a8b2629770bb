package session

import (
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/meghana-0211/email-automation/internal/analytics"
	"github.com/meghana-0211/email-automation/internal/apperr"
	"github.com/meghana-0211/email-automation/internal/campaign"
	"github.com/meghana-0211/email-automation/internal/config"
	"github.com/meghana-0211/email-automation/internal/devserver"
	"github.com/meghana-0211/email-automation/internal/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	stub := devserver.New(devserver.Config{EmitInterval: 50 * time.Millisecond}, testLogger(), metrics.New())
	srv := httptest.NewServer(stub.Handler())
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.API.BaseURL = srv.URL
	cfg.Analytics.PollInterval = time.Second

	s := New(cfg, testLogger())
	t.Cleanup(s.Close)
	return s
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestCampaignEndToEnd(t *testing.T) {
	s := newTestSession(t)

	if _, err := s.IngestFile("r.csv", []byte("Email,Name\na@x.com,Alice\nb@x.com,Bob\n")); err != nil {
		t.Fatalf("failed to ingest: %v", err)
	}
	s.SetTemplate("welcome", "Hello", "Hello")
	s.InsertField("Name")

	if got := s.Template().Text; got != "Hello {Name}" {
		t.Fatalf("unexpected template text %q", got)
	}

	preview, err := s.RenderPreview(0)
	if err != nil {
		t.Fatalf("failed to render preview: %v", err)
	}
	if preview != "Hello Alice" {
		t.Errorf("unexpected preview %q", preview)
	}

	job, err := s.StartCampaign()
	if err != nil {
		t.Fatalf("failed to start campaign: %v", err)
	}
	if job.Status != campaign.StatusSubmitted {
		t.Errorf("expected submitted, got %s", job.Status)
	}

	// push channel drives the job to completion and fills the view
	waitFor(t, 5*time.Second, func() bool {
		return s.Job().Status == campaign.StatusCompleted
	})
	waitFor(t, 5*time.Second, func() bool {
		v := s.View()
		return v.Snapshot.Total == 2 && len(v.Activity) == 2
	})

	v := s.View()
	if v.Source != analytics.SourcePush && v.Source != analytics.SourcePull {
		t.Errorf("expected a live source, got %s", v.Source)
	}
	// most recent activity first
	if v.Activity[0].Email != "b@x.com" {
		t.Errorf("expected b@x.com first, got %s", v.Activity[0].Email)
	}
}

func TestStartCampaignValidationOrder(t *testing.T) {
	s := newTestSession(t)

	_, err := s.StartCampaign()
	if err == nil || !apperr.IsValidation(err) || err.Error() != "template required" {
		t.Fatalf("expected template required, got %v", err)
	}

	s.SetTemplate("", "", "Hello {Name}")
	_, err = s.StartCampaign()
	if err == nil || err.Error() != "recipients required" {
		t.Fatalf("expected recipients required, got %v", err)
	}

	if _, err := s.IngestFile("r.csv", []byte("Email\na@x.com\n")); err != nil {
		t.Fatalf("failed to ingest: %v", err)
	}
	_, err = s.StartCampaign()
	if err == nil || !apperr.IsValidation(err) {
		t.Fatalf("expected unknown field error, got %v", err)
	}
	if got := err.Error(); got != "unknown fields: Name" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestSecondCampaignConflicts(t *testing.T) {
	s := newTestSession(t)

	// enough recipients that the job is still running on the second call
	csv := "Email,Name\n"
	for i := 0; i < 50; i++ {
		csv += "a@x.com,Alice\n"
	}
	if _, err := s.IngestFile("r.csv", []byte(csv)); err != nil {
		t.Fatalf("failed to ingest: %v", err)
	}
	s.SetTemplate("", "", "Hello {Name}")

	if _, err := s.StartCampaign(); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	if _, err := s.StartCampaign(); err == nil || !apperr.IsConflict(err) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestUpdateSettingsFailureKeepsPrior(t *testing.T) {
	s := newTestSession(t)

	if err := s.UpdateSettings(200, 5); err != nil {
		t.Fatalf("failed to update settings: %v", err)
	}
	if err := s.UpdateSettings(0, 5); err == nil || !apperr.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	got := s.Settings()
	if got.RatePerHour != 200 || got.PauseSeconds != 5 {
		t.Errorf("expected prior settings retained, got %+v", got)
	}
}

func TestClosedSessionDiscardsIngest(t *testing.T) {
	s := newTestSession(t)
	s.Close()

	_, err := s.IngestFile("r.csv", []byte("Email\na@x.com\n"))
	if err == nil {
		t.Fatal("expected error after close")
	}
	if s.Source() != nil {
		t.Error("closed session must not retain an ingested source")
	}
}

func TestLaterIngestWins(t *testing.T) {
	s := newTestSession(t)

	if _, err := s.IngestFile("a.csv", []byte("Email\na@x.com\n")); err != nil {
		t.Fatalf("failed to ingest file: %v", err)
	}
	if _, err := s.IngestSheet("https://sheets.example.com/d/abc"); err != nil {
		t.Fatalf("failed to ingest sheet: %v", err)
	}

	// the remote source fully replaces the file source
	src := s.Source()
	if src.Len() != 3 || len(src.Columns) != 3 {
		t.Errorf("expected the sheet source to win, got %s", src)
	}
}
