// Package session owns the orchestration state for one campaign session and
// exposes the operations the presentation layer is allowed to issue. All
// state changes go through these methods; the CLI only reads.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/meghana-0211/email-automation/internal/analytics"
	"github.com/meghana-0211/email-automation/internal/api"
	"github.com/meghana-0211/email-automation/internal/apperr"
	"github.com/meghana-0211/email-automation/internal/campaign"
	"github.com/meghana-0211/email-automation/internal/config"
	"github.com/meghana-0211/email-automation/internal/datasource"
	"github.com/meghana-0211/email-automation/internal/metrics"
	"github.com/meghana-0211/email-automation/internal/settings"
	"github.com/meghana-0211/email-automation/internal/template"
)

// Session is the in-memory orchestration state for one user session.
// Nothing here survives Close; durability is the backend's concern.
type Session struct {
	cfg     *config.Config
	logger  *slog.Logger
	client  *api.Client
	metrics *metrics.Metrics

	adapter    *datasource.Adapter
	binder     *template.Binder
	settings   *settings.Store
	dispatcher *campaign.Dispatcher
	reconciler *analytics.Reconciler

	// session state, replaced atomically by the operations below
	source *datasource.DataSource
	tmpl   *template.Template

	ctx     context.Context
	cancel  context.CancelFunc
	forward sync.Once
}

// New wires a session from configuration. The reconciler is created but not
// started; call Observe (or StartCampaign, which starts it) to begin.
func New(cfg *config.Config, logger *slog.Logger) *Session {
	m := metrics.New()
	client := api.NewClient(cfg.API.BaseURL, cfg.API.Key, cfg.API.RequestTimeout)
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		cfg:     cfg,
		logger:  logger,
		client:  client,
		metrics: m,
		adapter: datasource.NewAdapter(client, logger, m),
		binder:  template.NewBinder(cfg.Template.OpenMarker, cfg.Template.CloseMarker, logger),
		settings: settings.NewStore(settings.Settings{
			RatePerHour:  cfg.Throttle.RatePerHour,
			PauseSeconds: cfg.Throttle.PauseSeconds,
		}),
		dispatcher: campaign.NewDispatcher(client, logger, m),
		reconciler: analytics.New(client, analytics.Config{
			PollInterval: cfg.Analytics.PollInterval,
			WindowHours:  cfg.Analytics.WindowHours,
		}, logger, m),
		tmpl:   &template.Template{Name: "campaign", Subject: "Campaign"},
		ctx:    ctx,
		cancel: cancel,
	}
	return s
}

// Client exposes the backend client for read-only presentation calls.
func (s *Session) Client() *api.Client {
	return s.client
}

// Metrics exposes the session's Prometheus collectors.
func (s *Session) Metrics() *metrics.Metrics {
	return s.metrics
}

// IngestFile replaces the session's data source from CSV content. If the
// session was closed while the ingest was in flight, the result is
// discarded.
func (s *Session) IngestFile(filename string, content []byte) (*datasource.DataSource, error) {
	ds, err := s.adapter.IngestFile(s.ctx, filename, content)
	if err != nil {
		return nil, err
	}
	if s.ctx.Err() != nil {
		return nil, apperr.Conflictf("session closed")
	}
	s.source = ds
	return ds, nil
}

// IngestSheet replaces the session's data source from a spreadsheet locator.
func (s *Session) IngestSheet(locator string) (*datasource.DataSource, error) {
	ds, err := s.adapter.IngestRemote(s.ctx, locator)
	if err != nil {
		return nil, err
	}
	if s.ctx.Err() != nil {
		return nil, apperr.Conflictf("session closed")
	}
	s.source = ds
	return ds, nil
}

// Source returns the current data source, nil when nothing is ingested.
func (s *Session) Source() *datasource.DataSource {
	return s.source
}

// SetTemplate replaces the template's name, subject, and text.
func (s *Session) SetTemplate(name, subject, text string) {
	if name != "" {
		s.tmpl.Name = name
	}
	if subject != "" {
		s.tmpl.Subject = subject
	}
	s.binder.SetText(s.tmpl, text)
}

// InsertField appends a field token to the template text.
func (s *Session) InsertField(field string) {
	s.binder.InsertField(s.tmpl, field)
}

// Template returns a copy of the session template.
func (s *Session) Template() template.Template {
	return *s.tmpl
}

// SaveTemplate persists the session template to the backend and returns a
// copy with the assigned ID.
func (s *Session) SaveTemplate() (template.Template, error) {
	if err := s.binder.Save(s.ctx, s.client, s.tmpl); err != nil {
		return template.Template{}, err
	}
	return *s.tmpl, nil
}

// ListTemplates fetches all templates saved on the backend.
func (s *Session) ListTemplates() ([]api.Template, error) {
	return s.binder.List(s.ctx, s.client)
}

// MissingFields reports template tokens absent from the current source.
func (s *Session) MissingFields() []string {
	return s.binder.MissingFields(s.tmpl, s.source)
}

// RenderPreview renders the template against row i of the current source.
func (s *Session) RenderPreview(i int) (string, error) {
	if s.source.Empty() || i < 0 || i >= s.source.Len() {
		return "", apperr.Validationf("no recipient row %d", i)
	}
	return s.binder.Render(s.tmpl, s.source.Rows[i]), nil
}

// UpdateSettings validates and stores new dispatch pacing values.
func (s *Session) UpdateSettings(ratePerHour, pauseSeconds int) error {
	return s.settings.Update(ratePerHour, pauseSeconds)
}

// Settings returns the current dispatch pacing values.
func (s *Session) Settings() settings.Settings {
	return s.settings.Get()
}

// StartCampaign dispatches the session's campaign and hands the reconciler
// the job to observe.
func (s *Session) StartCampaign() (*campaign.Job, error) {
	job, err := s.dispatcher.Start(s.ctx, s.binder, s.tmpl, s.source, s.settings.Get())
	if err != nil {
		return nil, err
	}
	s.Observe()
	return job, nil
}

// Job returns the tracked campaign job, nil when none was dispatched.
func (s *Session) Job() *campaign.Job {
	return s.dispatcher.Job()
}

// Observe starts the reconciler (idempotent) and tries to attach the push
// channel. A failed push attach is logged and tolerated: the pull channel
// alone keeps the view current.
func (s *Session) Observe() {
	s.reconciler.Start(s.ctx)
	s.forward.Do(func() {
		go s.forwardJobUpdates()
	})
	if err := s.reconciler.AttachStream(); err != nil && !apperr.IsConflict(err) {
		s.logger.Warn("push channel unavailable, relying on pull only", "error", err)
	}
}

// View returns the reconciled analytics view.
func (s *Session) View() analytics.View {
	return s.reconciler.View()
}

// forwardJobUpdates drives the dispatcher's state machine from job status
// records arriving on the push channel.
func (s *Session) forwardJobUpdates() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case record := <-s.reconciler.JobUpdates():
			s.dispatcher.ApplyStatus(record)
		}
	}
}

// Close tears the session down. In-flight requests are cancelled and their
// results discarded.
func (s *Session) Close() {
	s.cancel()
	s.reconciler.Stop()
	s.logger.Info("session closed")
}
