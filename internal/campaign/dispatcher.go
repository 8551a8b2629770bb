// Package campaign submits send jobs to the backend and tracks the one
// in-flight job's status.
package campaign

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/meghana-0211/email-automation/internal/api"
	"github.com/meghana-0211/email-automation/internal/apperr"
	"github.com/meghana-0211/email-automation/internal/datasource"
	"github.com/meghana-0211/email-automation/internal/metrics"
	"github.com/meghana-0211/email-automation/internal/settings"
	"github.com/meghana-0211/email-automation/internal/template"
)

// Status is the coarse lifecycle state of a campaign job.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is the single tracked unit of work for one outbound send request.
type Job struct {
	ID          string
	SubmittedAt time.Time
	Status      Status
	RawStatus   string // last status string as reported by the backend
}

// Dispatcher combines the data source, template, and settings into job
// submissions. At most one non-terminal job exists per session.
type Dispatcher struct {
	client  *api.Client
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu  sync.Mutex
	job *Job
}

// NewDispatcher creates a campaign dispatcher.
func NewDispatcher(client *api.Client, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{client: client, logger: logger, metrics: m}
}

// Start validates the session state and submits a campaign job. Preconditions
// are checked in order; the first failure wins and no job is created on any
// failure, including transport errors.
func (d *Dispatcher) Start(ctx context.Context, binder *template.Binder, tmpl *template.Template, ds *datasource.DataSource, st settings.Settings) (*Job, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if strings.TrimSpace(tmpl.Text) == "" {
		d.metrics.DispatchesTotal.WithLabelValues("invalid").Inc()
		return nil, apperr.Validationf("template required")
	}
	if ds.Empty() {
		d.metrics.DispatchesTotal.WithLabelValues("invalid").Inc()
		return nil, apperr.Validationf("recipients required")
	}
	if missing := binder.MissingFields(tmpl, ds); len(missing) > 0 {
		d.metrics.DispatchesTotal.WithLabelValues("invalid").Inc()
		return nil, apperr.Validationf("unknown fields: %s", strings.Join(missing, ", "))
	}
	if d.job != nil && !d.job.Status.Terminal() {
		d.metrics.DispatchesTotal.WithLabelValues("conflict").Inc()
		return nil, apperr.Conflictf("campaign already running")
	}

	if tmpl.ID == "" {
		if err := binder.Save(ctx, d.client, tmpl); err != nil {
			d.metrics.DispatchesTotal.WithLabelValues("error").Inc()
			return nil, err
		}
	}

	emailCol := ds.EmailColumn()
	recipients := make([]api.JobRecipient, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		data := make(map[string]string, len(row))
		for k, v := range row {
			data[k] = v
		}
		recipients = append(recipients, api.JobRecipient{Email: row[emailCol], Data: data})
	}

	resp, err := d.client.CreateJob(ctx, &api.JobRequest{
		TemplateID:   tmpl.ID,
		Recipients:   recipients,
		ThrottleRate: st.RatePerHour,
		PauseSeconds: st.PauseSeconds,
	})
	if err != nil {
		d.metrics.DispatchesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	d.job = &Job{
		ID:          resp.JobID,
		SubmittedAt: time.Now(),
		Status:      StatusSubmitted,
		RawStatus:   string(StatusSubmitted),
	}
	d.logger.Info("campaign submitted", "job_id", d.job.ID, "recipients", len(recipients), "rate_per_hour", st.RatePerHour)
	d.metrics.DispatchesTotal.WithLabelValues("ok").Inc()

	job := *d.job
	return &job, nil
}

// Job returns a copy of the tracked job, or nil when none has been created.
func (d *Dispatcher) Job() *Job {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.job == nil {
		return nil
	}
	job := *d.job
	return &job
}

// ApplyStatus consumes a backend job status record. Updates for unknown job
// IDs are ignored; terminal states absorb further transitions.
func (d *Dispatcher) ApplyStatus(record *api.JobStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.job == nil || record == nil || record.ID != d.job.ID {
		return
	}
	if d.job.Status.Terminal() {
		return
	}

	next := mapStatus(record.Status)
	if next == d.job.Status && record.Status == d.job.RawStatus {
		return
	}
	d.job.RawStatus = record.Status
	d.job.Status = next
	d.logger.Info("job status changed", "job_id", d.job.ID, "status", next, "raw", record.Status)
}

// mapStatus folds backend status strings into the client's state machine.
// Anything non-terminal beyond the initial "submitted" counts as running.
func mapStatus(raw string) Status {
	switch strings.ToLower(raw) {
	case "submitted", "queued", "pending":
		return StatusSubmitted
	case "completed", "done", "finished":
		return StatusCompleted
	case "failed", "error", "cancelled":
		return StatusFailed
	default:
		return StatusRunning
	}
}
