// Package analytics merges the periodic report and the push event stream
// into one consistent metrics and activity view.
package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/meghana-0211/email-automation/internal/api"
	"github.com/meghana-0211/email-automation/internal/apperr"
	"github.com/meghana-0211/email-automation/internal/metrics"
)

// Snapshot is the reconciled counters view. Derived, never partially
// updated: every write replaces the whole value.
type Snapshot struct {
	Total     int
	Pending   int
	Delivered int
	Failed    int
}

// Source tags which channel produced the displayed snapshot.
type Source string

const (
	SourceNone Source = "none"
	SourcePull Source = "pull"
	SourcePush Source = "push"
)

// Activity is one entry in the recent activity ring.
type Activity struct {
	Time    string
	Email   string
	Status  string
	Details string
}

// RingCapacity bounds the activity log to the most recent entries.
const RingCapacity = 10

// View is a consistent copy of the reconciled state.
type View struct {
	Snapshot        Snapshot
	Source          Source
	Activity        []Activity // most recent first
	UpdatedAt       time.Time
	StreamConnected bool
}

// Config holds reconciler settings.
type Config struct {
	PollInterval time.Duration
	WindowHours  int
}

type eventKind int

const (
	evPull eventKind = iota
	evPushMetrics
	evPushActivity
	evJobStatus
	evStreamUp
	evStreamDown
)

type event struct {
	kind     eventKind
	snapshot Snapshot
	activity Activity
	job      *api.JobStatus
}

// Reconciler keeps the metrics view current from two independently-timed
// channels. All updates are applied by a single loop goroutine, so no
// partial update is ever observable; across channels the most recently
// received update wins, because the channels share no clock.
type Reconciler struct {
	client  *api.Client
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	events chan event
	jobCh  chan *api.JobStatus

	mu              sync.Mutex
	snapshot        Snapshot
	source          Source
	ring            []Activity
	updatedAt       time.Time
	streamConnected bool

	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	wg      sync.WaitGroup
}

// New creates a reconciler. Start must be called before it observes anything.
func New(client *api.Client, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Reconciler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Second
	}
	if cfg.WindowHours <= 0 {
		cfg.WindowHours = 24
	}
	return &Reconciler{
		client:  client,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		events:  make(chan event, 64),
		jobCh:   make(chan *api.JobStatus, 16),
		source:  SourceNone,
	}
}

// Start launches the apply loop and the pull channel poller. Idempotent.
func (r *Reconciler) Start(ctx context.Context) {
	if r.started {
		return
	}
	r.started = true
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(2)
	go r.loop()
	go r.poll()
}

// Stop cancels all channels and waits for the loop to drain.
func (r *Reconciler) Stop() {
	if !r.started {
		return
	}
	r.cancel()
	r.wg.Wait()
}

// AttachStream dials the push channel and starts consuming it. When the
// stream later fails, the reconciler falls back to pull-only; reconnecting
// is the caller's decision, made by calling AttachStream again.
func (r *Reconciler) AttachStream() error {
	if !r.started {
		return apperr.Conflictf("reconciler not started")
	}
	r.mu.Lock()
	connected := r.streamConnected
	r.mu.Unlock()
	if connected {
		return apperr.Conflictf("push channel already connected")
	}

	stream, err := r.client.DialEvents(r.ctx)
	if err != nil {
		return err
	}

	r.metrics.StreamConnectsTotal.Inc()
	r.send(event{kind: evStreamUp})

	r.wg.Add(1)
	go r.consume(stream)
	return nil
}

// JobUpdates delivers job status records seen on the push channel, in
// arrival order. The campaign dispatcher is the intended consumer.
func (r *Reconciler) JobUpdates() <-chan *api.JobStatus {
	return r.jobCh
}

// View returns a copy of the reconciled state; readers never observe a
// half-applied update.
func (r *Reconciler) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := View{
		Snapshot:        r.snapshot,
		Source:          r.source,
		UpdatedAt:       r.updatedAt,
		StreamConnected: r.streamConnected,
	}
	v.Activity = append(v.Activity, r.ring...)
	return v
}

// loop applies events strictly in arrival order.
func (r *Reconciler) loop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case ev := <-r.events:
			r.apply(ev)
		}
	}
}

func (r *Reconciler) apply(ev event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.kind {
	case evPull:
		// each poll result is authoritative for that instant; replacing the
		// prior pull aggregate keeps overlapping windows from double-counting
		r.snapshot = ev.snapshot
		r.source = SourcePull
		r.updatedAt = time.Now()
		r.metrics.SnapshotSource.Set(metrics.SourceValuePull)
	case evPushMetrics:
		r.snapshot = ev.snapshot
		r.source = SourcePush
		r.updatedAt = time.Now()
		r.metrics.SnapshotSource.Set(metrics.SourceValuePush)
	case evPushActivity:
		r.ring = append([]Activity{ev.activity}, r.ring...)
		if len(r.ring) > RingCapacity {
			r.ring = r.ring[:RingCapacity]
		}
		r.updatedAt = time.Now()
	case evJobStatus:
		select {
		case r.jobCh <- ev.job:
		default:
			r.logger.Warn("job status channel full, dropping update", "job_id", ev.job.ID)
		}
	case evStreamUp:
		r.streamConnected = true
	case evStreamDown:
		r.streamConnected = false
	}
}

func (r *Reconciler) send(ev event) {
	select {
	case r.events <- ev:
	case <-r.ctx.Done():
	}
}

// poll fetches the hourly report on a fixed cadence. Polls are strictly
// sequential: the next interval starts only after the previous fetch
// resolves. A failed fetch is logged and skipped; prior state is retained.
func (r *Reconciler) poll() {
	defer r.wg.Done()
	for {
		buckets, err := r.client.HourlyAnalytics(r.ctx, r.cfg.WindowHours)
		if err != nil {
			if r.ctx.Err() != nil {
				return
			}
			r.metrics.PollFailuresTotal.Inc()
			r.logger.Warn("hourly report poll failed, keeping last snapshot", "error", err)
		} else {
			r.metrics.PollsTotal.Inc()
			r.send(event{kind: evPull, snapshot: reduceReport(buckets)})
		}

		select {
		case <-r.ctx.Done():
			return
		case <-time.After(r.cfg.PollInterval):
		}
	}
}

// consume reads push frames in arrival order until the stream fails. The
// stream is not reopened here: missed frames are gone (at-most-once), and
// the pull channel carries the view until a new connection is attached.
func (r *Reconciler) consume(stream *api.EventStream) {
	defer r.wg.Done()
	defer stream.Close()

	for {
		ev, err := stream.Next()
		if err != nil {
			if r.ctx.Err() == nil {
				r.logger.Warn("push channel closed", "error", err)
				r.metrics.StreamDisconnectsTotal.Inc()
			}
			r.send(event{kind: evStreamDown})
			return
		}

		switch ev.Type {
		case api.EventMetrics:
			if ev.Metrics == nil {
				continue
			}
			r.metrics.PushFramesTotal.WithLabelValues(api.EventMetrics).Inc()
			r.send(event{kind: evPushMetrics, snapshot: Snapshot{
				Total:     ev.Metrics.Total,
				Pending:   ev.Metrics.Pending,
				Delivered: ev.Metrics.Delivered,
				Failed:    ev.Metrics.Failed,
			}})
		case api.EventActivity:
			if ev.Activity == nil {
				continue
			}
			r.metrics.PushFramesTotal.WithLabelValues(api.EventActivity).Inc()
			r.metrics.ActivityEntriesTotal.Inc()
			r.send(event{kind: evPushActivity, activity: Activity{
				Time:    ev.Activity.Time,
				Email:   ev.Activity.Email,
				Status:  ev.Activity.Status,
				Details: ev.Activity.Details,
			}})
		case api.EventJobStatus:
			if ev.Job == nil {
				continue
			}
			r.metrics.PushFramesTotal.WithLabelValues(api.EventJobStatus).Inc()
			r.send(event{kind: evJobStatus, job: ev.Job})
		default:
			r.logger.Debug("ignoring unknown push frame", "type", ev.Type)
		}
	}
}

// reduceReport sums a poll cycle's buckets into one aggregate. Pending is
// defined as total minus delivered minus failed, floored at zero; the
// buckets themselves carry only contributions per period.
func reduceReport(buckets []api.HourlyBucket) Snapshot {
	var s Snapshot
	for _, b := range buckets {
		s.Total += b.Sent
		s.Delivered += b.Delivered
		s.Failed += b.Failed
	}
	s.Pending = s.Total - s.Delivered - s.Failed
	if s.Pending < 0 {
		s.Pending = 0
	}
	return s
}
