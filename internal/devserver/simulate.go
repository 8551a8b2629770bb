package devserver

import (
	"time"

	"golang.org/x/net/websocket"

	"github.com/meghana-0211/email-automation/internal/api"
)

// handleWS registers a push channel subscriber and holds the connection
// until the peer closes it.
func (s *Server) handleWS(conn *websocket.Conn) {
	if s.cfg.APIKey != "" && conn.Request().URL.Query().Get("api_key") != s.cfg.APIKey {
		conn.Close()
		return
	}

	s.connsMu.Lock()
	s.conns[conn] = true
	s.connsMu.Unlock()
	s.logger.Info("push subscriber connected", "remote", conn.Request().RemoteAddr)

	defer func() {
		s.connsMu.Lock()
		delete(s.conns, conn)
		s.connsMu.Unlock()
		conn.Close()
	}()

	var discard api.Event
	for websocket.JSON.Receive(conn, &discard) == nil {
	}
}

// broadcast sends one frame to every subscriber, dropping dead connections.
func (s *Server) broadcast(ev api.Event) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for conn := range s.conns {
		if err := websocket.JSON.Send(conn, ev); err != nil {
			delete(s.conns, conn)
			conn.Close()
		}
	}
}

func (s *Server) closeConns() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for conn := range s.conns {
		conn.Close()
		delete(s.conns, conn)
	}
}

// simulate walks a job through the send lifecycle, recording hourly buckets
// and emitting push frames as each recipient is processed. Every fifth
// recipient fails so failure paths stay visible.
func (s *Server) simulate(jobID string, recipients []api.JobRecipient) {
	s.setJobStatus(jobID, "running")
	s.broadcastJob(jobID)

	for i, rcpt := range recipients {
		time.Sleep(s.cfg.EmitInterval)

		delivered := (i+1)%5 != 0
		status, details := "delivered", "accepted by recipient server"
		if !delivered {
			status, details = "failed", "mailbox unavailable"
		}

		s.mu.Lock()
		job, ok := s.jobs[jobID]
		if !ok {
			s.mu.Unlock()
			return
		}
		job.Sent++
		if delivered {
			job.Delivered++
			s.totals.Delivered++
		} else {
			job.Failed++
			s.totals.Failed++
		}
		s.totals.Total++
		s.totals.Pending = s.totals.Total - s.totals.Delivered - s.totals.Failed

		hour := time.Now().Truncate(time.Hour).Format(time.RFC3339)
		bucket, ok := s.buckets[hour]
		if !ok {
			bucket = &api.HourlyBucket{Hour: hour}
			s.buckets[hour] = bucket
		}
		bucket.Sent++
		if delivered {
			bucket.Delivered++
		} else {
			bucket.Failed++
		}
		totals := s.totals
		s.mu.Unlock()

		s.broadcast(api.Event{Type: api.EventActivity, Activity: &api.WireActivity{
			Time:    time.Now().Format(time.TimeOnly),
			Email:   rcpt.Email,
			Status:  status,
			Details: details,
		}})
		s.broadcast(api.Event{Type: api.EventMetrics, Metrics: &totals})
	}

	s.setJobStatus(jobID, "completed")
	s.broadcastJob(jobID)
	s.logger.Info("job simulation finished", "job_id", jobID, "recipients", len(recipients))
}

func (s *Server) setJobStatus(jobID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[jobID]; ok {
		job.Status = status
	}
}

func (s *Server) broadcastJob(jobID string) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	var record api.JobStatus
	if ok {
		record = *job
	}
	s.mu.Unlock()
	if ok {
		s.broadcast(api.Event{Type: api.EventJobStatus, Job: &record})
	}
}
