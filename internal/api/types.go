package api

// ErrorResponse represents an API error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Template represents a message template record.
type Template struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Content string `json:"content"`
	Subject string `json:"subject"`
}

// CSVUploadResponse represents the backend's view of an uploaded CSV.
type CSVUploadResponse struct {
	Columns []string            `json:"columns"`
	Preview []map[string]string `json:"preview"`
}

// SheetConnectRequest represents an external spreadsheet connection request.
type SheetConnectRequest struct {
	Type   string `json:"type"` // always "google_sheet"
	Source string `json:"source"`
}

// SheetConnectResponse represents a connected spreadsheet.
type SheetConnectResponse struct {
	Columns         []string            `json:"columns"`
	Preview         []map[string]string `json:"preview"`
	TotalRecipients int                 `json:"total_recipients"`
}

// JobRecipient is one recipient row in a job request.
type JobRecipient struct {
	Email string            `json:"email"`
	Data  map[string]string `json:"data"`
}

// JobRequest represents a campaign job submission.
type JobRequest struct {
	TemplateID   string         `json:"template_id"`
	Recipients   []JobRecipient `json:"recipients"`
	ThrottleRate int            `json:"throttle_rate"`
	PauseSeconds int            `json:"pause_seconds,omitempty"`
}

// JobResponse represents a created job.
type JobResponse struct {
	JobID string `json:"jobId"`
}

// JobStatus represents a job status record.
type JobStatus struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Total     int    `json:"total"`
	Sent      int    `json:"sent"`
	Delivered int    `json:"delivered"`
	Failed    int    `json:"failed"`
	Error     string `json:"error,omitempty"`
}

// HourlyBucket is one reporting-period aggregate from the hourly analytics
// endpoint. Values are contributions for that period, not running totals.
type HourlyBucket struct {
	Hour      string `json:"hour"`
	Sent      int    `json:"sent"`
	Delivered int    `json:"delivered"`
	Opened    int    `json:"opened"`
	Failed    int    `json:"failed"`
}

// Push channel frame types.
const (
	EventMetrics   = "metrics"
	EventActivity  = "activity"
	EventJobStatus = "job_status"
)

// WireMetrics is the full-state metrics payload of a push frame. Scheduled
// and Opened are carried on the wire but not part of the reconciled view.
type WireMetrics struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Scheduled int `json:"scheduled"`
	Delivered int `json:"delivered"`
	Opened    int `json:"opened"`
	Failed    int `json:"failed"`
}

// WireActivity is the incremental activity payload of a push frame.
type WireActivity struct {
	Time    string `json:"time"`
	Email   string `json:"email"`
	Status  string `json:"status"` // delivered, failed, pending
	Details string `json:"details"`
}

// Event is one push channel frame.
type Event struct {
	Type     string        `json:"type"`
	Metrics  *WireMetrics  `json:"metrics,omitempty"`
	Activity *WireActivity `json:"activity,omitempty"`
	Job      *JobStatus    `json:"job,omitempty"`
}
