// Package api implements the HTTP and websocket client for the campaign
// backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/meghana-0211/email-automation/internal/apperr"
)

// Client is a campaign backend API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new backend API client. timeout bounds every request;
// zero means the 30s default.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request performs a JSON HTTP request against the backend.
func (c *Client) request(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req, method+" "+path, result)
}

// do sends a prepared request and decodes the JSON response into result.
func (c *Client) do(req *http.Request, op string, result any) error {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &apperr.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if resp.StatusCode == http.StatusConflict {
			return apperr.Conflictf("%s: %s", op, errResp.Error)
		}
		msg := errResp.Error
		if msg == "" && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			msg = "invalid or missing API key"
		}
		return &apperr.TransportError{Op: op, StatusCode: resp.StatusCode, Msg: msg}
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return &apperr.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}

	return nil
}

// CreateTemplate persists a template and returns the created record.
func (c *Client) CreateTemplate(ctx context.Context, tmpl *Template) (*Template, error) {
	var resp Template
	if err := c.request(ctx, http.MethodPost, "/templates", tmpl, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListTemplates returns all template records.
func (c *Client) ListTemplates(ctx context.Context) ([]Template, error) {
	var resp []Template
	if err := c.request(ctx, http.MethodGet, "/templates", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// UploadCSV uploads raw CSV content as a multipart file and returns the
// backend's parsed view of it.
func (c *Client) UploadCSV(ctx context.Context, filename string, content []byte) (*CSVUploadResponse, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload/csv", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var resp CSVUploadResponse
	if err := c.do(req, "POST /upload/csv", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConnectSheet connects an external spreadsheet by URL.
func (c *Client) ConnectSheet(ctx context.Context, sheetURL string) (*SheetConnectResponse, error) {
	reqBody := SheetConnectRequest{Type: "google_sheet", Source: sheetURL}
	var resp SheetConnectResponse
	if err := c.request(ctx, http.MethodPost, "/google-sheets/connect", reqBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateJob submits a campaign job.
func (c *Client) CreateJob(ctx context.Context, job *JobRequest) (*JobResponse, error) {
	var resp JobResponse
	if err := c.request(ctx, http.MethodPost, "/jobs", job, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobStatus fetches the status record for a job.
func (c *Client) JobStatus(ctx context.Context, id string) (*JobStatus, error) {
	var resp JobStatus
	if err := c.request(ctx, http.MethodGet, "/jobs/"+id+"/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HourlyAnalytics fetches per-period buckets for the last hours hours.
func (c *Client) HourlyAnalytics(ctx context.Context, hours int) ([]HourlyBucket, error) {
	var resp []HourlyBucket
	path := fmt.Sprintf("/analytics/hourly?hours=%d", hours)
	if err := c.request(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}
