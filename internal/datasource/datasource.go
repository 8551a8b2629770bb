// Package datasource normalizes recipient data from uploaded files and
// linked spreadsheets into one canonical table shape.
package datasource

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/meghana-0211/email-automation/internal/api"
	"github.com/meghana-0211/email-automation/internal/apperr"
	"github.com/meghana-0211/email-automation/internal/metrics"
)

// DataSource is a normalized recipient table. Instances are never mutated
// after creation; ingestion always builds a replacement.
type DataSource struct {
	Columns []string
	Rows    []map[string]string
}

// Empty reports whether the source has no recipient rows.
func (d *DataSource) Empty() bool {
	return d == nil || len(d.Rows) == 0
}

// Len returns the number of recipient rows.
func (d *DataSource) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// HasColumn reports whether name is one of the source columns.
func (d *DataSource) HasColumn(name string) bool {
	if d == nil {
		return false
	}
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// EmailColumn returns the column holding recipient addresses: the first
// column named "email" (case-insensitive), else the first column.
func (d *DataSource) EmailColumn() string {
	if d == nil || len(d.Columns) == 0 {
		return ""
	}
	for _, c := range d.Columns {
		if strings.EqualFold(c, "email") {
			return c
		}
	}
	return d.Columns[0]
}

// Adapter ingests tabular data from files and remote spreadsheets. A nil
// client keeps ingestion fully local.
type Adapter struct {
	client  *api.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewAdapter creates a data source adapter.
func NewAdapter(client *api.Client, logger *slog.Logger, m *metrics.Metrics) *Adapter {
	return &Adapter{client: client, logger: logger, metrics: m}
}

// IngestFile parses CSV content into a DataSource. When a backend client is
// attached the file is also registered with the backend; a failed upload
// surfaces unchanged and yields no DataSource.
func (a *Adapter) IngestFile(ctx context.Context, filename string, content []byte) (*DataSource, error) {
	ds, err := ParseCSV(content)
	if err != nil {
		a.metrics.IngestsTotal.WithLabelValues("file", "error").Inc()
		return nil, err
	}

	if a.client != nil {
		if _, err := a.client.UploadCSV(ctx, filename, content); err != nil {
			a.metrics.IngestsTotal.WithLabelValues("file", "error").Inc()
			return nil, err
		}
	}

	a.logger.Info("ingested file", "filename", filename, "columns", len(ds.Columns), "rows", len(ds.Rows))
	a.metrics.IngestsTotal.WithLabelValues("file", "ok").Inc()
	return ds, nil
}

// IngestRemote connects an external spreadsheet by locator and normalizes
// the backend's preview into a DataSource.
func (a *Adapter) IngestRemote(ctx context.Context, locator string) (*DataSource, error) {
	if err := validateLocator(locator); err != nil {
		a.metrics.IngestsTotal.WithLabelValues("remote", "error").Inc()
		return nil, err
	}

	resp, err := a.client.ConnectSheet(ctx, locator)
	if err != nil {
		a.metrics.IngestsTotal.WithLabelValues("remote", "error").Inc()
		return nil, apperr.NewSourceUnavailable(locator, err)
	}

	ds := &DataSource{
		Columns: append([]string(nil), resp.Columns...),
		Rows:    make([]map[string]string, 0, len(resp.Preview)),
	}
	for _, row := range resp.Preview {
		normalized := make(map[string]string, len(ds.Columns))
		for _, col := range ds.Columns {
			normalized[col] = row[col]
		}
		ds.Rows = append(ds.Rows, normalized)
	}

	a.logger.Info("connected remote source",
		"locator", locator,
		"columns", len(ds.Columns),
		"rows", len(ds.Rows),
		"total_recipients", resp.TotalRecipients)
	a.metrics.IngestsTotal.WithLabelValues("remote", "ok").Inc()
	return ds, nil
}

// validateLocator checks that locator is an absolute http(s) URL.
func validateLocator(locator string) error {
	if strings.TrimSpace(locator) == "" {
		return apperr.Validationf("sheet URL required")
	}
	u, err := url.Parse(locator)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return apperr.Validationf("malformed sheet URL: %q", locator)
	}
	return nil
}

// ParseCSV decodes CSV content into a DataSource. The first record is the
// header; every row gets exactly the header's keys, with short rows padded
// by empty values.
func ParseCSV(content []byte) (*DataSource, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, apperr.Parsef("file is empty")
	}
	if err != nil {
		return nil, apperr.Parsef("invalid header row: %v", err)
	}

	columns := make([]string, 0, len(header))
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			continue
		}
		if seen[name] {
			return nil, apperr.Parsef("duplicate column %q", name)
		}
		seen[name] = true
		columns = append(columns, name)
	}
	if len(columns) == 0 {
		return nil, apperr.Parsef("header row is empty")
	}

	ds := &DataSource{Columns: columns}
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperr.Parsef("line %d: %v", line, err)
		}
		if isBlankRecord(record) {
			continue
		}
		if len(record) > len(columns) {
			return nil, apperr.Parsef("line %d: %d values for %d columns", line, len(record), len(columns))
		}
		row := make(map[string]string, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col] = strings.TrimSpace(record[i])
			} else {
				row[col] = ""
			}
		}
		ds.Rows = append(ds.Rows, row)
	}

	return ds, nil
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// String describes the source for logs and CLI output.
func (d *DataSource) String() string {
	if d == nil {
		return "no data source"
	}
	return fmt.Sprintf("%d columns, %d rows", len(d.Columns), len(d.Rows))
}
