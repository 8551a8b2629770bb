package datasource

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/meghana-0211/email-automation/internal/api"
	"github.com/meghana-0211/email-automation/internal/apperr"
	"github.com/meghana-0211/email-automation/internal/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestParseCSV(t *testing.T) {
	ds, err := ParseCSV([]byte("Email,Name,Company\na@x.com,Alice,Acme\nb@x.com,Bob,Bolt\n"))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	if len(ds.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(ds.Columns))
	}
	if ds.Columns[0] != "Email" || ds.Columns[1] != "Name" || ds.Columns[2] != "Company" {
		t.Errorf("unexpected columns %v", ds.Columns)
	}
	if len(ds.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(ds.Rows))
	}
	for i, row := range ds.Rows {
		if len(row) != len(ds.Columns) {
			t.Errorf("row %d: expected %d keys, got %d", i, len(ds.Columns), len(row))
		}
		for _, col := range ds.Columns {
			if _, ok := row[col]; !ok {
				t.Errorf("row %d: missing key %s", i, col)
			}
		}
	}
	if ds.Rows[0]["Name"] != "Alice" {
		t.Errorf("expected Alice, got %s", ds.Rows[0]["Name"])
	}
}

func TestParseCSVShortRowPadded(t *testing.T) {
	ds, err := ParseCSV([]byte("Email,Name\na@x.com\n"))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if ds.Rows[0]["Email"] != "a@x.com" {
		t.Errorf("expected a@x.com, got %s", ds.Rows[0]["Email"])
	}
	if v, ok := ds.Rows[0]["Name"]; !ok || v != "" {
		t.Errorf("expected padded empty Name, got %q (present=%v)", v, ok)
	}
}

func TestParseCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty file", ""},
		{"empty header", ",,\na@x.com\n"},
		{"duplicate column", "Email,Email\na@x.com,b@x.com\n"},
		{"long row", "Email,Name\na@x.com,Alice,extra\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV([]byte(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !apperr.IsParse(err) {
				t.Errorf("expected ParseError, got %T: %v", err, err)
			}
		})
	}
}

func TestParseCSVSkipsBlankLines(t *testing.T) {
	ds, err := ParseCSV([]byte("Email,Name\na@x.com,Alice\n\n\nb@x.com,Bob\n"))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if len(ds.Rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(ds.Rows))
	}
}

func TestIngestFileIdempotent(t *testing.T) {
	a := NewAdapter(nil, testLogger(), metrics.New())
	content := []byte("Email,Name\na@x.com,Alice\n")

	first, err := a.IngestFile(context.Background(), "r.csv", content)
	if err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}
	second, err := a.IngestFile(context.Background(), "r.csv", content)
	if err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}

	if first == second {
		t.Error("expected a fresh DataSource per ingestion")
	}
	if len(first.Rows) != len(second.Rows) || first.Rows[0]["Email"] != second.Rows[0]["Email"] {
		t.Error("re-ingesting the same content should yield the same table")
	}
}

func TestIngestFileUploadFailureYieldsNoSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(api.ErrorResponse{Error: "boom"})
	}))
	defer srv.Close()

	a := NewAdapter(api.NewClient(srv.URL, "", 0), testLogger(), metrics.New())
	ds, err := a.IngestFile(context.Background(), "r.csv", []byte("Email\na@x.com\n"))
	if err == nil {
		t.Fatal("expected upload error")
	}
	if !apperr.IsTransport(err) {
		t.Errorf("expected TransportError, got %T: %v", err, err)
	}
	if ds != nil {
		t.Error("failed ingestion must not produce a DataSource")
	}
}

func TestIngestRemote(t *testing.T) {
	router := chi.NewRouter()
	router.Post("/google-sheets/connect", func(w http.ResponseWriter, r *http.Request) {
		var req api.SheetConnectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Type != "google_sheet" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(api.SheetConnectResponse{
			Columns:         []string{"Email", "Name"},
			Preview:         []map[string]string{{"Email": "a@x.com"}},
			TotalRecipients: 1,
		})
	})
	srv := httptest.NewServer(router)
	defer srv.Close()

	a := NewAdapter(api.NewClient(srv.URL, "", 0), testLogger(), metrics.New())
	ds, err := a.IngestRemote(context.Background(), "https://sheets.example.com/d/abc")
	if err != nil {
		t.Fatalf("failed to ingest remote: %v", err)
	}

	if len(ds.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(ds.Columns))
	}
	// missing Name value is normalized to an empty string
	if v, ok := ds.Rows[0]["Name"]; !ok || v != "" {
		t.Errorf("expected normalized empty Name, got %q (present=%v)", v, ok)
	}
}

func TestIngestRemoteBadLocator(t *testing.T) {
	a := NewAdapter(nil, testLogger(), metrics.New())

	for _, locator := range []string{"", "   ", "not-a-url", "ftp://x.example/sheet"} {
		_, err := a.IngestRemote(context.Background(), locator)
		if err == nil {
			t.Fatalf("expected error for locator %q", locator)
		}
		if !apperr.IsValidation(err) {
			t.Errorf("locator %q: expected ValidationError, got %T: %v", locator, err, err)
		}
	}
}

func TestIngestRemoteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	srv.Close() // connection refused from here on

	a := NewAdapter(api.NewClient(srv.URL, "", 0), testLogger(), metrics.New())
	_, err := a.IngestRemote(context.Background(), "https://sheets.example.com/d/abc")
	if err == nil {
		t.Fatal("expected error")
	}
	if !apperr.IsSourceUnavailable(err) {
		t.Errorf("expected SourceUnavailableError, got %T: %v", err, err)
	}
}

func TestEmailColumn(t *testing.T) {
	ds := &DataSource{Columns: []string{"Name", "EMAIL"}}
	if got := ds.EmailColumn(); got != "EMAIL" {
		t.Errorf("expected EMAIL, got %s", got)
	}

	ds = &DataSource{Columns: []string{"Contact", "Name"}}
	if got := ds.EmailColumn(); got != "Contact" {
		t.Errorf("expected first column fallback, got %s", got)
	}
}
