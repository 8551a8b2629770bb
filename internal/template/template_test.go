package template

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	"github.com/meghana-0211/email-automation/internal/api"
	"github.com/meghana-0211/email-automation/internal/datasource"
)

func testBinder() *Binder {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewBinder("{", "}", logger)
}

func TestInsertFieldAppends(t *testing.T) {
	b := testBinder()
	tmpl := &Template{Text: "Hello"}

	b.InsertField(tmpl, "Name")
	if tmpl.Text != "Hello {Name}" {
		t.Errorf("expected %q, got %q", "Hello {Name}", tmpl.Text)
	}

	b.InsertField(tmpl, "Company")
	if tmpl.Text != "Hello {Name} {Company}" {
		t.Errorf("expected appended token, got %q", tmpl.Text)
	}
}

func TestReferenced(t *testing.T) {
	b := testBinder()
	tmpl := &Template{Text: "Hi {Name}, {Name} from {Company}!"}

	got := b.Referenced(tmpl)
	want := []string{"Name", "Company"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestReferencedNone(t *testing.T) {
	b := testBinder()
	if got := b.Referenced(&Template{Text: "no tokens here"}); len(got) != 0 {
		t.Errorf("expected no fields, got %v", got)
	}
}

func TestMissingFieldsIsPure(t *testing.T) {
	b := testBinder()
	tmpl := &Template{Text: "Hi {Name} from {Company}"}
	ds := &datasource.DataSource{Columns: []string{"Email", "Name"}}

	missing := b.MissingFields(tmpl, ds)
	if !reflect.DeepEqual(missing, []string{"Company"}) {
		t.Errorf("expected [Company], got %v", missing)
	}
	if tmpl.Text != "Hi {Name} from {Company}" {
		t.Errorf("MissingFields must not mutate the template, got %q", tmpl.Text)
	}

	if missing := b.MissingFields(tmpl, &datasource.DataSource{Columns: []string{"Email", "Name", "Company"}}); len(missing) != 0 {
		t.Errorf("expected no missing fields, got %v", missing)
	}
}

func TestRender(t *testing.T) {
	b := testBinder()
	tmpl := &Template{Text: "Hello {Name}, welcome to {Company}."}
	row := map[string]string{"Name": "Alice", "Company": "Acme"}

	if got := b.Render(tmpl, row); got != "Hello Alice, welcome to Acme." {
		t.Errorf("unexpected render: %q", got)
	}
}

func TestRenderUnresolvedTokenIsEmpty(t *testing.T) {
	b := testBinder()
	tmpl := &Template{Text: "Hello {Name}{Missing}!"}

	if got := b.Render(tmpl, map[string]string{"Name": "Bob"}); got != "Hello Bob!" {
		t.Errorf("expected unresolved token to render empty, got %q", got)
	}
}

func TestRenderSubstitutesVerbatim(t *testing.T) {
	b := testBinder()
	tmpl := &Template{Text: "{Value}"}

	// values are inserted as-is, including marker-looking content
	if got := b.Render(tmpl, map[string]string{"Value": "<b>{x}</b>"}); got != "<b>{x}</b>" {
		t.Errorf("expected verbatim substitution, got %q", got)
	}
}

func TestCustomMarkers(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	b := NewBinder("[[", "]]", logger)
	tmpl := &Template{Text: "Hi [[Name]], {Name} stays literal"}

	if got := b.Render(tmpl, map[string]string{"Name": "Eve"}); got != "Hi Eve, {Name} stays literal" {
		t.Errorf("unexpected render with custom markers: %q", got)
	}
}

func TestSave(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/templates" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req api.Template
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		req.ID = "tpl-1"
		json.NewEncoder(w).Encode(req)
	}))
	defer srv.Close()

	b := testBinder()
	tmpl := &Template{Name: "welcome", Subject: "Hi", Text: "Hello {Name}"}
	if err := b.Save(context.Background(), api.NewClient(srv.URL, "", 0), tmpl); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	if tmpl.ID != "tpl-1" {
		t.Errorf("expected assigned ID tpl-1, got %q", tmpl.ID)
	}
}
