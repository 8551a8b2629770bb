// Package template owns the campaign message template and its field tokens.
package template

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/meghana-0211/email-automation/internal/api"
	"github.com/meghana-0211/email-automation/internal/datasource"
)

// Template is the session's message template. ID is set once the template
// has been persisted to the backend.
type Template struct {
	ID      string
	Name    string
	Subject string
	Text    string
}

// Binder edits templates and resolves their field tokens against a data
// source. Token syntax is open+field+close with no escaping; a literal
// marker character cannot appear in rendered output.
type Binder struct {
	open    string
	close   string
	pattern *regexp.Regexp
	logger  *slog.Logger
}

// NewBinder creates a binder with the given token markers. Empty markers
// fall back to { and }.
func NewBinder(open, close string, logger *slog.Logger) *Binder {
	if open == "" {
		open = "{"
	}
	if close == "" {
		close = "}"
	}
	pattern := regexp.MustCompile(
		regexp.QuoteMeta(open) + `([^` + regexp.QuoteMeta(close) + `]+)` + regexp.QuoteMeta(close))
	return &Binder{open: open, close: close, pattern: pattern, logger: logger}
}

// InsertField appends a token referencing field to the end of the template
// text. Always succeeds.
func (b *Binder) InsertField(t *Template, field string) {
	t.Text += " " + b.open + field + b.close
}

// SetText replaces the template text wholesale.
func (b *Binder) SetText(t *Template, text string) {
	t.Text = text
}

// Referenced returns the distinct fields referenced by the template text, in
// order of first appearance.
func (b *Binder) Referenced(t *Template) []string {
	var fields []string
	seen := make(map[string]bool)
	for _, m := range b.pattern.FindAllStringSubmatch(t.Text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			fields = append(fields, m[1])
		}
	}
	return fields
}

// MissingFields returns the referenced fields absent from the data source's
// columns. A pure read: neither the template nor the source is modified.
func (b *Binder) MissingFields(t *Template, ds *datasource.DataSource) []string {
	var missing []string
	for _, f := range b.Referenced(t) {
		if !ds.HasColumn(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// Render substitutes each token with the recipient's value for that field.
// Tokens referencing a column absent from the row render as an empty string.
func (b *Binder) Render(t *Template, row map[string]string) string {
	return b.pattern.ReplaceAllStringFunc(t.Text, func(match string) string {
		field := match[len(b.open) : len(match)-len(b.close)]
		return row[field]
	})
}

// Save persists the template to the backend and records the assigned ID.
func (b *Binder) Save(ctx context.Context, client *api.Client, t *Template) error {
	created, err := client.CreateTemplate(ctx, &api.Template{
		Name:    t.Name,
		Content: t.Text,
		Subject: t.Subject,
	})
	if err != nil {
		return err
	}
	t.ID = created.ID
	b.logger.Info("saved template", "id", t.ID, "name", t.Name)
	return nil
}

// List fetches all persisted templates from the backend.
func (b *Binder) List(ctx context.Context, client *api.Client) ([]api.Template, error) {
	return client.ListTemplates(ctx)
}
