package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meghana-0211/email-automation/internal/datasource"
	"github.com/meghana-0211/email-automation/internal/template"
)

var (
	tmplText    string
	tmplFile    string
	tmplCSV     string
	tmplRow     int
	tmplName    string
	tmplSubject string
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Template commands",
}

var templateRenderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the template against an ingested recipient row",
	RunE:  runTemplateRender,
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates saved on the backend",
	RunE:  runTemplateList,
}

var templateSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save the template to the backend",
	RunE:  runTemplateSave,
}

func init() {
	for _, cmd := range []*cobra.Command{templateRenderCmd, templateSaveCmd} {
		cmd.Flags().StringVar(&tmplText, "text", "", "template text")
		cmd.Flags().StringVar(&tmplFile, "file", "", "read template text from file")
	}
	templateRenderCmd.Flags().StringVar(&tmplCSV, "csv", "", "CSV file with recipient data")
	templateRenderCmd.Flags().IntVar(&tmplRow, "row", 0, "recipient row to render")
	templateSaveCmd.Flags().StringVar(&tmplName, "name", "campaign", "template name")
	templateSaveCmd.Flags().StringVar(&tmplSubject, "subject", "", "template subject")

	templateCmd.AddCommand(templateRenderCmd, templateListCmd, templateSaveCmd)
}

func templateText() (string, error) {
	if tmplText != "" {
		return tmplText, nil
	}
	if tmplFile != "" {
		content, err := os.ReadFile(tmplFile)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", tmplFile, err)
		}
		return string(content), nil
	}
	return "", fmt.Errorf("either --text or --file is required")
}

// runTemplateRender is fully local: it parses the CSV and renders without
// touching the backend.
func runTemplateRender(cmd *cobra.Command, args []string) error {
	text, err := templateText()
	if err != nil {
		return err
	}
	if tmplCSV == "" {
		return fmt.Errorf("--csv is required")
	}
	content, err := os.ReadFile(tmplCSV)
	if err != nil {
		return fmt.Errorf("read %s: %w", tmplCSV, err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ds, err := datasource.ParseCSV(content)
	if err != nil {
		return err
	}
	if tmplRow < 0 || tmplRow >= ds.Len() {
		return fmt.Errorf("no recipient row %d (source has %d rows)", tmplRow, ds.Len())
	}

	binder := template.NewBinder(cfg.Template.OpenMarker, cfg.Template.CloseMarker, setupLogger(cfg.Logging))
	tmpl := &template.Template{Text: text}
	if missing := binder.MissingFields(tmpl, ds); len(missing) > 0 {
		fmt.Fprintf(os.Stderr, "warning: unknown fields: %v\n", missing)
	}

	fmt.Println(binder.Render(tmpl, ds.Rows[tmplRow]))
	return nil
}

func runTemplateList(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	list, err := s.ListTemplates()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no templates")
		return nil
	}
	for _, t := range list {
		fmt.Printf("%s\t%s\t%q\n", t.ID, t.Name, t.Subject)
	}
	return nil
}

func runTemplateSave(cmd *cobra.Command, args []string) error {
	text, err := templateText()
	if err != nil {
		return err
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	s.SetTemplate(tmplName, tmplSubject, text)
	tmpl, err := s.SaveTemplate()
	if err != nil {
		return err
	}
	fmt.Printf("saved template %s as %s\n", tmpl.Name, tmpl.ID)
	return nil
}
