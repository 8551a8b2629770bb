package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meghana-0211/email-automation/internal/datasource"
	"github.com/meghana-0211/email-automation/internal/session"
)

var ingestLocalOnly bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest recipient data",
}

var ingestCSVCmd = &cobra.Command{
	Use:   "csv <file>",
	Short: "Ingest a CSV file of recipients",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestCSV,
}

var ingestSheetCmd = &cobra.Command{
	Use:   "sheet <url>",
	Short: "Connect an external spreadsheet of recipients",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestSheet,
}

func init() {
	ingestCSVCmd.Flags().BoolVar(&ingestLocalOnly, "local", false, "parse locally without registering with the backend")
	ingestCmd.AddCommand(ingestCSVCmd, ingestSheetCmd)
}

func newSession() (*session.Session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return session.New(cfg, setupLogger(cfg.Logging)), nil
}

func runIngestCSV(cmd *cobra.Command, args []string) error {
	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	if ingestLocalOnly {
		ds, err := datasource.ParseCSV(content)
		if err != nil {
			return err
		}
		fmt.Printf("parsed %s: %s\n", args[0], ds)
		return nil
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ds, err := s.IngestFile(args[0], content)
	if err != nil {
		return err
	}
	fmt.Printf("ingested %s: %s\n", args[0], ds)
	return nil
}

func runIngestSheet(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ds, err := s.IngestSheet(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("connected %s: %s\n", args[0], ds)
	fmt.Printf("columns: %s\n", strings.Join(ds.Columns, ", "))
	return nil
}
