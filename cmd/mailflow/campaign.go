package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/meghana-0211/email-automation/internal/session"
)

var (
	campaignCSV    string
	campaignSheet  string
	campaignRate   int
	campaignPause  int
	campaignFollow bool
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Campaign commands",
}

var campaignStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Dispatch a campaign and observe its progress",
	RunE:  runCampaignStart,
}

func init() {
	campaignStartCmd.Flags().StringVar(&campaignCSV, "csv", "", "CSV file with recipients")
	campaignStartCmd.Flags().StringVar(&campaignSheet, "sheet", "", "spreadsheet URL with recipients")
	campaignStartCmd.Flags().StringVar(&tmplText, "text", "", "template text")
	campaignStartCmd.Flags().StringVar(&tmplFile, "file", "", "read template text from file")
	campaignStartCmd.Flags().StringVar(&tmplName, "name", "campaign", "template name")
	campaignStartCmd.Flags().StringVar(&tmplSubject, "subject", "", "template subject")
	campaignStartCmd.Flags().IntVar(&campaignRate, "rate", 0, "emails per hour (0 = configured default)")
	campaignStartCmd.Flags().IntVar(&campaignPause, "pause", -1, "pause between sends in seconds (-1 = configured default)")
	campaignStartCmd.Flags().BoolVar(&campaignFollow, "follow", false, "keep watching analytics until the job finishes")

	campaignCmd.AddCommand(campaignStartCmd)
}

func runCampaignStart(cmd *cobra.Command, args []string) error {
	text, err := templateText()
	if err != nil {
		return err
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	switch {
	case campaignCSV != "":
		content, err := os.ReadFile(campaignCSV)
		if err != nil {
			return fmt.Errorf("read %s: %w", campaignCSV, err)
		}
		if _, err := s.IngestFile(campaignCSV, content); err != nil {
			return err
		}
	case campaignSheet != "":
		if _, err := s.IngestSheet(campaignSheet); err != nil {
			return err
		}
	default:
		return fmt.Errorf("either --csv or --sheet is required")
	}

	s.SetTemplate(tmplName, tmplSubject, text)

	if campaignRate > 0 || campaignPause >= 0 {
		cur := s.Settings()
		rate, pause := cur.RatePerHour, cur.PauseSeconds
		if campaignRate > 0 {
			rate = campaignRate
		}
		if campaignPause >= 0 {
			pause = campaignPause
		}
		if err := s.UpdateSettings(rate, pause); err != nil {
			return err
		}
	}

	job, err := s.StartCampaign()
	if err != nil {
		return err
	}
	fmt.Printf("campaign submitted: job %s (%d recipients)\n", job.ID, s.Source().Len())

	if !campaignFollow {
		return nil
	}
	return followJob(s)
}

// followJob prints the analytics view until the job reaches a terminal
// state or the user interrupts.
func followJob(s *session.Session) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sig:
			fmt.Println("interrupted")
			return nil
		case <-ticker.C:
			printView(s)
			if job := s.Job(); job != nil && job.Status.Terminal() {
				fmt.Printf("job %s %s\n", job.ID, job.Status)
				return nil
			}
		}
	}
}

func printView(s *session.Session) {
	v := s.View()
	fmt.Printf("[%s] total=%d pending=%d delivered=%d failed=%d (source=%s, stream=%v)\n",
		time.Now().Format(time.TimeOnly),
		v.Snapshot.Total, v.Snapshot.Pending, v.Snapshot.Delivered, v.Snapshot.Failed,
		v.Source, v.StreamConnected)
	for _, a := range v.Activity {
		fmt.Printf("  %s  %-30s %-10s %s\n", a.Time, a.Email, a.Status, a.Details)
	}
}
