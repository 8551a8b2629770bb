package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch campaign analytics (pull report + push stream) live",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	s.Observe()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var last time.Time
	for {
		select {
		case <-sig:
			fmt.Println("stopped")
			return nil
		case <-ticker.C:
			v := s.View()
			if v.UpdatedAt.Equal(last) {
				continue
			}
			last = v.UpdatedAt
			printView(s)
		}
	}
}
