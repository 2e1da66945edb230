package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/maxaizer/tender-monitor/internal/entities"
	"github.com/spf13/cobra"
)

var (
	statsRuns    int
	statsProfile string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show stored tender statistics and recent scan runs",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsRuns, "runs", 10, "Number of recent scan runs to show")
	statsCmd.Flags().StringVarP(&statsProfile, "profile", "p", "", "Also show the recent digests of this profile")
	rootCmd.AddCommand(statsCmd)
}

func runStats(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	stats, err := a.dedup.Statistics(ctx)
	if err != nil {
		return err
	}
	if err = printStatistics(os.Stdout, stats); err != nil {
		return err
	}

	if statsRuns > 0 {
		runs, err := a.scanRuns.Recent(ctx, statsRuns)
		if err != nil {
			return err
		}
		if err = printScanRuns(os.Stdout, runs); err != nil {
			return err
		}
	}

	if statsProfile == "" {
		return nil
	}
	logs, err := a.notifications.GetByProfile(ctx, statsProfile, statsRuns)
	if err != nil {
		return err
	}
	return printNotificationLogs(os.Stdout, logs)
}

func printNotificationLogs(out io.Writer, logs []entities.NotificationLog) error {
	fmt.Fprintln(out, "\nRecent digests:")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, entry := range logs {
		status := "sent"
		if !entry.Success {
			status = "failed: " + entry.Error
		}
		fmt.Fprintf(w, "  %s\t%s\t%d tenders\t%d recipients\t%s\n", entry.SentAt.Format("2006-01-02 15:04"),
			entry.Channel, len(entry.TenderIDs), len(entry.Recipients), status)
	}
	return w.Flush()
}

func printStatistics(out io.Writer, stats entities.TenderStatistics) error {
	fmt.Fprintf(out, "Tenders: %d (notified %d, pending %d), average relevance %.2f\n",
		stats.Total, stats.Notified, stats.PendingNotifications, stats.AverageRelevanceScore)

	sources := make([]entities.Source, 0, len(stats.BySource))
	for source := range stats.BySource {
		sources = append(sources, source)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, source := range sources {
		fmt.Fprintf(w, "  %s\t%d\n", source, stats.BySource[source])
	}
	return w.Flush()
}

func printScanRuns(out io.Writer, runs []entities.ScanRun) error {
	fmt.Fprintln(out, "\nRecent scan runs:")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, run := range runs {
		duration := "-"
		if run.FinishedAt != nil {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%d\t%s\t%s\n", run.StartedAt.Format("2006-01-02 15:04"),
			run.Profile, run.Source, run.Status, run.ResultsCount, duration, run.Error)
	}
	return w.Flush()
}
