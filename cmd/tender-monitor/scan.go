package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maxaizer/tender-monitor/internal/services"
	"github.com/spf13/cobra"
)

var scanProfile string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan sources once for every active profile and send digests",
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&scanProfile, "profile", "p", "", "Scan only the named profile")
	rootCmd.AddCommand(scanCmd)
}

func runScan(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err = a.subscribeNotifiers(ctx); err != nil {
		return err
	}

	scanner, err := a.scanner()
	if err != nil {
		return fmt.Errorf("can't create scanner: %w", err)
	}

	if scanProfile != "" {
		report, err := scanner.ScanProfile(ctx, scanProfile)
		printProfileReport(os.Stdout, report)
		return err
	}

	report, err := scanner.ScanAll(ctx)
	for _, profile := range report.Profiles {
		printProfileReport(os.Stdout, profile)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Stored %d new tenders in %v\n", report.Stored(), report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	return nil
}

func printProfileReport(w io.Writer, report services.ProfileReport) {
	if report.Profile == "" {
		return
	}
	if report.Skipped {
		fmt.Fprintf(w, "%s: skipped, a scan is already running\n", report.Profile)
		return
	}

	fmt.Fprintf(w, "%s: fetched %d, relevant %d, stored %d, recovered %d\n",
		report.Profile, report.Fetched, report.Relevant, report.Stored, report.Recovered)
	for _, source := range report.Sources {
		line := fmt.Sprintf("  %-20s %-10s %d", source.Source, source.Status, source.Fetched)
		if source.Err != nil {
			line += "  " + source.Err.Error()
		}
		fmt.Fprintln(w, line)
	}
	if report.Err != nil {
		fmt.Fprintf(w, "  error: %v\n", report.Err)
	}
}
