package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete stale low-relevance tenders and old scan history",
	RunE:  runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	sweeper, err := a.sweeper()
	if err != nil {
		return fmt.Errorf("can't create sweeper: %w", err)
	}

	result, err := sweeper.Sweep(ctx)
	fmt.Printf("Removed %d tenders, %d scan runs, %d notification logs\n",
		result.Tenders, result.ScanRuns, result.Notifications)
	return err
}
