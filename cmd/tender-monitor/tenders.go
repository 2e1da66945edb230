package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/maxaizer/tender-monitor/internal/entities"
	"github.com/spf13/cobra"
)

var tendersCmd = &cobra.Command{
	Use:   "tenders",
	Short: "Inspect stored tenders",
}

var tendersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored tenders, most relevant first",
	Args:  cobra.NoArgs,
	RunE:  runTendersList,
}

var tendersShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show every stored field of a tender",
	Args:  cobra.ExactArgs(1),
	RunE:  runTendersShow,
}

var (
	tendersSource   string
	tendersProfile  string
	tendersMinScore float64
	tendersPending  bool
	tendersLimit    int
)

func init() {
	tendersListCmd.Flags().StringVarP(&tendersSource, "source", "s", "", "Only tenders of this source")
	tendersListCmd.Flags().StringVarP(&tendersProfile, "profile", "p", "", "Only tenders found by this profile")
	tendersListCmd.Flags().Float64Var(&tendersMinScore, "min-score", 0, "Minimum relevance score")
	tendersListCmd.Flags().BoolVar(&tendersPending, "pending", false, "Only tenders that were never notified")
	tendersListCmd.Flags().IntVarP(&tendersLimit, "limit", "n", 20, "Maximum number of tenders")

	tendersCmd.AddCommand(tendersListCmd, tendersShowCmd)
	rootCmd.AddCommand(tendersCmd)
}

func tenderFilter(source, profile string, minScore float64, pending bool, limit int) (entities.TenderFilter, error) {
	filter := entities.TenderFilter{Profile: profile, MinRelevance: minScore, Limit: limit}
	if source != "" {
		parsed, err := entities.ParseSource(source)
		if err != nil {
			return filter, err
		}
		filter.Source = parsed
	}
	if pending {
		notified := false
		filter.Notified = &notified
	}
	return filter, nil
}

func runTendersList(_ *cobra.Command, _ []string) error {
	filter, err := tenderFilter(tendersSource, tendersProfile, tendersMinScore, tendersPending, tendersLimit)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	tenders, err := a.dedup.QueryStored(ctx, filter)
	if err != nil {
		return err
	}
	if len(tenders) == 0 {
		fmt.Println("No tenders match")
		return nil
	}
	return printTenders(os.Stdout, tenders)
}

func printTenders(out io.Writer, tenders []entities.StoredTender) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCORE\tSOURCE\tDEADLINE\tNOTIFIED\tTITLE")
	for _, t := range tenders {
		fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\t%t\t%s\n",
			t.ID, t.RelevanceScore, t.Source, formatDate(t.ResponseDeadline), t.Notified, truncate(t.Title, 60))
	}
	return w.Flush()
}

func runTendersShow(_ *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	tender, err := a.tenders.GetByID(ctx, args[0])
	if err != nil {
		return err
	}
	if tender == nil {
		return fmt.Errorf("tender %s not found", args[0])
	}
	printTender(os.Stdout, *tender)
	return nil
}

func printTender(out io.Writer, t entities.StoredTender) {
	line := func(name, value string) {
		if value != "" {
			fmt.Fprintf(out, "%-16s %s\n", name+":", value)
		}
	}

	line("Title", t.Title)
	line("Source", string(t.Source))
	if t.SourceURL != nil {
		line("URL", *t.SourceURL)
	}
	if t.ExternalID != nil {
		line("External ID", *t.ExternalID)
	}
	line("Profile", t.Profile)
	line("Relevance", fmt.Sprintf("%.2f", t.RelevanceScore))
	line("Keywords", strings.Join(t.Keywords, ", "))
	line("Posted", formatDate(t.PostingDate))
	line("Deadline", formatDate(t.ResponseDeadline))
	if t.EstimatedValue != nil {
		line("Value", fmt.Sprintf("%.0f", *t.EstimatedValue))
	}
	line("Location", t.Location)
	line("NAICS", strings.Join(t.NAICSCodes, ", "))

	keys := make([]string, 0, len(t.ContactInfo))
	for k := range t.ContactInfo {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		line("Contact "+k, t.ContactInfo[k])
	}

	line("Notified", fmt.Sprintf("%t", t.Notified))
	line("Stored", t.CreatedAt.Format(time.RFC3339))
	if t.Description != "" {
		fmt.Fprintf(out, "\n%s\n", t.Description)
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
