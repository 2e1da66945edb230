package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/maxaizer/tender-monitor/internal/entities"
	"github.com/spf13/cobra"
)

var errProfileNotFound = errors.New("profile not found")

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage monitoring profiles",
}

var profilesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a monitoring profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfilesAdd,
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List monitoring profiles",
	Args:  cobra.NoArgs,
	RunE:  runProfilesList,
}

var profilesEnableCmd = &cobra.Command{
	Use:   "enable <name>",
	Short: "Include a profile in scheduled scans",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return setProfileActive(args[0], true)
	},
}

var profilesDisableCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "Exclude a profile from scheduled scans",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return setProfileActive(args[0], false)
	},
}

var profilesRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Delete a monitoring profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfilesRemove,
}

var (
	profileKeywords         []string
	profileSources          []string
	profileRecipients       []string
	profileSendEmptyReports bool
)

func init() {
	profilesAddCmd.Flags().StringSliceVarP(&profileKeywords, "keywords", "k", nil, "Keywords to match (required)")
	profilesAddCmd.Flags().StringSliceVarP(&profileSources, "sources", "s", nil,
		"Sources to scan (default: all), one of "+strings.Join(sourceNames(), ", "))
	profilesAddCmd.Flags().StringSliceVarP(&profileRecipients, "recipients", "r", nil, "Email recipients of the digest")
	profilesAddCmd.Flags().BoolVar(&profileSendEmptyReports, "send-empty", false, "Send a digest even when nothing new was found")

	if err := profilesAddCmd.MarkFlagRequired("keywords"); err != nil {
		panic(fmt.Sprintf("failed to mark keywords flag as required: %v", err))
	}

	profilesCmd.AddCommand(profilesAddCmd, profilesListCmd, profilesEnableCmd, profilesDisableCmd, profilesRemoveCmd)
	rootCmd.AddCommand(profilesCmd)
}

func runProfilesAdd(_ *cobra.Command, args []string) error {
	profile, err := buildProfile(args[0], profileKeywords, profileSources, profileRecipients)
	if err != nil {
		return err
	}
	profile.SendEmptyReports = profileSendEmptyReports

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	existing, err := a.profiles.GetByName(ctx, profile.Name)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("profile %q already exists", profile.Name)
	}

	if err = a.profiles.Add(ctx, *profile); err != nil {
		return fmt.Errorf("failed to add profile: %w", err)
	}

	fmt.Printf("Profile %q added: %d keywords, %d sources\n", profile.Name, len(profile.Keywords), len(profile.Sources))
	if !profile.HasRecipients() {
		fmt.Println("The profile has no recipients yet: digests go to smtp.default_recipient, " +
			"Telegram chats can subscribe through the bot")
	}
	return nil
}

// buildProfile validates command-line input into a new active profile.
// No sources means every source except custom.
func buildProfile(name string, keywords, sourceValues, recipients []string) (*entities.MonitoringProfile, error) {
	var sources []entities.Source
	if len(sourceValues) == 0 {
		sources = scannableSources()
	} else {
		parsed, err := entities.ParseSources(sourceValues)
		if err != nil {
			return nil, err
		}
		sources = parsed
	}

	profile := entities.NewMonitoringProfile(name, keywords, sources, recipients)
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return profile, nil
}

func runProfilesList(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	profiles, err := a.profiles.List(ctx)
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		fmt.Println("No profiles yet, create one with `tender-monitor profiles add`")
		return nil
	}
	return printProfiles(os.Stdout, profiles)
}

func printProfiles(out io.Writer, profiles []entities.MonitoringProfile) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tACTIVE\tKEYWORDS\tSOURCES\tRECIPIENTS\tTELEGRAM CHATS")
	for _, p := range profiles {
		sources := make([]string, len(p.Sources))
		for i, source := range p.Sources {
			sources[i] = string(source)
		}
		fmt.Fprintf(w, "%s\t%t\t%s\t%s\t%s\t%d\n", p.Name, p.Active,
			strings.Join(p.Keywords, ","), strings.Join(sources, ","), strings.Join(p.Recipients, ","), len(p.TelegramChatIDs))
	}
	return w.Flush()
}

func setProfileActive(name string, active bool) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	found, err := a.profiles.SetActive(ctx, name, active)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %q", errProfileNotFound, name)
	}
	fmt.Printf("Profile %q active: %t\n", name, active)
	return nil
}

func runProfilesRemove(_ *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	existing, err := a.profiles.GetByName(ctx, args[0])
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: %q", errProfileNotFound, args[0])
	}
	if err = a.profiles.Remove(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("Profile %q removed\n", args[0])
	return nil
}

func scannableSources() []entities.Source {
	var sources []entities.Source
	for _, source := range entities.KnownSources() {
		if source != entities.Custom {
			sources = append(sources, source)
		}
	}
	return sources
}

func sourceNames() []string {
	names := make([]string, 0, len(entities.KnownSources()))
	for _, source := range entities.KnownSources() {
		names = append(names, string(source))
	}
	return names
}
