package main

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/maxaizer/tender-monitor/internal/entities"
	"github.com/maxaizer/tender-monitor/internal/tokens"
	"github.com/spf13/cobra"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Manage access tokens of OAuth data providers",
}

var tokensSetCmd = &cobra.Command{
	Use:   "set <source>",
	Short: "Store an access token for a source",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokensSet,
}

var tokensClearCmd = &cobra.Command{
	Use:   "clear <source>",
	Short: "Remove the access token of a source",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokensClear,
}

var (
	tokenAccess    string
	tokenRefresh   string
	tokenExpiresIn time.Duration
)

func init() {
	tokensSetCmd.Flags().StringVar(&tokenAccess, "access-token", "", "Access token (required)")
	tokensSetCmd.Flags().StringVar(&tokenRefresh, "refresh-token", "", "Refresh token")
	tokensSetCmd.Flags().DurationVar(&tokenExpiresIn, "expires-in", time.Hour, "Token lifetime")

	if err := tokensSetCmd.MarkFlagRequired("access-token"); err != nil {
		panic(fmt.Sprintf("failed to mark access-token flag as required: %v", err))
	}

	tokensCmd.AddCommand(tokensSetCmd, tokensClearCmd)
	rootCmd.AddCommand(tokensCmd)
}

func oauthSource(value string) (entities.Source, error) {
	source, err := entities.ParseSource(value)
	if err != nil {
		return "", err
	}
	if !slices.Contains(oauthSources, source) {
		return "", fmt.Errorf("source %q does not use access tokens", source)
	}
	return source, nil
}

func runTokensSet(_ *cobra.Command, args []string) error {
	source, err := oauthSource(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	token := tokens.Token{
		AccessToken:  tokenAccess,
		RefreshToken: tokenRefresh,
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().Add(tokenExpiresIn),
	}
	if err = a.tokens.Set(ctx, string(source), token); err != nil {
		return err
	}
	fmt.Printf("Token for %s stored, expires at %s\n", source, token.ExpiresAt.Format(time.RFC3339))
	return nil
}

func runTokensClear(_ *cobra.Command, args []string) error {
	source, err := oauthSource(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err = a.tokens.Clear(ctx, string(source)); err != nil {
		return err
	}
	fmt.Printf("Token for %s cleared\n", source)
	return nil
}
