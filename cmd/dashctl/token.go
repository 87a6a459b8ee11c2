package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fixora/analytics/internal/infra/auth"
)

var tokenOpts struct {
	subject string
	ttl     time.Duration
}

// tokenCmd mints an operator token for the refresh endpoint.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an operator access token",
	Long:  `Mint an HS256 access token for the refresh endpoint, signed with JWT_SECRET.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tokens, err := auth.NewJWTService(os.Getenv("JWT_SECRET"), tokenOpts.ttl)
		if err != nil {
			return fmt.Errorf("cannot sign token: %w", err)
		}
		token, err := tokens.GenerateAccessToken(tokenOpts.subject)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenOpts.subject, "subject", "", "operator the token is issued to")
	tokenCmd.Flags().DurationVar(&tokenOpts.ttl, "ttl", time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("subject")
}
