package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/health-enrollment/pkg/auth"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API bearer tokens",
	}

	var (
		subject string
		ttl     time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Print a signed bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := auth.NewJWTService(cfg.Auth.Secret, cfg.Auth.Issuer)
			if err != nil {
				return err
			}
			token, err := tokens.Issue(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issue.Flags().StringVar(&subject, "subject", "", "token subject, e.g. the calling system")
	issue.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = issue.MarkFlagRequired("subject")

	cmd.AddCommand(issue)
	return cmd
}
