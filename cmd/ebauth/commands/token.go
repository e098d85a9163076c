package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and inspect tokens",
	}
	cmd.AddCommand(newTokenIssueCmd(), newTokenVerifyCmd())
	return cmd
}

type tokenView struct {
	Token     string    `json:"token" yaml:"token"`
	User      string    `json:"user" yaml:"user"`
	ExpiresAt time.Time `json:"expires_at" yaml:"expires_at"`
}

func newTokenIssueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "issue <user>",
		Short: "Issue a token for a stored user with its current privileges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cmd, true)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			row, err := a.Store().Get(cmd.Context(), a.Service().Name, args[0])
			if err != nil {
				return err
			}
			now := time.Now()
			tok, err := a.Codec().Sign(row.Identity(), now)
			if err != nil {
				return err
			}
			return printResult(cmd, tokenView{
				Token:     tok,
				User:      row.User,
				ExpiresAt: now.Add(a.Service().TokenTimeout).UTC().Truncate(time.Second),
			})
		},
	}
}

func newTokenVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify a token and print its identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			id, err := a.Codec().Verify(args[0], time.Now())
			if err != nil {
				return fmt.Errorf("token rejected: %w", err)
			}
			return printResult(cmd, id)
		},
	}
}
