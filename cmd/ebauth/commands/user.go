package commands

import (
	"time"

	"github.com/spf13/cobra"

	"ebauth/cmd/internal/auth/directory"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User directory management",
		Long: `Manage the users of the configured service.

Examples:
  # Bootstrap an administrator
  echo -n 's3cret' | ebauth user add root --password-stdin --privileges user,admin

  # Inspect a user (the digest is never printed)
  ebauth user get root

  # Delete a user (succeeds if the user does not exist)
  ebauth user delete alice`,
	}
	cmd.AddCommand(newUserAddCmd(), newUserDeleteCmd(), newUserGetCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var (
		password   string
		fromStdin  bool
		privileges string
	)
	cmd := &cobra.Command{
		Use:   "add <user>",
		Short: "Add a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readSecret(cmd, password, fromStdin)
			if err != nil {
				return err
			}
			in := directory.AddUserInput{User: &args[0], Password: pw}
			if cmd.Flags().Changed("privileges") {
				in.Privileges = &privileges
			}

			a, err := openApp(cmd.Context(), cmd, true)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			res, err := a.Directory().AddUser(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printResult(cmd, res)
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Password (prefer --password-stdin)")
	cmd.Flags().BoolVar(&fromStdin, "password-stdin", false, "Read the password from stdin")
	cmd.Flags().StringVar(&privileges, "privileges", "", `Comma-separated privileges (default "user")`)
	return cmd
}

func newUserDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <user>",
		Aliases: []string{"rm"},
		Short:   "Delete a user",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cmd, true)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			res, err := a.Directory().DeleteUser(cmd.Context(), directory.DeleteUserInput{User: &args[0]})
			if err != nil {
				return err
			}
			return printResult(cmd, res)
		},
	}
}

type userView struct {
	Service    string    `json:"service" yaml:"service"`
	User       string    `json:"user" yaml:"user"`
	Privileges []string  `json:"privileges" yaml:"privileges"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

func newUserGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <user>",
		Short: "Show a user",
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
			return printResult(cmd, userView{
				Service:    row.Service,
				User:       row.User,
				Privileges: row.Privileges,
				CreatedAt:  row.CreatedAt,
			})
		},
	}
}
