// Package commands implements the ebauth CLI: the server and local
// administration of the configured credential store.
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ebauth/cmd/internal/app"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree. Configuration comes from the same
// EBAUTH_* environment the server reads.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ebauth",
		Short: "ebauth - token and basic-auth gate for a per-service user directory",
		Long: `ebauth resolves caller identity from signed tokens or HTTP basic
credentials, gates the user API by privilege, and administers the
per-service user directory.

Store and service descriptor are selected with EBAUTH_STORE and
EBAUTH_SERVICE_SOURCE. Administration commands act on that store directly.

Use "ebauth [command] --help" for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("output", "o", "json", "Output format (json|yaml)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newUserCmd())
	root.AddCommand(newTokenCmd())

	root.CompletionOptions.DisableDefaultCmd = true
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ebauth %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return app.Run()
		},
	}
}

// errEphemeralStore is returned when a command that reads or writes users
// would run against the in-process memory store.
var errEphemeralStore = errors.New(`EBAUTH_STORE=memory does not persist between commands; set EBAUTH_STORE to "postgres", "badger" or "dynamodb"`)

// openApp wires the configured store and service for one command. Logs go
// to stderr at warn level so command output stays machine readable.
// persistent refuses the memory store for commands that touch users.
func openApp(ctx context.Context, cmd *cobra.Command, persistent bool) (*app.App, error) {
	cfg := app.LoadConfig()
	if persistent && cfg.Store == app.StoreMemory {
		return nil, errEphemeralStore
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	return app.New(ctx, cfg, log)
}

func printResult(cmd *cobra.Command, v any) error {
	format, _ := cmd.Flags().GetString("output")
	return render(cmd.OutOrStdout(), format, v)
}

func render(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer func() { _ = enc.Close() }()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// readSecret returns flagVal, or one line from stdin when fromStdin is set.
func readSecret(cmd *cobra.Command, flagVal string, fromStdin bool) (*string, error) {
	if !fromStdin {
		if flagVal == "" && !cmd.Flags().Changed("password") {
			return nil, nil
		}
		return &flagVal, nil
	}
	in := cmd.InOrStdin()
	if in == nil {
		in = os.Stdin
	}
	b, err := io.ReadAll(io.LimitReader(in, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	s := strings.TrimRight(string(b), "\r\n")
	return &s, nil
}
