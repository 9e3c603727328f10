package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

// NewRootCmd constructs the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "querystudy",
		Short: "querystudy - typed query builder study service over PostgreSQL",
		Long:  "querystudy serves the study HTTP API and manages the schema and fixture data of its PostgreSQL database.",
	}
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("QUERYSTUDY_CONFIG"), "Path to a YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose error output")
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newSeedCmd(opts))
	return cmd
}

// Execute runs the CLI entrypoint and returns the process exit code.
func Execute() int {
	cmd := NewRootCmd()
	verbose := false
	if err := cmd.Execute(); err != nil {
		if f := cmd.PersistentFlags().Lookup("verbose"); f != nil {
			verbose = f.Value.String() == "true"
		}
		return reportError(os.Stderr, err, verbose)
	}
	return 0
}

func reportError(w io.Writer, err error, verbose bool) int {
	var cerr CommandError
	if !errors.As(err, &cerr) {
		fmt.Fprintln(w, err)
		return 1
	}
	msg := strings.TrimSpace(cerr.Message)
	if msg != "" {
		fmt.Fprintln(w, msg)
	}
	if cerr.Cause != nil && msg != cerr.Cause.Error() && verbose {
		fmt.Fprintf(w, "details: %v\n", cerr.Cause)
	}
	if cerr.Suggestion != "" {
		fmt.Fprintln(w, formatSuggestion(cerr.Suggestion))
	}
	return cerr.ExitStatus()
}
