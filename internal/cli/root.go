// Package cli implements the ycomp command surface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/alexreg/ycomp/internal/config"
	"github.com/alexreg/ycomp/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	DB         string
	ConfigPath string

	// Config is resolved in PersistentPreRunE and read by subcommands.
	Config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ycomp CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ycomp",
		Short: "Compare Y-chromosome DNA kits",
		Long: `ycomp fetches Y-chromosome SNP and STR data from YFull and FTDNA,
stores it in a local SQLite database, and compares a reference kit
against the stored population.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			cfg, err := loadConfig(opts.ConfigPath)
			if err != nil {
				return err
			}
			opts.Config = cfg
			if opts.DB == "" {
				opts.DB = cfg.DB
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "path to SQLite database (default from config)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to config file (default "+config.DefaultPath+")")

	// Add subcommands
	cmd.AddCommand(NewTreeCommand(opts))
	cmd.AddCommand(NewSNPCommand(opts))
	cmd.AddCommand(NewSTRCommand(opts))
	cmd.AddCommand(NewFTDNACommand(opts))

	return cmd
}

// loadConfig resolves the configuration. An explicitly given path must
// exist; the conventional location may be absent.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadOrDefault()
}

// openStore opens the kit database, mapping failures to a command error.
func openStore(opts *RootOptions) (*store.Store, error) {
	st, err := store.Open(opts.DB)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to open database %s", opts.DB), err)
	}
	return st, nil
}

// newFormatter builds the output formatter for a command invocation.
// Verbose and progress output goes to stderr so JSON output stays clean.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// confirm prompts on stderr and reads a y/N answer from the command's
// input. The --yes flag bypasses it.
func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", prompt)
	var answer string
	if _, err := fmt.Fscanln(cmd.InOrStdin(), &answer); err != nil {
		return false
	}
	return answer == "y" || answer == "Y" || answer == "yes"
}

// writeReport writes a CSV report to the named file, or to the command's
// stdout for "-".
func writeReport(path string, cmd *cobra.Command, write func(io.Writer) error) error {
	if path == "-" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// ExitErrors were already reported through the formatter.
		var exitErr *ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return GetExitCode(err)
	}
	return ExitSuccess
}
