package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/alexreg/ycomp/internal/analysis"
	"github.com/alexreg/ycomp/internal/config"
	"github.com/alexreg/ycomp/internal/ftdna"
	"github.com/alexreg/ycomp/internal/marker"
	"github.com/alexreg/ycomp/internal/report"
	"github.com/alexreg/ycomp/internal/tree"
	"github.com/alexreg/ycomp/internal/yfull"
)

// strFetchPerKit extends the HTTP timeout per requested kit. STR rows are
// lighter than SNP rows.
const strFetchPerKit = 50 * time.Millisecond

// NewSTRCommand creates the str command group.
func NewSTRCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "str",
		Short: "Manage and analyze STR kits",
	}

	cmd.AddCommand(newSTRAddYFullCommand(rootOpts))
	cmd.AddCommand(newSTRFetchFTDNACommand(rootOpts))
	cmd.AddCommand(newSTRAnalyzeCommand(rootOpts))

	return cmd
}

// STRAddOptions holds flags for the str add-yfull command.
type STRAddOptions struct {
	*RootOptions
	KitMetadataOptions
}

func newSTRAddYFullCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &STRAddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add-yfull <file>",
		Short: "Import a YFull STR export",
		Long: `Import a per-kit YFull STR export CSV. The kit number is inferred from
the export filename (STR_for_YFxxxxxx_n.csv).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSTRAddYFull(opts, args[0], cmd)
		},
	}

	addKitMetadataFlags(cmd, &opts.KitMetadataOptions)

	return cmd
}

func runSTRAddYFull(opts *STRAddOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	number := opts.Kit
	if number == "" {
		number = yfull.KitFromSTRFilename(path)
	}
	if number == "" {
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("cannot infer kit number from %s; pass --kit", path), nil)
		return NewExitError(ExitCommandError, "kit number required")
	}

	f, err := os.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("opening export: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to open export", err)
	}
	records, err := yfull.ParseSTRExport(f)
	f.Close()
	if err != nil {
		_ = formatter.Error(ErrCodeParseFailed, fmt.Sprintf("parsing export: %v", err), nil)
		return WrapExitError(ExitFailure, "failed to parse export", err)
	}

	kit := marker.Kit{
		Number:     number,
		Group:      opts.Group,
		Ancestor:   opts.Ancestor,
		Country:    opts.Country,
		Haplogroup: opts.Haplogroup,
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	profile := yfull.FoldSTRProfile(records)
	if err := st.PutSTRKit(ctx, kit, profile); err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, fmt.Sprintf("storing kit: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to store kit", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]interface{}{
			"kit_number": kit.Number,
			"loci":       len(profile),
		})
	}
	p := message.NewPrinter(language.English)
	p.Fprintf(formatter.Writer, "✓ Imported kit %s (%d STR loci)\n", kit.Number, len(profile))
	return nil
}

func newSTRFetchFTDNACommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FTDNAFetchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fetch-ftdna",
		Short: "Fetch a group project's STR results from FTDNA",
		Long: `Scrape the public STR results table of an FTDNA group project and merge
every kit into the database. Kit rows inherit the group header row above
them; kits above the first header are skipped.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSTRFetchFTDNA(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Group, "group", "", "group project name (default from config)")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "kits per result page (default 500, config can override)")

	return cmd
}

func runSTRFetchFTDNA(opts *FTDNAFetchOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	table, group, err := fetchFTDNATable(ctx, opts, formatter, st, ftdna.STRGroupURL, config.DefaultSTRPageSize, strFetchPerKit)
	if err != nil {
		return err
	}

	kits, err := ftdna.ParseSTRKits(table)
	if err != nil {
		_ = formatter.Error(ErrCodeParseFailed, fmt.Sprintf("parsing results: %v", err), nil)
		return WrapExitError(ExitFailure, "failed to parse results", err)
	}

	for _, kit := range kits {
		if err := st.PutSTRKit(ctx, kit.Kit, kit.Profile); err != nil {
			_ = formatter.Error(ErrCodeStoreFailed, fmt.Sprintf("storing kit %s: %v", kit.Number, err), nil)
			return WrapExitError(ExitCommandError, "failed to store kit", err)
		}
	}

	fetchID, err := st.RecordFetch(ctx, "ftdna", fmt.Sprintf("group=%s kind=str", group), len(kits))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to record fetch", err)
	}

	if formatter.Format == "json" {
		return formatter.SuccessFetch(map[string]interface{}{"group": group, "kits": len(kits)}, fetchID)
	}
	p := message.NewPrinter(language.English)
	p.Fprintf(formatter.Writer, "✓ Fetched %d STR kits from %s\n", len(kits), group)
	return nil
}

// STRAnalyzeOptions holds flags for the str analyze command.
type STRAnalyzeOptions struct {
	*RootOptions
	Kit        string
	Haplogroup string
	MaxDiff    int
	Output     string
}

func newSTRAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &STRAnalyzeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute genetic distance from a kit to the population",
		Long: `Compute the STR genetic distance from the reference kit to every stored
kit whose haplogroup lineage is compatible, and write a CSV report
ranked by the upper confidence bound of the distance.

Example:
  ycomp str analyze --kit 123456 --haplogroup R-L21 -o report.csv`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSTRAnalyze(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kit, "kit", "", "reference kit number (required)")
	cmd.Flags().StringVar(&opts.Haplogroup, "haplogroup", "", "only compare kits descending from this haplogroup")
	cmd.Flags().IntVar(&opts.MaxDiff, "haplogroup-max-diff", 0, "max lineage distance from the common ancestor")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "ycomp-analysis-str.csv", "report file (- for stdout)")
	_ = cmd.MarkFlagRequired("kit")

	return cmd
}

func runSTRAnalyze(opts *STRAnalyzeOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	kits, err := st.ReadSTRKits(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read kits", err)
	}
	tr, err := st.ReadTree(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read tree", err)
	}

	filter := tree.Filter{Clade: opts.Haplogroup}
	if cmd.Flags().Changed("haplogroup-max-diff") {
		d := opts.MaxDiff
		filter.MaxDiff = &d
	}

	rep, err := analysis.AnalyzeSTR(kits, tr, analysis.STROptions{
		RefKit:          opts.Kit,
		Filter:          filter,
		ConfidenceLevel: opts.Config.Analysis.ConfidenceLevel,
	})
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitFailure, "analysis failed", err)
	}

	if err := writeReport(opts.Output, cmd, func(w io.Writer) error {
		return report.WriteSTRCSV(w, rep)
	}); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing report: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to write report", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]interface{}{
			"kits_compared": rep.ComparedKits,
			"loci_compared": rep.ComparedLoci,
			"output":        opts.Output,
		})
	}
	p := message.NewPrinter(language.English)
	if opts.Output != "-" {
		p.Fprintf(formatter.Writer, "✓ Compared %d kits over %d loci; wrote %s\n",
			rep.ComparedKits, rep.ComparedLoci, opts.Output)
	}
	return nil
}
