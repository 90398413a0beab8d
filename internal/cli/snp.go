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

// snpFetchPerKit extends the HTTP timeout per requested kit; SNP result
// pages are heavy and render slowly on large projects.
const snpFetchPerKit = 200 * time.Millisecond

// NewSNPCommand creates the snp command group.
func NewSNPCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snp",
		Short: "Manage and analyze SNP kits",
	}

	cmd.AddCommand(newSNPAddYFullCommand(rootOpts))
	cmd.AddCommand(newSNPFetchFTDNACommand(rootOpts))
	cmd.AddCommand(newSNPMergeSTRCommand(rootOpts))
	cmd.AddCommand(newSNPAnalyzeCommand(rootOpts))

	return cmd
}

// KitMetadataOptions holds the metadata override flags shared by the
// add-yfull commands.
type KitMetadataOptions struct {
	Kit        string
	Group      string
	Ancestor   string
	Country    string
	Haplogroup string
}

func addKitMetadataFlags(cmd *cobra.Command, opts *KitMetadataOptions) {
	cmd.Flags().StringVar(&opts.Kit, "kit", "", "kit number (default inferred from the filename)")
	cmd.Flags().StringVar(&opts.Group, "group", "", "group name")
	cmd.Flags().StringVar(&opts.Ancestor, "ancestor", "", "paternal ancestor name")
	cmd.Flags().StringVar(&opts.Country, "country", "", "country of origin")
	cmd.Flags().StringVar(&opts.Haplogroup, "haplogroup", "", "haplogroup")
}

// SNPAddOptions holds flags for the snp add-yfull command.
type SNPAddOptions struct {
	*RootOptions
	KitMetadataOptions
}

func newSNPAddYFullCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SNPAddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add-yfull <file>",
		Short: "Import a YFull SNP export",
		Long: `Import a per-kit YFull SNP export CSV. The kit number is inferred from
the export filename (SNP_for_YFxxxxxx_n.csv); the haplogroup defaults to
the one named in the export.

Example:
  ycomp snp add-yfull --country Ireland SNP_for_YF012345_20240101.csv`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSNPAddYFull(opts, args[0], cmd)
		},
	}

	addKitMetadataFlags(cmd, &opts.KitMetadataOptions)

	return cmd
}

func runSNPAddYFull(opts *SNPAddOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	number := opts.Kit
	if number == "" {
		number = yfull.KitFromSNPFilename(path)
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
	export, err := yfull.ParseSNPExport(f)
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
	if kit.Haplogroup == "" {
		kit.Haplogroup = export.Haplogroup
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	profile := export.Profile()
	if err := st.PutSNPKit(ctx, kit, profile); err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, fmt.Sprintf("storing kit: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to store kit", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]interface{}{
			"kit_number": kit.Number,
			"haplogroup": kit.Haplogroup,
			"snp_calls":  len(profile),
		})
	}
	p := message.NewPrinter(language.English)
	p.Fprintf(formatter.Writer, "✓ Imported kit %s (%d SNP calls)\n", kit.Number, len(profile))
	return nil
}

// FTDNAFetchOptions holds flags shared by the fetch-ftdna commands.
type FTDNAFetchOptions struct {
	*RootOptions
	Group    string
	PageSize int
}

func newSNPFetchFTDNACommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FTDNAFetchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fetch-ftdna",
		Short: "Fetch a group project's SNP results from FTDNA",
		Long: `Scrape the public SNP results table of an FTDNA group project and merge
every kit into the database. A stored session (ycomp ftdna signin) is
attached when present; some projects show more data to members.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSNPFetchFTDNA(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Group, "group", "", "group project name (default from config)")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "kits per result page (default 250, config can override)")

	return cmd
}

func runSNPFetchFTDNA(opts *FTDNAFetchOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	table, group, err := fetchFTDNATable(ctx, opts, formatter, st, ftdna.SNPGroupURL, config.DefaultSNPPageSize, snpFetchPerKit)
	if err != nil {
		return err
	}

	kits, err := ftdna.ParseSNPKits(table)
	if err != nil {
		_ = formatter.Error(ErrCodeParseFailed, fmt.Sprintf("parsing results: %v", err), nil)
		return WrapExitError(ExitFailure, "failed to parse results", err)
	}

	for _, kit := range kits {
		if err := st.PutSNPKit(ctx, kit.Kit, kit.Profile); err != nil {
			_ = formatter.Error(ErrCodeStoreFailed, fmt.Sprintf("storing kit %s: %v", kit.Number, err), nil)
			return WrapExitError(ExitCommandError, "failed to store kit", err)
		}
	}

	fetchID, err := st.RecordFetch(ctx, "ftdna", fmt.Sprintf("group=%s kind=snp", group), len(kits))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to record fetch", err)
	}

	if formatter.Format == "json" {
		return formatter.SuccessFetch(map[string]interface{}{"group": group, "kits": len(kits)}, fetchID)
	}
	p := message.NewPrinter(language.English)
	p.Fprintf(formatter.Writer, "✓ Fetched %d SNP kits from %s\n", len(kits), group)
	return nil
}

func newSNPMergeSTRCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge-str",
		Short: "Fill SNP kit metadata from STR records",
		Long: `Copy group, ancestor, country and haplogroup from STR kit records into
SNP kit records with the same kit number, filling gaps only. FTDNA SNP
result pages omit most metadata; STR pages carry it.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSNPMergeSTR(rootOpts, cmd)
		},
	}

	return cmd
}

func runSNPMergeSTR(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	ctx := commandContext(cmd)

	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	updated, err := st.MergeSTRMetadata(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, fmt.Sprintf("merging metadata: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to merge metadata", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]int64{"updated": updated})
	}
	p := message.NewPrinter(language.English)
	p.Fprintf(formatter.Writer, "✓ Filled metadata for %d SNP kits from STR records\n", updated)
	return nil
}

// SNPAnalyzeOptions holds flags for the snp analyze command.
type SNPAnalyzeOptions struct {
	*RootOptions
	Kit        string
	MaxAge     int
	Haplogroup string
	MaxDiff    int
	Output     string
}

func newSNPAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SNPAnalyzeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compare a kit's SNP calls against the population",
		Long: `Compare the reference kit against every stored kit whose haplogroup
lineage is compatible, counting shared and assumed-shared SNPs, and
write a ranked CSV report.

Example:
  ycomp snp analyze --kit YF012345 --haplogroup R-L21 -o report.csv`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSNPAnalyze(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kit, "kit", "", "reference kit number (required)")
	cmd.Flags().IntVar(&opts.MaxAge, "max-age", 0, "ignore SNPs of clades with TMRCA older than this, in ybp (default from config)")
	cmd.Flags().StringVar(&opts.Haplogroup, "haplogroup", "", "only compare kits descending from this haplogroup")
	cmd.Flags().IntVar(&opts.MaxDiff, "haplogroup-max-diff", 0, "max lineage distance from the common ancestor")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "ycomp-analysis-snp.csv", "report file (- for stdout)")
	_ = cmd.MarkFlagRequired("kit")

	return cmd
}

func runSNPAnalyze(opts *SNPAnalyzeOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	kits, err := st.ReadSNPKits(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read kits", err)
	}
	tr, err := st.ReadTree(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read tree", err)
	}
	aliases, err := st.ReadAliases(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read aliases", err)
	}

	filter := tree.Filter{Clade: opts.Haplogroup}
	if cmd.Flags().Changed("haplogroup-max-diff") {
		d := opts.MaxDiff
		filter.MaxDiff = &d
	}
	maxAge := opts.MaxAge
	if maxAge == 0 {
		maxAge = opts.Config.Analysis.MaxAge
	}

	rep, err := analysis.AnalyzeSNP(kits, tr, aliases, analysis.SNPOptions{
		RefKit: opts.Kit,
		MaxAge: maxAge,
		Filter: filter,
	})
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitFailure, "analysis failed", err)
	}

	if err := writeReport(opts.Output, cmd, func(w io.Writer) error {
		return report.WriteSNPCSV(w, rep)
	}); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing report: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to write report", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]interface{}{
			"kits_compared": rep.ComparedKits,
			"snps_compared": rep.ComparedSNPs,
			"output":        opts.Output,
		})
	}
	p := message.NewPrinter(language.English)
	if opts.Output != "-" {
		p.Fprintf(formatter.Writer, "✓ Compared %d kits over %d SNPs; wrote %s\n",
			rep.ComparedKits, rep.ComparedSNPs, opts.Output)
	}
	return nil
}
