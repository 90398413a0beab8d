package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/alexreg/ycomp/internal/store"
	"github.com/alexreg/ycomp/internal/yfull"
)

// NewTreeCommand creates the tree command group.
func NewTreeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Manage the local haplogroup tree",
	}

	cmd.AddCommand(newTreeFetchCommand(rootOpts))
	cmd.AddCommand(newTreePruneCommand(rootOpts))
	cmd.AddCommand(newTreeDeleteCommand(rootOpts))
	cmd.AddCommand(newTreeInfoCommand(rootOpts))

	return cmd
}

// TreeFetchOptions holds flags for the tree fetch command.
type TreeFetchOptions struct {
	*RootOptions
	Haplogroup string
}

// TreeFetchResult summarizes a tree fetch.
type TreeFetchResult struct {
	Haplogroup string   `json:"haplogroup"`
	Nodes      int      `json:"nodes"`
	Aliases    int      `json:"aliases"`
	Warnings   []string `json:"warnings,omitempty"`
}

func newTreeFetchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TreeFetchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download a haplogroup subtree from YFull",
		Long: `Download the YFull tree rooted at a haplogroup and merge it into the
local database, including SNP name aliases and age estimates.

Example:
  ycomp tree fetch --haplogroup R-L21`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTreeFetch(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Haplogroup, "haplogroup", "", "root haplogroup of the subtree (required)")
	_ = cmd.MarkFlagRequired("haplogroup")

	return cmd
}

func runTreeFetch(opts *TreeFetchOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	client := &http.Client{Timeout: opts.Config.FTDNA.Timeout.Std()}
	formatter.VerboseLog("Fetching YFull tree for %s...", opts.Haplogroup)

	result, err := yfull.FetchTree(ctx, client, opts.Haplogroup)
	if err != nil {
		if errors.Is(err, yfull.ErrHaplogroupNotFound) {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("haplogroup %s not found in the YFull tree", opts.Haplogroup), nil)
			return WrapExitError(ExitFailure, "haplogroup not found", err)
		}
		_ = formatter.Error(ErrCodeFetchFailed, fmt.Sprintf("fetching YFull tree: %v", err), nil)
		return WrapExitError(ExitFailure, "failed to fetch YFull tree", err)
	}

	for _, w := range result.Warnings {
		formatter.VerboseLog("warning: %s", w)
	}

	if err := st.MergeTree(ctx, result.Nodes, result.Aliases); err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, fmt.Sprintf("storing tree: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to store tree", err)
	}

	fetchID, err := st.RecordFetch(ctx, "yfull", "tree="+opts.Haplogroup, 0)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to record fetch", err)
	}

	data := TreeFetchResult{
		Haplogroup: opts.Haplogroup,
		Nodes:      len(result.Nodes),
		Aliases:    len(result.Aliases),
		Warnings:   result.Warnings,
	}
	if formatter.Format == "json" {
		return formatter.SuccessFetch(data, fetchID)
	}

	p := message.NewPrinter(language.English)
	p.Fprintf(formatter.Writer, "✓ Fetched %d haplogroups (%d SNP aliases) under %s\n",
		data.Nodes, data.Aliases, opts.Haplogroup)
	return nil
}

// TreePruneOptions holds flags for the tree prune command.
type TreePruneOptions struct {
	*RootOptions
	Yes bool
}

func newTreePruneCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TreePruneOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "prune <regexp>",
		Short: "Delete haplogroups not matching a pattern",
		Long: `Delete every haplogroup whose name does not match the pattern,
shrinking the tree to the branches of interest. Matching ignores case.

Example:
  ycomp tree prune '^R-'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTreePrune(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "skip the confirmation prompt")

	return cmd
}

func runTreePrune(opts *TreePruneOptions, pattern string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("invalid pattern: %v", err), nil)
		return WrapExitError(ExitCommandError, "invalid pattern", err)
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	tr, err := st.ReadTree(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read tree", err)
	}
	if tr.Len() == 0 {
		_ = formatter.Error(ErrCodeNotFound, "no tree in the database", nil)
		return NewExitError(ExitFailure, "no tree in the database")
	}

	matched := 0
	for _, name := range tr.Names() {
		if re.MatchString(name) {
			matched++
		}
	}

	if !opts.Yes {
		p := message.NewPrinter(language.English)
		prompt := p.Sprintf("Pruning keeps %d of %d haplogroups (%.1f%%). Continue?",
			matched, tr.Len(), 100*float64(matched)/float64(tr.Len()))
		if !confirm(cmd, prompt) {
			return NewExitError(ExitFailure, "aborted")
		}
	}

	kept, total, err := st.PruneTree(ctx, re)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to prune tree", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]int{"kept": kept, "deleted": total - kept})
	}
	p := message.NewPrinter(language.English)
	p.Fprintf(formatter.Writer, "✓ Kept %d haplogroups, deleted %d\n", kept, total-kept)
	return nil
}

// TreeDeleteOptions holds flags for the tree delete command.
type TreeDeleteOptions struct {
	*RootOptions
	Yes bool
}

func newTreeDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TreeDeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "delete",
		Short:         "Delete the stored haplogroup tree",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTreeDelete(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "skip the confirmation prompt")

	return cmd
}

func runTreeDelete(opts *TreeDeleteOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	if !opts.Yes && !confirm(cmd, "Delete the stored haplogroup tree?") {
		return NewExitError(ExitFailure, "aborted")
	}

	if err := st.DeleteTree(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to delete tree", err)
	}

	return formatter.Success("✓ Deleted haplogroup tree")
}

// TreeInfoOptions holds flags for the tree info command.
type TreeInfoOptions struct {
	*RootOptions
	Haplogroup string
	Kit        string
	STR        bool
}

// DatabaseInfo summarizes the database contents.
type DatabaseInfo struct {
	Haplogroups int         `json:"haplogroups"`
	SNPKits     int         `json:"snp_kits"`
	STRKits     int         `json:"str_kits"`
	Fetches     []FetchInfo `json:"fetches,omitempty"`
}

// FetchInfo is one acquisition audit entry.
type FetchInfo struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Detail    string `json:"detail"`
	KitCount  int    `json:"kit_count"`
	FetchedAt string `json:"fetched_at"`
}

func newTreeInfoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TreeInfoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show database, haplogroup or kit details",
		Long: `Without flags, summarize the database contents and fetch history.
With --haplogroup, show one haplogroup's lineage, SNPs and age estimates.
With --kit, show one kit's metadata and marker counts (--str for its STR
profile instead of its SNP profile).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTreeInfo(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Haplogroup, "haplogroup", "", "show this haplogroup")
	cmd.Flags().StringVar(&opts.Kit, "kit", "", "show this kit")
	cmd.Flags().BoolVar(&opts.STR, "str", false, "with --kit, show the STR profile")

	return cmd
}

func runTreeInfo(opts *TreeInfoOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	if opts.Haplogroup != "" && opts.Kit != "" {
		_ = formatter.Error(ErrCodeGeneric, "--haplogroup and --kit are mutually exclusive", nil)
		return NewExitError(ExitCommandError, "--haplogroup and --kit are mutually exclusive")
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	switch {
	case opts.Haplogroup != "":
		return haplogroupInfo(ctx, opts, formatter, st)
	case opts.Kit != "":
		return kitInfo(ctx, opts, formatter, st)
	default:
		return databaseInfo(ctx, formatter, st)
	}
}

func haplogroupInfo(ctx context.Context, opts *TreeInfoOptions, formatter *OutputFormatter, st *store.Store) error {
	tr, err := st.ReadTree(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read tree", err)
	}

	node := tr.Node(opts.Haplogroup)
	if node == nil {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("haplogroup %s not in the stored tree", opts.Haplogroup), nil)
		return NewExitError(ExitFailure, "haplogroup not found")
	}

	if formatter.Format == "json" {
		return formatter.Success(node)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Haplogroup: %s\n", node.Name)
	if node.Parent != "" {
		fmt.Fprintf(w, "Lineage:    %s\n", strings.Join(tr.Lineage(node.Name), " < "))
	}
	if len(node.PrimarySNPs) > 0 {
		fmt.Fprintf(w, "SNPs:       %s\n", strings.Join(node.PrimarySNPs, ", "))
	}
	if len(node.ExtraSNPs) > 0 {
		fmt.Fprintf(w, "Extra SNPs: %s\n", strings.Join(node.ExtraSNPs, ", "))
	}
	fmt.Fprintf(w, "Formed:     %s\n", formatAge(node.Age, node.AgeCL, node.AgeMin, node.AgeMax))
	fmt.Fprintf(w, "TMRCA:      %s\n", formatAge(node.TMRCA, node.TMRCACL, node.TMRCAMin, node.TMRCAMax))
	return nil
}

// formatAge renders an age estimate with its confidence bounds when known.
func formatAge(v, cl, min, max *int) string {
	if v == nil {
		return "unknown"
	}
	s := fmt.Sprintf("%d ybp", *v)
	if cl != nil && min != nil && max != nil {
		s += fmt.Sprintf(" (CI %d%%: %d to %d ybp)", *cl, *min, *max)
	}
	return s
}

// KitInfo is one kit's metadata plus its marker count.
type KitInfo struct {
	Number     string `json:"kit_number"`
	Group      string `json:"group,omitempty"`
	Ancestor   string `json:"ancestor,omitempty"`
	Country    string `json:"country,omitempty"`
	Haplogroup string `json:"haplogroup,omitempty"`
	Markers    int    `json:"markers"`
}

func kitInfo(ctx context.Context, opts *TreeInfoOptions, formatter *OutputFormatter, st *store.Store) error {
	var info *KitInfo
	if opts.STR {
		kits, err := st.ReadSTRKits(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read kits", err)
		}
		for _, kit := range kits {
			if kit.Number == opts.Kit {
				info = &KitInfo{
					Number: kit.Number, Group: kit.Group, Ancestor: kit.Ancestor,
					Country: kit.Country, Haplogroup: kit.Haplogroup,
					Markers: len(kit.Profile),
				}
				break
			}
		}
	} else {
		kits, err := st.ReadSNPKits(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read kits", err)
		}
		for _, kit := range kits {
			if kit.Number == opts.Kit {
				info = &KitInfo{
					Number: kit.Number, Group: kit.Group, Ancestor: kit.Ancestor,
					Country: kit.Country, Haplogroup: kit.Haplogroup,
					Markers: len(kit.Profile),
				}
				break
			}
		}
	}

	if info == nil {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("kit %s not found", opts.Kit), nil)
		return NewExitError(ExitFailure, "kit not found")
	}

	if formatter.Format == "json" {
		return formatter.Success(info)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Kit:        %s\n", info.Number)
	if info.Group != "" {
		fmt.Fprintf(w, "Group:      %s\n", info.Group)
	}
	if info.Ancestor != "" {
		fmt.Fprintf(w, "Ancestor:   %s\n", info.Ancestor)
	}
	if info.Country != "" {
		fmt.Fprintf(w, "Country:    %s\n", info.Country)
	}
	if info.Haplogroup != "" {
		fmt.Fprintf(w, "Haplogroup: %s\n", info.Haplogroup)
	}
	kind := "SNP calls"
	if opts.STR {
		kind = "STR loci"
	}
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "Markers:    %d %s\n", info.Markers, kind)
	return nil
}

func databaseInfo(ctx context.Context, formatter *OutputFormatter, st *store.Store) error {
	tr, err := st.ReadTree(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read tree", err)
	}
	snpKits, err := st.ReadSNPKits(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read kits", err)
	}
	strKits, err := st.ReadSTRKits(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read kits", err)
	}
	fetches, err := st.ListFetches(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read fetch history", err)
	}

	info := DatabaseInfo{
		Haplogroups: tr.Len(),
		SNPKits:     len(snpKits),
		STRKits:     len(strKits),
	}
	for _, f := range fetches {
		info.Fetches = append(info.Fetches, FetchInfo{
			ID: f.ID, Source: f.Source, Detail: f.Detail,
			KitCount: f.KitCount, FetchedAt: f.FetchedAt.Format("2006-01-02 15:04:05"),
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(info)
	}

	w := formatter.Writer
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "Haplogroups: %d\n", info.Haplogroups)
	p.Fprintf(w, "SNP kits:    %d\n", info.SNPKits)
	p.Fprintf(w, "STR kits:    %d\n", info.STRKits)
	if len(info.Fetches) > 0 {
		fmt.Fprintln(w, "\nFetch history:")
		for _, f := range info.Fetches {
			p.Fprintf(w, "  %s  %-6s %-30s %d kits\n", f.FetchedAt, f.Source, f.Detail, f.KitCount)
		}
	}
	return nil
}

// commandContext returns the command's context, falling back to Background
// when the command is run outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
