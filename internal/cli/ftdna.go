package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexreg/ycomp/internal/ftdna"
	"github.com/alexreg/ycomp/internal/store"
)

// NewFTDNACommand creates the ftdna command group.
func NewFTDNACommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ftdna",
		Short: "Manage the FTDNA session",
	}

	cmd.AddCommand(newFTDNASigninCommand(rootOpts))
	cmd.AddCommand(newFTDNASessionCommand(rootOpts))
	cmd.AddCommand(newFTDNASignoutCommand(rootOpts))

	return cmd
}

// FTDNASigninOptions holds flags for the ftdna signin command.
type FTDNASigninOptions struct {
	*RootOptions
	Username string
	Cookies  string
}

func newFTDNASigninCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FTDNASigninOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Import an FTDNA browser session",
		Long: `Import session cookies exported from a signed-in FTDNA browser tab
(JSON array format, as produced by common cookie-export extensions).
Subsequent fetch-ftdna commands attach the cookies to their requests.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFTDNASignin(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Username, "username", "", "FTDNA account name (required)")
	cmd.Flags().StringVar(&opts.Cookies, "cookies", "", "path of the cookie export file (default from config)")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func runFTDNASignin(opts *FTDNASigninOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	path := opts.Cookies
	if path == "" {
		path = opts.Config.FTDNA.CookieFile
	}
	if path == "" {
		_ = formatter.Error(ErrCodeGeneric, "no cookie file given; pass --cookies", nil)
		return NewExitError(ExitCommandError, "cookie file required")
	}

	cookies, err := ftdna.ReadCookieFile(path)
	if err != nil {
		_ = formatter.Error(ErrCodeParseFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read cookie file", err)
	}

	now := time.Now()
	session := &ftdna.Session{Username: opts.Username, ImportedAt: now, Cookies: cookies}
	if session.Expired(now) {
		_ = formatter.Error(ErrCodeNoSession, "session cookies have already expired; export fresh ones", nil)
		return NewExitError(ExitFailure, "session expired")
	}

	data, err := json.Marshal(cookies)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode cookies", err)
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.PutSession(ctx, opts.Username, now, data); err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, fmt.Sprintf("storing session: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to store session", err)
	}

	expiry := session.MinExpiry()
	if formatter.Format == "json" {
		result := map[string]interface{}{"username": opts.Username, "cookies": len(cookies)}
		if !expiry.IsZero() {
			result["expires"] = expiry.Format(time.RFC3339)
		}
		return formatter.Success(result)
	}
	if expiry.IsZero() {
		fmt.Fprintf(formatter.Writer, "✓ Signed in as %s\n", opts.Username)
	} else {
		fmt.Fprintf(formatter.Writer, "✓ Signed in as %s (session expires %s)\n",
			opts.Username, expiry.Format("2006-01-02 15:04"))
	}
	return nil
}

func newFTDNASessionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "session",
		Short:         "Show the stored FTDNA session",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFTDNASession(rootOpts, cmd)
		},
	}

	return cmd
}

func runFTDNASession(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	ctx := commandContext(cmd)

	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	session, err := loadFTDNASession(ctx, st)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}
	if session == nil {
		_ = formatter.Error(ErrCodeNoSession, "not signed in", nil)
		return NewExitError(ExitFailure, "not signed in")
	}

	now := time.Now()
	expiry := session.MinExpiry()
	expired := session.Expired(now)

	if formatter.Format == "json" {
		result := map[string]interface{}{
			"username":    session.Username,
			"imported_at": session.ImportedAt.Format(time.RFC3339),
			"expired":     expired,
		}
		if !expiry.IsZero() {
			result["expires"] = expiry.Format(time.RFC3339)
		}
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Signed in as: %s\n", session.Username)
	fmt.Fprintf(w, "Imported:     %s\n", session.ImportedAt.Format("2006-01-02 15:04"))
	switch {
	case expired:
		fmt.Fprintf(w, "Expired:      %s (sign in again)\n", expiry.Format("2006-01-02 15:04"))
	case expiry.IsZero():
		fmt.Fprintln(w, "Expires:      unknown")
	default:
		fmt.Fprintf(w, "Expires:      %s\n", expiry.Format("2006-01-02 15:04"))
	}
	return nil
}

func newFTDNASignoutCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "signout",
		Short:         "Discard the stored FTDNA session",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFTDNASignout(rootOpts, cmd)
		},
	}

	return cmd
}

func runFTDNASignout(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	ctx := commandContext(cmd)

	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.ClearSession(ctx); err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, fmt.Sprintf("clearing session: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to clear session", err)
	}

	return formatter.Success("✓ Signed out")
}

// loadFTDNASession reconstructs the stored FTDNA session, or nil when
// signed out.
func loadFTDNASession(ctx context.Context, st *store.Store) (*ftdna.Session, error) {
	stored, err := st.GetSession(ctx)
	if err != nil || stored == nil {
		return nil, err
	}

	var cookies []ftdna.Cookie
	if err := json.Unmarshal(stored.CookiesJSON, &cookies); err != nil {
		return nil, fmt.Errorf("stored session is corrupt: %w", err)
	}
	return &ftdna.Session{
		Username:   stored.Username,
		ImportedAt: stored.ImportedAt,
		Cookies:    cookies,
	}, nil
}

// fetchFTDNATable resolves group and page size, builds a session-carrying
// client and downloads the full results table. The timeout grows with the
// page size; WebForms postbacks get slower the more rows they carry.
func fetchFTDNATable(
	ctx context.Context,
	opts *FTDNAFetchOptions,
	formatter *OutputFormatter,
	st *store.Store,
	groupURL func(string) string,
	defaultPageSize int,
	perKit time.Duration,
) (*ftdna.Table, string, error) {
	group := opts.Group
	if group == "" {
		group = opts.Config.FTDNA.Group
	}
	if group == "" {
		_ = formatter.Error(ErrCodeGeneric, "no group project given; pass --group", nil)
		return nil, "", NewExitError(ExitCommandError, "group required")
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = opts.Config.FTDNA.PageSize
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	session, err := loadFTDNASession(ctx, st)
	if err != nil {
		return nil, "", WrapExitError(ExitCommandError, "failed to read session", err)
	}
	if session != nil && session.Expired(time.Now()) {
		formatter.VerboseLog("warning: stored FTDNA session has expired; fetching anonymously")
		session = nil
	}

	timeout := opts.Config.FTDNA.Timeout.Std() + time.Duration(pageSize)*perKit
	client, err := ftdna.NewClient(session, timeout)
	if err != nil {
		return nil, "", WrapExitError(ExitCommandError, "failed to build HTTP client", err)
	}

	fetcher := &ftdna.Fetcher{
		Client:   client,
		PageSize: pageSize,
		Progress: formatter.VerboseLog,
	}

	table, err := fetcher.FetchKits(ctx, groupURL(group))
	if err != nil {
		switch {
		case errors.Is(err, ftdna.ErrGroupNotFound):
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("group project %q not found", group), nil)
		case errors.Is(err, ftdna.ErrResultsUnavailable):
			_ = formatter.Error(ErrCodeFetchFailed, fmt.Sprintf("group %q publishes no results of this kind", group), nil)
		case errors.Is(err, ftdna.ErrResultsHidden):
			_ = formatter.Error(ErrCodeFetchFailed, fmt.Sprintf("group %q hides its results from non-members", group), nil)
		default:
			_ = formatter.Error(ErrCodeFetchFailed, fmt.Sprintf("fetching results: %v", err), nil)
		}
		return nil, "", WrapExitError(ExitFailure, "failed to fetch results", err)
	}
	return table, group, nil
}
