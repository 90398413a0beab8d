package ftdna

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/alexreg/ycomp/internal/scrape"
)

// SNPGroupURL returns the public SNP results page of a group project.
func SNPGroupURL(group string) string {
	return fmt.Sprintf("https://www.familytreedna.com/public/%s?iframe=ysnp", url.PathEscape(group))
}

// STRGroupURL returns the public STR results page of a group project.
func STRGroupURL(group string) string {
	return fmt.Sprintf("https://www.familytreedna.com/public/%s?iframe=yresults", url.PathEscape(group))
}

// Table is a scraped results table: one header row plus data rows, all cells
// as trimmed text.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of the named header column, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Fetcher downloads a group project's paginated results table.
type Fetcher struct {
	// Client carries the (optional) session cookies. Defaults to
	// http.DefaultClient.
	Client *http.Client

	// PageSize, when non-zero, is requested from the page before paging
	// starts. Larger pages mean fewer postbacks.
	PageSize int

	// Progress, when set, receives human-readable progress lines.
	Progress func(format string, args ...any)
}

func (f *Fetcher) progress(format string, args ...any) {
	if f.Progress != nil {
		f.Progress(format, args...)
	}
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

// FetchKits walks every page of the results gridview at pageURL and returns
// the accumulated table.
func (f *Fetcher) FetchKits(ctx context.Context, pageURL string) (*Table, error) {
	f.progress("Fetching kits from <%s>...", pageURL)

	doc, baseURL, err := f.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	table := &Table{}
	sizeSet := false
	var prevRows [][]string

	for {
		if scrape.Find(doc, scrape.ID("MainContent_pnlNoYResults")) != nil {
			return nil, ErrResultsUnavailable
		}
		if scrape.Find(doc, scrape.ID("MainContent_pnlHiddenYResults")) != nil {
			return nil, ErrResultsHidden
		}

		form := scrape.Find(doc, func(n *html.Node) bool {
			return n.Data == "form" && scrape.Attr(n, "id") == "form1"
		})
		if form == nil {
			return nil, ErrUnknownPageLayout
		}

		gridview := scrape.Find(form, scrape.Class("AspNet-GridView"))
		if gridview == nil {
			return nil, ErrUnknownPageLayout
		}
		grid := scrape.Find(gridview, scrape.Tag("table"))
		if grid == nil {
			return nil, ErrUnknownPageLayout
		}

		fields := formFields(form)

		// Before paging, make sure the page size is what we asked for.
		if !sizeSet {
			input := scrape.Find(form, func(n *html.Node) bool {
				return n.Data == "input" && strings.Contains(scrape.Attr(n, "id"), "tbPageSize")
			})
			if input == nil {
				return nil, ErrUnknownPageLayout
			}
			name := scrape.Attr(input, "name")
			current, _ := strconv.Atoi(scrape.Attr(input, "value"))

			if f.PageSize == 0 || current == f.PageSize {
				sizeSet = true
			} else {
				f.progress("Updating page size to %d...", f.PageSize)
				fields.Set(name, strconv.Itoa(f.PageSize))
				doc, baseURL, err = f.postback(ctx, baseURL, form, fields, name, "")
				if err != nil {
					return nil, err
				}
				continue
			}
		}

		page, maxPage := paginationBounds(form)
		f.progress("Processing page %d of %d...", page, maxPage)

		rows := tableRows(grid)
		if len(rows) == 0 {
			return nil, ErrUnknownPageLayout
		}

		// A postback that lands on the same page means pagination stalled.
		if prevRows != nil && rowsEqual(rows, prevRows) {
			break
		}
		prevRows = rows

		if table.Header == nil {
			table.Header = rows[0]
		}
		// Every page repeats the header row.
		table.Rows = append(table.Rows, rows[1:]...)

		if page >= maxPage {
			break
		}

		// Postback target for the gridview is its div id in control form.
		target := "ctl00$" + strings.ReplaceAll(scrape.Attr(gridview, "id"), "_", "$")

		f.progress("Fetching page %d...", page+1)
		doc, baseURL, err = f.postback(ctx, baseURL, form, fields, target, fmt.Sprintf("Page$%d", page+1))
		if err != nil {
			return nil, err
		}
	}

	f.progress("Finished fetching kits.")
	return table, nil
}

// get fetches and parses a page, detecting the group-not-found redirect.
func (f *Fetcher) get(ctx context.Context, pageURL string) (*html.Node, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch FTDNA kits: %w", err)
	}

	resp, err := f.client().Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch FTDNA kits: %w", err)
	}
	defer resp.Body.Close()

	// Unknown groups bounce back to the FTDNA home page.
	if resp.StatusCode != http.StatusOK || resp.Request.URL.String() == siteURL {
		return nil, nil, ErrGroupNotFound
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch FTDNA kits: %w", err)
	}
	return doc, resp.Request.URL, nil
}

// postback submits the WebForms form with the given event target and
// argument, returning the parsed response.
func (f *Fetcher) postback(ctx context.Context, baseURL *url.URL, form *html.Node, fields url.Values, eventTarget, eventArgument string) (*html.Node, *url.URL, error) {
	fields.Set("__EVENTTARGET", eventTarget)
	fields.Set("__EVENTARGUMENT", eventArgument)

	action := scrape.Attr(form, "action")
	target := baseURL
	if action != "" {
		resolved, err := baseURL.Parse(action)
		if err != nil {
			return nil, nil, fmt.Errorf("fetch FTDNA kits: bad form action: %w", err)
		}
		target = resolved
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), strings.NewReader(fields.Encode()))
	if err != nil {
		return nil, nil, fmt.Errorf("fetch FTDNA kits: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client().Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch FTDNA kits: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("fetch FTDNA kits: unexpected status %s", resp.Status)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch FTDNA kits: %w", err)
	}
	return doc, resp.Request.URL, nil
}

// formFields collects the form's input values, the WebForms hidden state
// fields included. Buttons are left out, mirroring a submit with no button
// pressed.
func formFields(form *html.Node) url.Values {
	fields := url.Values{}
	for _, input := range scrape.FindAll(form, scrape.Tag("input")) {
		name := scrape.Attr(input, "name")
		if name == "" {
			continue
		}
		switch scrape.Attr(input, "type") {
		case "submit", "button", "image", "reset":
			continue
		case "checkbox", "radio":
			if scrape.Attr(input, "checked") == "" {
				continue
			}
		}
		fields.Set(name, scrape.Attr(input, "value"))
	}
	return fields
}

// paginationBounds extracts the current and maximum page numbers from the
// gridview's pagination strip ("<span>3</span> of 12").
func paginationBounds(form *html.Node) (page, maxPage int) {
	page, maxPage = 1, 1

	div := scrape.Find(form, scrape.Class("AspNet-GridView-Pagination"))
	if div == nil {
		return page, maxPage
	}

	for c := div.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.ElementNode && c.Data == "span":
			if n, err := strconv.Atoi(strings.TrimSpace(scrape.Text(c))); err == nil {
				page = n
			}
		case c.Type == html.TextNode:
			text := strings.TrimSpace(c.Data)
			if rest, ok := strings.CutPrefix(text, "of "); ok {
				if n, err := strconv.Atoi(strings.TrimSpace(rest)); err == nil {
					maxPage = n
				}
			}
		}
	}
	return page, maxPage
}

// tableRows flattens a table into rows of trimmed cell text.
func tableRows(table *html.Node) [][]string {
	var rows [][]string
	for _, tr := range scrape.FindAll(table, scrape.Tag("tr")) {
		var cells []string
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
				cells = append(cells, strings.TrimSpace(scrape.Text(c)))
			}
		}
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	}
	return rows
}

func rowsEqual(a, b [][]string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}
