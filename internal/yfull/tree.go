package yfull

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/alexreg/ycomp/internal/scrape"
	"github.com/alexreg/ycomp/internal/tree"
)

const treeURLTemplate = "https://www.yfull.com/tree/%s/"

// ErrHaplogroupNotFound is returned when YFull has no tree page for the
// requested haplogroup.
var ErrHaplogroupNotFound = fmt.Errorf("haplogroup not found in YFull tree")

var (
	snpNamePattern   = regexp.MustCompile(`^([A-Z0-9+.=]+)(\([A-Z]+\))?$`)
	agePattern       = regexp.MustCompile(`^formed (\d+) ybp, TMRCA (\d+) ybp$`)
	ageBoundsPattern = regexp.MustCompile(`^formed CI (\d+)% (\d+)<->(\d+) ybp, TMRCA CI (\d+)% (\d+)<->(\d+) ybp$`)
)

// TreeResult holds a parsed YFull subtree.
type TreeResult struct {
	Nodes   []tree.Node
	Aliases []tree.Alias

	// Warnings collects non-fatal parse issues, such as age annotations in
	// an unexpected format.
	Warnings []string
}

// FetchTree downloads the YFull subtree rooted at the given haplogroup.
func FetchTree(ctx context.Context, client *http.Client, haplogroup string) (*TreeResult, error) {
	if client == nil {
		client = http.DefaultClient
	}

	u := fmt.Sprintf(treeURLTemplate, url.PathEscape(haplogroup))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch YFull tree: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch YFull tree: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrHaplogroupNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch YFull tree: unexpected status %s", resp.Status)
	}

	return ParseTree(resp.Body)
}

// ParseTree parses a YFull tree page. The tree is a nested ul/li structure
// under ul#tree; each li names a haplogroup, its SNPs and age estimates,
// and nests its child clades in an inner ul.
func ParseTree(r io.Reader) (*TreeResult, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse YFull tree: %w", err)
	}

	root := scrape.Find(doc, func(n *html.Node) bool {
		return n.Data == "ul" && scrape.Attr(n, "id") == "tree"
	})
	if root == nil {
		return nil, fmt.Errorf("parse YFull tree: no tree element in page")
	}

	result := &TreeResult{}
	result.walk(root, "")
	return result, nil
}

func (r *TreeResult) walk(ul *html.Node, parent string) {
	for li := ul.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}

		nameLink := scrape.Child(li, scrape.Tag("a"))
		if nameLink == nil {
			continue
		}

		node := tree.Node{
			Name:   strings.TrimSpace(scrape.Text(nameLink)),
			Parent: parent,
		}

		if span := scrape.Child(li, scrape.Class("yf-snpforhg")); span != nil {
			node.PrimarySNPs = r.parseSNPList(scrape.Text(span))
		}
		if span := scrape.Child(li, scrape.Class("yf-plus-snps")); span != nil {
			node.ExtraSNPs = r.parseSNPList(scrape.Attr(span, "title"))
		}
		if span := scrape.Child(li, scrape.Class("yf-age")); span != nil {
			r.parseAge(&node, span)
		}

		r.Nodes = append(r.Nodes, node)

		if inner := scrape.Child(li, scrape.Tag("ul")); inner != nil {
			r.walk(inner, node.Name)
		}
	}
}

// parseSNPList splits a SNP annotation into individual names. Equivalence
// groups are separated by " * "; names within a group by "/". Every name in
// a group is recorded as an alias of the group's first name.
func (r *TreeResult) parseSNPList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var all []string
	for _, group := range strings.Split(s, " * ") {
		var names []string
		for _, raw := range strings.Split(group, "/") {
			m := snpNamePattern.FindStringSubmatch(strings.TrimSpace(raw))
			if m == nil {
				r.Warnings = append(r.Warnings, fmt.Sprintf("invalid SNP name %q", raw))
				continue
			}
			names = append(names, m[1])
		}
		if len(names) == 0 {
			continue
		}

		all = append(all, names...)
		for _, name := range names {
			r.Aliases = append(r.Aliases, tree.Alias{SNP: name, Standard: names[0]})
		}
	}
	return all
}

func (r *TreeResult) parseAge(node *tree.Node, span *html.Node) {
	ageText := strings.TrimSpace(scrape.Text(span))
	if m := agePattern.FindStringSubmatch(ageText); m != nil {
		node.Age = atoiPtr(m[1])
		node.TMRCA = atoiPtr(m[2])
	} else {
		r.Warnings = append(r.Warnings, fmt.Sprintf("unexpected age format for haplogroup %s: %q", node.Name, ageText))
	}

	boundsText := scrape.Attr(span, "title")
	if m := ageBoundsPattern.FindStringSubmatch(boundsText); m != nil {
		node.AgeCL = atoiPtr(m[1])
		node.AgeMin = atoiPtr(m[2])
		node.AgeMax = atoiPtr(m[3])
		node.TMRCACL = atoiPtr(m[4])
		node.TMRCAMin = atoiPtr(m[5])
		node.TMRCAMax = atoiPtr(m[6])
	} else {
		r.Warnings = append(r.Warnings, fmt.Sprintf("unexpected age bounds format for haplogroup %s: %q", node.Name, boundsText))
	}
}

func atoiPtr(s string) *int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
