package yfull

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const treePage = `<html><body>
<ul id="tree">
  <li>
    <a href="/tree/R-M269/">R-M269</a>
    <span class="yf-snpforhg">M269/PF6517</span>
    <span class="yf-age" title="formed CI 95% 13000<->12800 ybp, TMRCA CI 95% 6500<->6300 ybp">formed 12900 ybp, TMRCA 6400 ybp</span>
    <ul>
      <li>
        <a href="/tree/R-P312/">R-P312</a>
        <span class="yf-snpforhg">P312/S116</span>
        <span class="yf-plus-snps" title="Z1904 * PF6547">+2 SNPs</span>
        <span class="yf-age" title="formed CI 95% 4900<->4400 ybp, TMRCA CI 95% 4700<->4300 ybp">formed 4600 ybp, TMRCA 4500 ybp</span>
      </li>
      <li>
        <a href="/tree/R-U106/">R-U106</a>
        <span class="yf-snpforhg">U106</span>
        <span class="yf-age" title="not a bounds string">formed soon</span>
      </li>
    </ul>
  </li>
</ul>
</body></html>`

func TestParseTree(t *testing.T) {
	result, err := ParseTree(strings.NewReader(treePage))
	require.NoError(t, err)
	require.Len(t, result.Nodes, 3)

	m269 := result.Nodes[0]
	assert.Equal(t, "R-M269", m269.Name)
	assert.Equal(t, "", m269.Parent)
	assert.Equal(t, []string{"M269", "PF6517"}, m269.PrimarySNPs)
	require.NotNil(t, m269.Age)
	assert.Equal(t, 12900, *m269.Age)
	assert.Equal(t, 6400, *m269.TMRCA)
	assert.Equal(t, 95, *m269.TMRCACL)
	assert.Equal(t, 6500, *m269.TMRCAMin)
	assert.Equal(t, 6300, *m269.TMRCAMax)

	p312 := result.Nodes[1]
	assert.Equal(t, "R-M269", p312.Parent)
	assert.Equal(t, []string{"P312", "S116"}, p312.PrimarySNPs)
	assert.Equal(t, []string{"Z1904", "PF6547"}, p312.ExtraSNPs)

	u106 := result.Nodes[2]
	assert.Equal(t, "R-U106", u106.Name)
	assert.Nil(t, u106.Age)

	// Malformed age annotations warn instead of failing.
	require.Len(t, result.Warnings, 2)
	assert.Contains(t, result.Warnings[0], "R-U106")
}

func TestParseTreeAliases(t *testing.T) {
	result, err := ParseTree(strings.NewReader(treePage))
	require.NoError(t, err)

	byName := make(map[string]string)
	for _, alias := range result.Aliases {
		byName[alias.SNP] = alias.Standard
	}

	// Every name in a "/" group maps to the group's first name.
	assert.Equal(t, "M269", byName["M269"])
	assert.Equal(t, "M269", byName["PF6517"])
	assert.Equal(t, "P312", byName["S116"])
	// " * " separates independent groups.
	assert.Equal(t, "Z1904", byName["Z1904"])
	assert.Equal(t, "PF6547", byName["PF6547"])
}

func TestParseTreeNoTreeElement(t *testing.T) {
	_, err := ParseTree(strings.NewReader("<html><body><p>nothing here</p></body></html>"))
	assert.Error(t, err)
}

func TestFetchTree(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "R-M269") {
			w.Write([]byte(treePage))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	// Point the template at the test server via a rewriting transport.
	client := &http.Client{Transport: rewriteTransport{srv.URL}}

	result, err := FetchTree(context.Background(), client, "R-M269")
	require.NoError(t, err)
	assert.Len(t, result.Nodes, 3)

	_, err = FetchTree(context.Background(), client, "R-NOPE")
	assert.ErrorIs(t, err, ErrHaplogroupNotFound)
}

// rewriteTransport redirects all requests to a test server.
type rewriteTransport struct {
	base string
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rewritten := t.base + req.URL.Path
	clone := req.Clone(req.Context())
	u, err := req.URL.Parse(rewritten)
	if err != nil {
		return nil, err
	}
	clone.URL = u
	clone.Host = u.Host
	return http.DefaultTransport.RoundTrip(clone)
}
