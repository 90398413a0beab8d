package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

// testTree builds a small R1b subtree:
//
//	R1b ─ R1b-M269 ─ R1b-P312 ─ R1b-L21
//	                └ R1b-U106
func testTree() *Tree {
	return New([]Node{
		{Name: "R1b", PrimarySNPs: []string{"M343"}, TMRCA: intPtr(20000)},
		{Name: "R1b-M269", Parent: "R1b", PrimarySNPs: []string{"M269"}, TMRCA: intPtr(6400)},
		{Name: "R1b-P312", Parent: "R1b-M269", PrimarySNPs: []string{"P312"}, ExtraSNPs: []string{"S116"}, TMRCA: intPtr(4500)},
		{Name: "R1b-L21", Parent: "R1b-P312", PrimarySNPs: []string{"L21"}, TMRCA: intPtr(4400)},
		{Name: "R1b-U106", Parent: "R1b-M269", PrimarySNPs: []string{"U106"}, TMRCA: intPtr(4800)},
	})
}

func TestLineage(t *testing.T) {
	tr := testTree()

	assert.Equal(t, []string{"R1b-L21", "R1b-P312", "R1b-M269", "R1b"}, tr.Lineage("R1b-L21"))
	assert.Equal(t, []string{"R1b"}, tr.Lineage("R1b"))

	// Unknown haplogroups still contribute themselves.
	assert.Equal(t, []string{"I1"}, tr.Lineage("I1"))
	assert.Nil(t, tr.Lineage(""))
}

func TestLineageCycleSafe(t *testing.T) {
	tr := New([]Node{
		{Name: "A", Parent: "B"},
		{Name: "B", Parent: "A"},
	})
	// Must terminate even with corrupt parent links.
	assert.Equal(t, []string{"A", "B"}, tr.Lineage("A"))
}

func TestCommonLineage(t *testing.T) {
	tr := testTree()

	common := CommonLineage(tr.Lineage("R1b-L21"), tr.Lineage("R1b-U106"))
	assert.Equal(t, []string{"R1b", "R1b-M269"}, common)

	assert.Empty(t, CommonLineage(tr.Lineage("R1b-L21"), []string{"I1"}))
}

func TestMatchesLineage(t *testing.T) {
	tr := testTree()
	ref := tr.Lineage("R1b-L21")

	// No filter: everything passes.
	assert.True(t, tr.MatchesLineage(ref, "R1b-U106", Filter{}))
	assert.True(t, tr.MatchesLineage(ref, "I1", Filter{}))

	// Clade filter.
	assert.True(t, tr.MatchesLineage(ref, "R1b-U106", Filter{Clade: "R1b-M269"}))
	assert.False(t, tr.MatchesLineage(ref, "R1b-U106", Filter{Clade: "R1b-P312"}))
	assert.False(t, tr.MatchesLineage(ref, "I1", Filter{Clade: "R1b"}))

	// Generation-difference filter: L21 is 2 below the common ancestor with
	// U106 (M269), U106 is 1 below, diff = 1.
	assert.True(t, tr.MatchesLineage(ref, "R1b-U106", Filter{MaxDiff: intPtr(1)}))
	assert.False(t, tr.MatchesLineage(ref, "R1b-M269", Filter{MaxDiff: intPtr(1)}))
	assert.True(t, tr.MatchesLineage(ref, "R1b-M269", Filter{MaxDiff: intPtr(2)}))
}

func TestRelevantSNPs(t *testing.T) {
	tr := testTree()

	snps := tr.RelevantSNPs(4500)
	require.Len(t, snps, 3)
	assert.True(t, snps["P312"])
	assert.True(t, snps["S116"])
	assert.True(t, snps["L21"])
	assert.False(t, snps["M269"])

	// No published TMRCA means excluded.
	tr2 := New([]Node{{Name: "X", PrimarySNPs: []string{"X1"}}})
	assert.Empty(t, tr2.RelevantSNPs(100000))
}

func TestNilTree(t *testing.T) {
	var tr *Tree
	assert.Equal(t, 0, tr.Len())
	assert.Equal(t, []string{"R1b"}, tr.Lineage("R1b"))
	assert.True(t, tr.MatchesLineage([]string{"R1b"}, "I1", Filter{}))
	assert.Empty(t, tr.RelevantSNPs(1000))
}
