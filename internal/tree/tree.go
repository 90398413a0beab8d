package tree

import "sort"

// Node is one haplogroup in the tree. Ages are in years before present;
// a nil value means the source page did not publish the figure.
type Node struct {
	Name        string
	Parent      string // empty for the subtree root
	PrimarySNPs []string
	ExtraSNPs   []string

	Age      *int // formed age
	AgeCL    *int // confidence level, percent
	AgeMin   *int
	AgeMax   *int
	TMRCA    *int
	TMRCACL  *int
	TMRCAMin *int
	TMRCAMax *int
}

// Alias links a SNP name to the standard name of its equivalence group, as
// published on the tree pages ("M269/PF6517" makes PF6517 an alias of M269).
type Alias struct {
	SNP      string
	Standard string
}

// Tree is a haplogroup tree indexed by haplogroup name.
type Tree struct {
	nodes map[string]*Node
}

// New builds a tree from a set of nodes. Later duplicates replace earlier
// ones, matching the merge-keeps-newest semantics of the store.
func New(nodes []Node) *Tree {
	t := &Tree{nodes: make(map[string]*Node, len(nodes))}
	for i := range nodes {
		n := nodes[i]
		t.nodes[n.Name] = &n
	}
	return t
}

// Len returns the number of haplogroups in the tree.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

// Names returns all haplogroup names in sorted order.
func (t *Tree) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.nodes))
	for name := range t.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Node returns the named haplogroup, or nil if absent.
func (t *Tree) Node(name string) *Node {
	if t == nil {
		return nil
	}
	return t.nodes[name]
}

// Lineage walks parent links from hg to the subtree root. The result starts
// with hg itself and ends at the most ancestral known haplogroup. A
// haplogroup absent from the tree still contributes itself, so kits with
// unknown clades compare as lineage length 1.
func (t *Tree) Lineage(hg string) []string {
	if hg == "" {
		return nil
	}

	var lineage []string
	seen := make(map[string]bool)
	for cur := hg; cur != "" && !seen[cur]; {
		seen[cur] = true
		lineage = append(lineage, cur)

		node := t.Node(cur)
		if node == nil {
			break
		}
		cur = node.Parent
	}
	return lineage
}

// CommonLineage returns the shared trunk of two lineages: the longest run of
// haplogroups, counted from the root end, on which both agree.
func CommonLineage(a, b []string) []string {
	var common []string
	for i, j := len(a)-1, len(b)-1; i >= 0 && j >= 0; i, j = i-1, j-1 {
		if a[i] != b[j] {
			break
		}
		common = append(common, a[i])
	}
	return common
}

// Filter restricts which kits an analysis compares against.
type Filter struct {
	// Clade, when non-empty, requires the candidate's lineage to pass
	// through this haplogroup.
	Clade string

	// MaxDiff, when non-nil, caps the difference in generations between the
	// reference and the candidate counted from their common ancestor.
	MaxDiff *int
}

// MatchesLineage reports whether a candidate haplogroup passes the filter
// relative to a reference lineage.
func (t *Tree) MatchesLineage(refLineage []string, candidate string, f Filter) bool {
	candLineage := t.Lineage(candidate)

	if f.Clade != "" {
		found := false
		for _, hg := range candLineage {
			if hg == f.Clade {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.MaxDiff != nil {
		common := CommonLineage(refLineage, candLineage)
		refPos := len(refLineage) - len(common)
		candPos := len(candLineage) - len(common)
		diff := refPos - candPos
		if diff < 0 {
			diff = -diff
		}
		if diff > *f.MaxDiff {
			return false
		}
	}

	return true
}

// RelevantSNPs returns the SNPs of all haplogroups whose TMRCA is at most
// maxAge years before present. Haplogroups without a published TMRCA are
// treated as too old to matter.
func (t *Tree) RelevantSNPs(maxAge int) map[string]bool {
	snps := make(map[string]bool)
	if t == nil {
		return snps
	}
	for _, node := range t.nodes {
		if node.TMRCA == nil || *node.TMRCA > maxAge {
			continue
		}
		for _, snp := range node.PrimarySNPs {
			snps[snp] = true
		}
		for _, snp := range node.ExtraSNPs {
			snps[snp] = true
		}
	}
	return snps
}
