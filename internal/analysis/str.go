package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/alexreg/ycomp/internal/marker"
	"github.com/alexreg/ycomp/internal/store"
	"github.com/alexreg/ycomp/internal/tree"
)

// DefaultConfidenceLevel is the two-sided confidence level used for genetic
// distance intervals.
const DefaultConfidenceLevel = 0.95

// STROptions configures an STR comparison.
type STROptions struct {
	RefKit          string
	Filter          tree.Filter
	ConfidenceLevel float64 // <= 0 means DefaultConfidenceLevel
}

// STRResult is the genetic distance between one kit and the reference.
type STRResult struct {
	Kit marker.Kit

	// Compared is the number of allele values compared; a multi-copy locus
	// contributes one per copy.
	Compared int

	// AbsoluteDistance sums the per-value repeat differences.
	AbsoluteDistance float64

	// RelativeDistance is the mean per-value difference, with a confidence
	// interval [Min, Max] of half-width CI around it.
	RelativeDistance float64
	CI               float64
	Min              float64
	Max              float64
}

// STRReport is the full outcome of an STR analysis.
type STRReport struct {
	Results []STRResult

	ComparedKits int
	ComparedLoci int
}

// AnalyzeSTR computes genetic distance from the reference kit to every other
// kit in its lineage.
//
// Distance at a locus is the absolute repeat difference, with multi-copy
// loci matched copy-to-copy by whichever pairing minimizes the total.
// Results sort by the upper bound of the distance interval, closest first.
func AnalyzeSTR(kits []store.STRKit, tr *tree.Tree, opts STROptions) (*STRReport, error) {
	confidence := opts.ConfidenceLevel
	if confidence <= 0 {
		confidence = DefaultConfidenceLevel
	}

	ref, others, err := splitSTRReference(kits, opts.RefKit)
	if err != nil {
		return nil, err
	}

	refLineage := tr.Lineage(ref.Haplogroup)
	var population []store.STRKit
	for _, kit := range others {
		if tr.MatchesLineage(refLineage, kit.Haplogroup, opts.Filter) {
			population = append(population, kit)
		}
	}

	// Every locus any compared kit reports, with its widest copy count, so
	// the finite-population correction has a stable universe size.
	loci := make(map[string]int)
	record := func(profile marker.STRProfile) {
		for locus, values := range profile {
			if len(values) > loci[locus] {
				loci[locus] = len(values)
			}
		}
	}
	record(ref.Profile)
	for _, kit := range population {
		record(kit.Profile)
	}

	totalValues := 0
	for _, copies := range loci {
		totalValues += copies
	}

	report := &STRReport{
		ComparedKits: len(population),
		ComparedLoci: len(loci),
	}

	z := math.Sqrt2 * math.Erfinv(confidence)

	for _, kit := range population {
		result := STRResult{Kit: kit.Kit}

		var diffs []float64
		for locus := range loci {
			a, b := ref.Profile[locus], kit.Profile[locus]
			if len(a) == 0 || len(b) == 0 {
				continue
			}
			diffs = append(diffs, locusDiffs(a, b)...)
		}

		result.Compared = len(diffs)
		for _, d := range diffs {
			result.AbsoluteDistance += d
		}
		if result.Compared > 0 {
			result.RelativeDistance = result.AbsoluteDistance / float64(result.Compared)
		}
		result.CI = z * sampleStderr(diffs, totalValues)
		result.Min = result.RelativeDistance - result.CI
		result.Max = result.RelativeDistance + result.CI

		report.Results = append(report.Results, result)
	}

	sort.SliceStable(report.Results, func(i, j int) bool {
		a, b := report.Results[i], report.Results[j]
		if a.Max != b.Max {
			return a.Max < b.Max
		}
		return a.Kit.Number < b.Kit.Number
	})

	return report, nil
}

func splitSTRReference(kits []store.STRKit, refKit string) (store.STRKit, []store.STRKit, error) {
	var ref *store.STRKit
	others := make([]store.STRKit, 0, len(kits))
	for i := range kits {
		if kits[i].Number == refKit {
			ref = &kits[i]
		} else {
			others = append(others, kits[i])
		}
	}
	if ref == nil {
		return store.STRKit{}, nil, fmt.Errorf("kit %s not found", refKit)
	}
	return *ref, others, nil
}

// locusDiffs compares two allele lists of one locus and returns one diff per
// matched copy pair and one per unmatched copy, under whichever
// order-preserving pairing minimizes the total. Copies pair up in order; when
// one kit reports extra copies, each unpaired copy costs one mutation plus
// its distance to the nearer adjacent copy in its own list (a duplication
// then a stepwise walk).
func locusDiffs(a, b marker.Alleles) []float64 {
	if len(a) > len(b) {
		a, b = b, a
	}

	var best []float64
	bestTotal := math.Inf(1)
	for _, picked := range combinations(len(b), len(a)) {
		diffs := make([]float64, 0, len(b))
		for i, j := range picked {
			diffs = append(diffs, valueDistance(a[i], b[j]))
		}
		for j := 0; j < len(b); j++ {
			if containsIndex(picked, j) {
				continue
			}
			diffs = append(diffs, 1+neighborDistance(b, j))
		}

		var total float64
		for _, d := range diffs {
			total += d
		}
		if total < bestTotal {
			bestTotal = total
			best = diffs
		}
	}
	return best
}

// valueDistance is the stepwise difference between two repeat counts. A
// zero value means the copy exists but its length is unknown, which still
// counts as one mutation.
func valueDistance(a, b int) float64 {
	if a == 0 || b == 0 {
		return 1
	}
	return math.Abs(float64(a - b))
}

// neighborDistance is the raw repeat difference from the copy at index j to
// the nearer of its adjacent copies in the same list.
func neighborDistance(values marker.Alleles, j int) float64 {
	nearest := 1000.0
	if j > 0 {
		if d := math.Abs(float64(values[j] - values[j-1])); d < nearest {
			nearest = d
		}
	}
	if j < len(values)-1 {
		if d := math.Abs(float64(values[j] - values[j+1])); d < nearest {
			nearest = d
		}
	}
	return nearest
}

func containsIndex(picked []int, j int) bool {
	for _, p := range picked {
		if p == j {
			return true
		}
	}
	return false
}

// combinations enumerates every strictly increasing k-subset of [0, n).
func combinations(n, k int) [][]int {
	if k == 0 {
		return [][]int{nil}
	}
	var out [][]int
	indices := make([]int, k)
	for i := range indices {
		indices[i] = i
	}
	for {
		out = append(out, append([]int(nil), indices...))

		i := k - 1
		for i >= 0 && indices[i] == n-k+i {
			i--
		}
		if i < 0 {
			break
		}
		indices[i]++
		for j := i + 1; j < k; j++ {
			indices[j] = indices[j-1] + 1
		}
	}
	return out
}

// sampleStderr is the standard error of the mean of diffs, corrected for
// sampling without replacement from a finite universe of total allele values.
func sampleStderr(diffs []float64, total int) float64 {
	n := len(diffs)
	if n < 2 || total <= n {
		return 0
	}

	var mean float64
	for _, d := range diffs {
		mean += d
	}
	mean /= float64(n)

	var variance float64
	for _, d := range diffs {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(n - 1)

	stderr := math.Sqrt(variance / float64(n))
	fpc := math.Sqrt(float64(total-n) / float64(total-1))
	return stderr * fpc
}
