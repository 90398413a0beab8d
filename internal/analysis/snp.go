package analysis

import (
	"fmt"
	"sort"

	"github.com/alexreg/ycomp/internal/marker"
	"github.com/alexreg/ycomp/internal/store"
	"github.com/alexreg/ycomp/internal/tree"
)

// DefaultSNPMaxAge is the default TMRCA cutoff for relevant SNPs, in years
// before present. SNPs on older clades are shared by whole continents and
// say nothing about recent kinship.
const DefaultSNPMaxAge = 3500

// SNPOptions configures a SNP comparison.
type SNPOptions struct {
	RefKit string
	MaxAge int // TMRCA cutoff; <= 0 means DefaultSNPMaxAge
	Filter tree.Filter
}

// SNPShare tallies one class of shared SNPs against the reference kit.
type SNPShare struct {
	SNPs     []string // sorted names of the shared SNPs
	Count    int
	Compared int // size of the population the count is drawn from
}

// Fraction returns Count/Compared, or 0 when nothing was comparable.
func (s SNPShare) Fraction() float64 {
	if s.Compared == 0 {
		return 0
	}
	return float64(s.Count) / float64(s.Compared)
}

// SNPResult is the comparison outcome for one kit.
//
// Shared counts SNPs both kits called positive, over the SNPs both called.
// Assumed counts SNPs positive on one side and untested on the other, over
// the SNPs exactly one side called. All sums the two.
type SNPResult struct {
	Kit     marker.Kit
	Shared  SNPShare
	Assumed SNPShare
	All     SNPShare
}

// SNPReport is the full outcome of a SNP analysis.
type SNPReport struct {
	Results []SNPResult

	// ComparedKits and ComparedSNPs describe the population after lineage
	// filtering and SNP relevance/alias merging.
	ComparedKits int
	ComparedSNPs int
}

// AnalyzeSNP compares the reference kit's SNP calls against every other kit.
//
// When a tree is available, SNPs of clades older than MaxAge are dropped and
// kits outside the lineage filter are skipped. Equivalent SNP names (aliases
// from the tree) are merged onto their standard name before comparison.
func AnalyzeSNP(kits []store.SNPKit, tr *tree.Tree, aliases map[string]string, opts SNPOptions) (*SNPReport, error) {
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultSNPMaxAge
	}

	ref, others, err := splitSNPReference(kits, opts.RefKit)
	if err != nil {
		return nil, err
	}

	refLineage := tr.Lineage(ref.Haplogroup)
	var population []store.SNPKit
	for _, kit := range others {
		if tr.MatchesLineage(refLineage, kit.Haplogroup, opts.Filter) {
			population = append(population, kit)
		}
	}

	// With a tree, only SNPs young enough to separate the population count.
	var relevant map[string]bool
	if tr.Len() > 0 {
		relevant = tr.RelevantSNPs(maxAge)
	}

	refProfile := canonicalProfile(ref.Profile, relevant, aliases)

	universe := make(map[string]bool)
	for snp := range refProfile {
		universe[snp] = true
	}
	profiles := make([]marker.SNPProfile, len(population))
	for i, kit := range population {
		profiles[i] = canonicalProfile(kit.Profile, relevant, aliases)
		for snp := range profiles[i] {
			universe[snp] = true
		}
	}

	snps := make([]string, 0, len(universe))
	for snp := range universe {
		snps = append(snps, snp)
	}
	sort.Strings(snps)

	report := &SNPReport{
		ComparedKits: len(population),
		ComparedSNPs: len(snps),
	}

	for i, kit := range population {
		result := SNPResult{Kit: kit.Kit}
		profile := profiles[i]

		for _, snp := range snps {
			refCall := refProfile[snp]
			kitCall := profile[snp]

			switch {
			case refCall != marker.NoCall && kitCall != marker.NoCall:
				result.Shared.Compared++
				if refCall == marker.Positive && kitCall == marker.Positive {
					result.Shared.SNPs = append(result.Shared.SNPs, snp)
					result.Shared.Count++
				}
			case refCall != marker.NoCall || kitCall != marker.NoCall:
				result.Assumed.Compared++
				if refCall == marker.Positive || kitCall == marker.Positive {
					result.Assumed.SNPs = append(result.Assumed.SNPs, snp)
					result.Assumed.Count++
				}
			}
		}

		result.All = SNPShare{
			SNPs:     mergeSorted(result.Shared.SNPs, result.Assumed.SNPs),
			Count:    result.Shared.Count + result.Assumed.Count,
			Compared: result.Shared.Compared + result.Assumed.Compared,
		}

		report.Results = append(report.Results, result)
	}

	sort.SliceStable(report.Results, func(i, j int) bool {
		a, b := report.Results[i], report.Results[j]
		if a.All.Count != b.All.Count {
			return a.All.Count > b.All.Count
		}
		return a.Kit.Number < b.Kit.Number
	})

	return report, nil
}

func splitSNPReference(kits []store.SNPKit, refKit string) (store.SNPKit, []store.SNPKit, error) {
	var ref *store.SNPKit
	others := make([]store.SNPKit, 0, len(kits))
	for i := range kits {
		if kits[i].Number == refKit {
			ref = &kits[i]
		} else {
			others = append(others, kits[i])
		}
	}
	if ref == nil {
		return store.SNPKit{}, nil, fmt.Errorf("kit %s not found", refKit)
	}
	return *ref, others, nil
}

// canonicalProfile drops irrelevant SNPs and folds aliases onto their
// standard names. When aliases disagree, a positive call wins over a
// negative one; no-calls never override a definite call.
func canonicalProfile(profile marker.SNPProfile, relevant map[string]bool, aliases map[string]string) marker.SNPProfile {
	canonical := make(marker.SNPProfile, len(profile))
	for snp, call := range profile {
		if relevant != nil && !relevant[snp] {
			continue
		}
		if std, ok := aliases[snp]; ok {
			snp = std
		}

		existing, ok := canonical[snp]
		if !ok || call == marker.Positive || (call == marker.Negative && existing == marker.NoCall) {
			canonical[snp] = call
		}
	}
	return canonical
}

// mergeSorted merges two sorted string slices into one sorted slice.
func mergeSorted(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	merged := make([]string, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)
	sort.Strings(merged)
	return merged
}
