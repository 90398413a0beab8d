package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexreg/ycomp/internal/marker"
	"github.com/alexreg/ycomp/internal/store"
	"github.com/alexreg/ycomp/internal/tree"
)

func snpKit(number, haplogroup string, profile marker.SNPProfile) store.SNPKit {
	return store.SNPKit{
		Kit:     marker.Kit{Number: number, Haplogroup: haplogroup},
		Profile: profile,
	}
}

func TestAnalyzeSNPCounts(t *testing.T) {
	kits := []store.SNPKit{
		snpKit("YF001", "", marker.SNPProfile{
			"M269": marker.Positive,
			"U106": marker.Negative,
			"L21":  marker.Positive,
		}),
		snpKit("YF002", "", marker.SNPProfile{
			"M269": marker.Positive,
			"L21":  marker.Negative,
		}),
		snpKit("YF003", "", marker.SNPProfile{
			"M269": marker.Positive,
			"P312": marker.Positive,
		}),
	}

	report, err := AnalyzeSNP(kits, tree.New(nil), nil, SNPOptions{RefKit: "YF001"})
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.Equal(t, 2, report.ComparedKits)
	assert.Equal(t, 4, report.ComparedSNPs)

	// YF003 shares more markers overall, so it sorts first.
	first := report.Results[0]
	assert.Equal(t, "YF003", first.Kit.Number)
	assert.Equal(t, []string{"M269"}, first.Shared.SNPs)
	assert.Equal(t, 1, first.Shared.Compared)
	assert.Equal(t, []string{"L21", "P312"}, first.Assumed.SNPs)
	assert.Equal(t, 3, first.Assumed.Compared)
	assert.Equal(t, 3, first.All.Count)
	assert.Equal(t, 4, first.All.Compared)

	second := report.Results[1]
	assert.Equal(t, "YF002", second.Kit.Number)
	assert.Equal(t, 1, second.Shared.Count)
	assert.Equal(t, 2, second.Shared.Compared)
	assert.Equal(t, 0, second.Assumed.Count)
	assert.Equal(t, 1, second.Assumed.Compared)
	assert.InDelta(t, 1.0/3.0, second.All.Fraction(), 1e-9)
}

func TestAnalyzeSNPMergesAliases(t *testing.T) {
	kits := []store.SNPKit{
		snpKit("YF001", "", marker.SNPProfile{"M269": marker.Positive}),
		snpKit("YF002", "", marker.SNPProfile{"PF6517": marker.Positive}),
	}
	aliases := map[string]string{"PF6517": "M269"}

	report, err := AnalyzeSNP(kits, tree.New(nil), aliases, SNPOptions{RefKit: "YF001"})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	// PF6517 folds onto M269, so both kits share it.
	assert.Equal(t, []string{"M269"}, report.Results[0].Shared.SNPs)
	assert.Equal(t, 1, report.ComparedSNPs)
}

func TestAnalyzeSNPAliasConflictPositiveWins(t *testing.T) {
	kits := []store.SNPKit{
		snpKit("YF001", "", marker.SNPProfile{"M269": marker.Positive}),
		snpKit("YF002", "", marker.SNPProfile{
			"M269":   marker.Negative,
			"PF6517": marker.Positive,
		}),
	}
	aliases := map[string]string{"PF6517": "M269"}

	report, err := AnalyzeSNP(kits, tree.New(nil), aliases, SNPOptions{RefKit: "YF001"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Results[0].Shared.Count)
}

func TestAnalyzeSNPLineageFilter(t *testing.T) {
	tr := tree.New([]tree.Node{
		{Name: "R-M269", PrimarySNPs: []string{"M269"}, TMRCA: intPtr(6400)},
		{Name: "R-P312", Parent: "R-M269", PrimarySNPs: []string{"P312"}, TMRCA: intPtr(4500)},
		{Name: "R-L21", Parent: "R-P312", PrimarySNPs: []string{"L21"}, TMRCA: intPtr(3000)},
		{Name: "R-U106", Parent: "R-M269", PrimarySNPs: []string{"U106"}, TMRCA: intPtr(4800)},
	})

	kits := []store.SNPKit{
		snpKit("YF001", "R-L21", marker.SNPProfile{"L21": marker.Positive}),
		snpKit("YF002", "R-P312", marker.SNPProfile{"L21": marker.Positive}),
		snpKit("YF003", "R-U106", marker.SNPProfile{"U106": marker.Positive}),
	}

	report, err := AnalyzeSNP(kits, tr, nil, SNPOptions{
		RefKit: "YF001",
		MaxAge: 10000,
		Filter: tree.Filter{Clade: "R-P312"},
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "YF002", report.Results[0].Kit.Number)
}

func TestAnalyzeSNPDropsOldSNPs(t *testing.T) {
	tr := tree.New([]tree.Node{
		{Name: "R-M269", PrimarySNPs: []string{"M269"}, TMRCA: intPtr(6400)},
		{Name: "R-L21", Parent: "R-M269", PrimarySNPs: []string{"L21"}, TMRCA: intPtr(3000)},
	})

	kits := []store.SNPKit{
		snpKit("YF001", "R-L21", marker.SNPProfile{
			"M269": marker.Positive,
			"L21":  marker.Positive,
		}),
		snpKit("YF002", "R-L21", marker.SNPProfile{
			"M269": marker.Positive,
			"L21":  marker.Positive,
		}),
	}

	report, err := AnalyzeSNP(kits, tr, nil, SNPOptions{RefKit: "YF001", MaxAge: 3500})
	require.NoError(t, err)

	// M269 is too old to separate anyone, so only L21 counts.
	assert.Equal(t, 1, report.ComparedSNPs)
	assert.Equal(t, []string{"L21"}, report.Results[0].Shared.SNPs)
}

func TestAnalyzeSNPMissingReference(t *testing.T) {
	kits := []store.SNPKit{snpKit("YF001", "", nil)}

	_, err := AnalyzeSNP(kits, tree.New(nil), nil, SNPOptions{RefKit: "YF999"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YF999")
}

func intPtr(v int) *int { return &v }
