package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexreg/ycomp/internal/marker"
	"github.com/alexreg/ycomp/internal/store"
	"github.com/alexreg/ycomp/internal/tree"
)

func strKit(number, haplogroup string, profile marker.STRProfile) store.STRKit {
	return store.STRKit{
		Kit:     marker.Kit{Number: number, Haplogroup: haplogroup},
		Profile: profile,
	}
}

func TestLocusDiffs(t *testing.T) {
	tests := []struct {
		name string
		a, b marker.Alleles
		want []float64
	}{
		{"equal single", marker.Alleles{13}, marker.Alleles{13}, []float64{0}},
		{"single step", marker.Alleles{13}, marker.Alleles{14}, []float64{1}},
		{"multi step", marker.Alleles{24}, marker.Alleles{21}, []float64{3}},
		{"unknown length", marker.Alleles{0}, marker.Alleles{14}, []float64{1}},
		{"multi-copy equal", marker.Alleles{11, 14}, marker.Alleles{11, 14}, []float64{0, 0}},
		{"multi-copy one step", marker.Alleles{11, 14}, marker.Alleles{11, 15}, []float64{0, 1}},
		{"copies pair in order", marker.Alleles{11, 14}, marker.Alleles{12, 14}, []float64{1, 0}},
		{"extra copy near a paired one", marker.Alleles{11, 14}, marker.Alleles{11, 14, 16}, []float64{0, 0, 3}},
		{"extra copy order symmetric", marker.Alleles{11, 14, 16}, marker.Alleles{11, 14}, []float64{0, 0, 3}},
		{"unpaired copies cost their own neighbor", marker.Alleles{10}, marker.Alleles{10, 11, 30}, []float64{0, 2, 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, locusDiffs(tt.a, tt.b))
		})
	}
}

func TestCombinations(t *testing.T) {
	got := combinations(3, 2)
	want := [][]int{{0, 1}, {0, 2}, {1, 2}}
	assert.Equal(t, want, got)

	assert.Equal(t, [][]int{nil}, combinations(3, 0))
	assert.Len(t, combinations(5, 5), 1)
}

func TestSampleStderr(t *testing.T) {
	// Too few observations for a spread estimate.
	assert.Equal(t, 0.0, sampleStderr([]float64{1}, 100))

	// Comparing every value in the universe leaves no sampling error.
	assert.Equal(t, 0.0, sampleStderr([]float64{1, 2, 3}, 3))

	got := sampleStderr([]float64{1, 2, 3}, 100)
	assert.Greater(t, got, 0.0)
	// Sample variance is 1; stderr sqrt(1/3) shrunk by the finite
	// population correction sqrt(97/99).
	assert.InDelta(t, 0.57149, got, 1e-4)
}

func TestAnalyzeSTRDistances(t *testing.T) {
	kits := []store.STRKit{
		strKit("100", "", marker.STRProfile{
			"DYS393": {13},
			"DYS390": {24},
			"DYS385": {11, 14},
			"DYS19":  {14},
		}),
		strKit("200", "", marker.STRProfile{
			"DYS393": {13},
			"DYS390": {24},
			"DYS385": {11, 14},
			"DYS19":  {14},
		}),
		strKit("300", "", marker.STRProfile{
			"DYS393": {14},
			"DYS390": {24},
			"DYS385": {11, 15},
		}),
		strKit("400", "", marker.STRProfile{
			"DYS393": {13},
		}),
	}

	report, err := AnalyzeSTR(kits, tree.New(nil), STROptions{RefKit: "100"})
	require.NoError(t, err)
	require.Len(t, report.Results, 3)
	assert.Equal(t, 3, report.ComparedKits)
	assert.Equal(t, 4, report.ComparedLoci)

	// Identical kit sorts first, partial kit compares only its one locus.
	// DYS385 has two copies, so a full comparison spans five values.
	assert.Equal(t, "200", report.Results[0].Kit.Number)
	assert.Equal(t, 5, report.Results[0].Compared)
	assert.Equal(t, 0.0, report.Results[0].AbsoluteDistance)

	assert.Equal(t, "400", report.Results[1].Kit.Number)
	assert.Equal(t, 1, report.Results[1].Compared)
	assert.Equal(t, 0.0, report.Results[1].AbsoluteDistance)

	// Kit 300 compares four of the five values in the universe: diffs
	// 1 (DYS393), 0 (DYS390), 0 and 1 (DYS385 copies). Sample variance
	// 1/3, stderr sqrt(1/12), finite-population correction sqrt(1/4).
	last := report.Results[2]
	assert.Equal(t, "300", last.Kit.Number)
	assert.Equal(t, 4, last.Compared)
	assert.Equal(t, 2.0, last.AbsoluteDistance)
	assert.InDelta(t, 0.5, last.RelativeDistance, 1e-9)
	assert.InDelta(t, 0.28290, last.CI, 1e-4)
	assert.InDelta(t, last.RelativeDistance-last.CI, last.Min, 1e-9)
	assert.InDelta(t, last.RelativeDistance+last.CI, last.Max, 1e-9)
}

func TestAnalyzeSTRFlattensMultiCopyLoci(t *testing.T) {
	kits := []store.STRKit{
		strKit("100", "", marker.STRProfile{
			"DYS385": {11, 14},
			"DYS393": {13},
		}),
		strKit("200", "", marker.STRProfile{
			"DYS385": {11, 15},
			"DYS393": {14},
		}),
	}

	report, err := AnalyzeSTR(kits, tree.New(nil), STROptions{RefKit: "100"})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	// Each DYS385 copy counts as its own comparison.
	result := report.Results[0]
	assert.Equal(t, 3, result.Compared)
	assert.Equal(t, 2.0, result.AbsoluteDistance)
	assert.InDelta(t, 2.0/3.0, result.RelativeDistance, 1e-9)
}

func TestAnalyzeSTRLineageFilter(t *testing.T) {
	tr := tree.New([]tree.Node{
		{Name: "R-M269"},
		{Name: "R-P312", Parent: "R-M269"},
		{Name: "R-U106", Parent: "R-M269"},
	})

	kits := []store.STRKit{
		strKit("100", "R-P312", marker.STRProfile{"DYS393": {13}}),
		strKit("200", "R-P312", marker.STRProfile{"DYS393": {13}}),
		strKit("300", "R-U106", marker.STRProfile{"DYS393": {13}}),
	}

	report, err := AnalyzeSTR(kits, tr, STROptions{
		RefKit: "100",
		Filter: tree.Filter{Clade: "R-P312"},
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "200", report.Results[0].Kit.Number)
}

func TestAnalyzeSTRMissingReference(t *testing.T) {
	kits := []store.STRKit{strKit("100", "", nil)}

	_, err := AnalyzeSTR(kits, tree.New(nil), STROptions{RefKit: "999"})
	require.Error(t, err)
}
