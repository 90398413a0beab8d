package yfull

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexreg/ycomp/internal/marker"
)

const snpExport = `Haplogroup;R-Y28512
Sample;YF012345
Terminal SNPs;Y28512 | Y28513
M269;positive;34 read;*****
L21;positive;12 read;****
Z290;negative;8 read;***
BY3332;no call;;*
Y28512/FGC84793;positive;20 read;*****
A123;ambiguous;*;*
`

func TestParseSNPExport(t *testing.T) {
	export, err := ParseSNPExport(strings.NewReader(snpExport))
	require.NoError(t, err)

	assert.Equal(t, "R-Y28512", export.Haplogroup)
	assert.Equal(t, []string{"Y28512", "Y28513"}, export.TerminalSNPs)

	// Multi-SNP row expands to two records.
	require.Len(t, export.Records, 7)

	byName := make(map[string]SNPRecord)
	for _, rec := range export.Records {
		byName[rec.SNP] = rec
	}

	assert.Equal(t, marker.Positive, byName["M269"].Call)
	assert.Equal(t, 34, byName["M269"].ReadCount)
	assert.Equal(t, 5, byName["M269"].Rating)

	assert.Equal(t, marker.Negative, byName["Z290"].Call)

	// Missing read count with shifted rating column.
	assert.Equal(t, marker.NoCall, byName["BY3332"].Call)
	assert.Equal(t, 0, byName["BY3332"].ReadCount)
	assert.Equal(t, 1, byName["BY3332"].Rating)

	// Shifted rating: "*" sat in the read-count column.
	assert.Equal(t, marker.NoCall, byName["A123"].Call)
	assert.Equal(t, 1, byName["A123"].Rating)

	assert.Equal(t, marker.Positive, byName["Y28512"].Call)
	assert.Equal(t, marker.Positive, byName["FGC84793"].Call)
	assert.Equal(t, 20, byName["FGC84793"].ReadCount)
}

func TestParseSNPExportInvalid(t *testing.T) {
	_, err := ParseSNPExport(strings.NewReader("M269;maybe;34 read;*\n"))
	assert.Error(t, err)

	_, err = ParseSNPExport(strings.NewReader("M269;positive;34 units;*\n"))
	assert.Error(t, err)

	_, err = ParseSNPExport(strings.NewReader("M269;positive;34 read;bad\n"))
	assert.Error(t, err)
}

func TestSNPExportProfile(t *testing.T) {
	export, err := ParseSNPExport(strings.NewReader(snpExport))
	require.NoError(t, err)

	profile := export.Profile()
	assert.Equal(t, marker.Positive, profile["L21"])
	assert.Equal(t, marker.Negative, profile["Z290"])
	assert.Equal(t, marker.NoCall, profile["BY3332"])
}

const strExport = `DYS393;13;
DYS390;24;
DYS385.1;11;
DYS385.2;14;
DYS439;12;?
DYS461;?;
CDY.1;37;
CDY.2;n/a;
Y_GATA_H4;12;
DYS447;25.2;
`

func TestParseSTRExport(t *testing.T) {
	records, err := ParseSTRExport(strings.NewReader(strExport))
	require.NoError(t, err)

	byLocus := make(map[string]STRRecord)
	for _, rec := range records {
		byLocus[rec.Locus] = rec
	}

	// Vendor-internal loci (underscore names) are dropped.
	assert.NotContains(t, byLocus, "Y_GATA_H4")

	require.Contains(t, byLocus, "DYS393")
	assert.Equal(t, 13, *byLocus["DYS393"].Repeats)
	assert.False(t, byLocus["DYS393"].LowConfidence)

	assert.True(t, byLocus["DYS439"].LowConfidence)
	assert.Nil(t, byLocus["DYS461"].Repeats)

	// Micro-allele variant suffix.
	assert.Equal(t, 25, *byLocus["DYS447"].Repeats)
	assert.Equal(t, "2", byLocus["DYS447"].Variant)
}

func TestParseSTRExportInvalid(t *testing.T) {
	_, err := ParseSTRExport(strings.NewReader("DYS393;abc;\n"))
	assert.Error(t, err)

	_, err = ParseSTRExport(strings.NewReader("DYS393;13;!\n"))
	assert.Error(t, err)
}

func TestFoldSTRProfile(t *testing.T) {
	records, err := ParseSTRExport(strings.NewReader(strExport))
	require.NoError(t, err)

	profile := FoldSTRProfile(records)

	assert.Equal(t, marker.Alleles{13}, profile["DYS393"])
	assert.Equal(t, marker.Alleles{11, 14}, profile["DYS385"])

	// An unread copy voids the whole multi-copy locus.
	assert.NotContains(t, profile, "CDY")
	// An unread single-copy locus is absent.
	assert.NotContains(t, profile, "DYS461")
}

func TestKitFromFilename(t *testing.T) {
	assert.Equal(t, "YF012345", KitFromSNPFilename("/tmp/SNP_for_YF012345_20220101.csv"))
	assert.Equal(t, "YF012345", KitFromSTRFilename("STR_for_YF012345_7.csv"))
	assert.Equal(t, "", KitFromSNPFilename("STR_for_YF012345_7.csv"))
	assert.Equal(t, "", KitFromSNPFilename("notes.csv"))
}
