package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/alexreg/ycomp/internal/analysis"
	"github.com/alexreg/ycomp/internal/marker"
)

func golden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestWriteSNPCSV(t *testing.T) {
	report := &analysis.SNPReport{
		Results: []analysis.SNPResult{
			{
				Kit:     marker.Kit{Number: "YF003", Group: "A", Ancestor: "Ó Briain", Country: "Ireland", Haplogroup: "R-L21"},
				Shared:  analysis.SNPShare{SNPs: []string{"M269"}, Count: 1, Compared: 1},
				Assumed: analysis.SNPShare{SNPs: []string{"L21", "P312"}, Count: 2, Compared: 3},
				All:     analysis.SNPShare{SNPs: []string{"L21", "M269", "P312"}, Count: 3, Compared: 4},
			},
			{
				Kit:     marker.Kit{Number: "YF002", Haplogroup: "R-P312"},
				Shared:  analysis.SNPShare{SNPs: []string{"M269"}, Count: 1, Compared: 2},
				Assumed: analysis.SNPShare{Count: 0, Compared: 1},
				All:     analysis.SNPShare{SNPs: []string{"M269"}, Count: 1, Compared: 3},
			},
		},
		ComparedKits: 2,
		ComparedSNPs: 4,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSNPCSV(&buf, report))
	golden(t).Assert(t, "snp_report", buf.Bytes())
}

func TestWriteSTRCSV(t *testing.T) {
	report := &analysis.STRReport{
		Results: []analysis.STRResult{
			{
				Kit:      marker.Kit{Number: "200", Group: "Group A", Ancestor: "Smith", Country: "England", Haplogroup: "R-P312"},
				Compared: 111,
			},
			{
				Kit:              marker.Kit{Number: "300", Haplogroup: "R-L21"},
				Compared:         108,
				AbsoluteDistance: 12.5,
				RelativeDistance: 12.5 / 108,
				CI:               0.0321,
				Min:              12.5/108 - 0.0321,
				Max:              12.5/108 + 0.0321,
			},
		},
		ComparedKits: 2,
		ComparedLoci: 111,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSTRCSV(&buf, report))
	golden(t).Assert(t, "str_report", buf.Bytes())
}

func TestWriteSNPCSVEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSNPCSV(&buf, &analysis.SNPReport{}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 1)
	require.True(t, strings.HasPrefix(lines[0], "Kit Number,"))
}
