// Package report renders analysis results as CSV tables.
//
// Column layout is stable so the output can be diffed across runs and
// loaded into spreadsheets without remapping.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alexreg/ycomp/internal/analysis"
)

var snpHeader = []string{
	"Kit Number", "Group", "Paternal Ancestor Name", "Country", "Haplogroup",
	"Shared SNPs", "Shared SNPs (#)", "Shared SNPs (# compared)", "Shared SNPs (fraction)",
	"Assumed Shared SNPs", "Assumed Shared SNPs (#)", "Assumed Shared SNPs (# compared)", "Assumed Shared SNPs (fraction)",
	"All Shared SNPs", "All Shared SNPs (#)", "All Shared SNPs (# compared)", "All Shared SNPs (fraction)",
}

// WriteSNPCSV writes a SNP comparison report, one row per compared kit.
func WriteSNPCSV(w io.Writer, report *analysis.SNPReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(snpHeader); err != nil {
		return fmt.Errorf("write SNP report: %w", err)
	}

	for _, r := range report.Results {
		row := []string{
			r.Kit.Number, r.Kit.Group, r.Kit.Ancestor, r.Kit.Country, r.Kit.Haplogroup,
		}
		row = append(row, shareColumns(r.Shared)...)
		row = append(row, shareColumns(r.Assumed)...)
		row = append(row, shareColumns(r.All)...)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write SNP report: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write SNP report: %w", err)
	}
	return nil
}

func shareColumns(s analysis.SNPShare) []string {
	return []string{
		strings.Join(s.SNPs, ", "),
		strconv.Itoa(s.Count),
		strconv.Itoa(s.Compared),
		formatFraction(s.Fraction()),
	}
}

var strHeader = []string{
	"Kit Number", "Group", "Paternal Ancestor Name", "Country", "Haplogroup",
	"Loci Compared", "Absolute Distance",
	"Relative Distance", "Relative Distance (CI)", "Relative Distance (min)", "Relative Distance (max)",
}

// WriteSTRCSV writes an STR genetic distance report, one row per compared
// kit, closest first.
func WriteSTRCSV(w io.Writer, report *analysis.STRReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(strHeader); err != nil {
		return fmt.Errorf("write STR report: %w", err)
	}

	for _, r := range report.Results {
		row := []string{
			r.Kit.Number, r.Kit.Group, r.Kit.Ancestor, r.Kit.Country, r.Kit.Haplogroup,
			strconv.Itoa(r.Compared),
			formatDistance(r.AbsoluteDistance),
			formatFraction(r.RelativeDistance),
			formatFraction(r.CI),
			formatFraction(r.Min),
			formatFraction(r.Max),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write STR report: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write STR report: %w", err)
	}
	return nil
}

// formatFraction renders fractional figures at four decimal places, enough
// to distinguish single mutations over large marker panels.
func formatFraction(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// formatDistance renders summed distances without trailing zeros; they are
// integral except when unknown-length copies contribute fractional steps.
func formatDistance(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
