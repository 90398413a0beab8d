package yfull

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/alexreg/ycomp/internal/marker"
)

var (
	snpFilePattern = regexp.MustCompile(`^SNP_for_(YF\d+)_(\d+)$`)
	strFilePattern = regexp.MustCompile(`^STR_for_(YF\d+)_(\d+)$`)
)

// KitFromSNPFilename infers the kit number from a YFull SNP export filename
// such as "SNP_for_YF012345_20220101.csv". Returns "" if the name does not
// follow the export convention.
func KitFromSNPFilename(path string) string {
	return kitFromFilename(path, snpFilePattern)
}

// KitFromSTRFilename infers the kit number from a YFull STR export filename
// such as "STR_for_YF012345_20220101.csv".
func KitFromSTRFilename(path string) string {
	return kitFromFilename(path, strFilePattern)
}

func kitFromFilename(path string, pattern *regexp.Regexp) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	m := pattern.FindStringSubmatch(stem)
	if m == nil {
		return ""
	}
	return m[1]
}

// SNPRecord is one SNP row of a YFull SNP export after normalization.
type SNPRecord struct {
	SNP       string
	Call      marker.Call
	ReadCount int // 0 when the export omits the figure
	Rating    int // 1 (best) to 5, count of stars
}

// SNPExport is a parsed YFull SNP export.
type SNPExport struct {
	Haplogroup   string
	TerminalSNPs []string
	Records      []SNPRecord
}

// Profile collapses the export's records into a SNP profile.
func (e *SNPExport) Profile() marker.SNPProfile {
	profile := make(marker.SNPProfile, len(e.Records))
	for _, rec := range e.Records {
		profile[rec.SNP] = rec.Call
	}
	return profile
}

// ParseSNPExport parses a YFull per-kit SNP export.
//
// The export is semicolon-separated. The leading rows are kit info
// (Haplogroup, Terminal SNPs, ...); the rest are "SNP;call;read count;rating"
// rows. Two quirks are normalized here: when a SNP has no read count YFull
// shifts the rating into the read-count column, and a row may name several
// equivalent SNPs separated by "/", which expands to one record per name.
func ParseSNPExport(r io.Reader) (*SNPExport, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse SNP export: %w", err)
	}

	export := &SNPExport{}

	var dataRows [][]string
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		switch row[0] {
		case "Haplogroup":
			export.Haplogroup = row[1]
		case "Terminal SNPs":
			export.TerminalSNPs = strings.Split(row[1], " | ")
		case "Sample":
			// Kit info row; the kit number comes from the filename or flag.
		default:
			dataRows = append(dataRows, row)
		}
	}

	for _, row := range dataRows {
		rec, err := parseSNPRow(row)
		if err != nil {
			return nil, fmt.Errorf("parse SNP export: %w", err)
		}

		// Expand rows naming several equivalent SNPs ("Y28512/FGC123").
		for _, name := range strings.Split(rec.SNP, "/") {
			expanded := rec
			expanded.SNP = strings.TrimSpace(name)
			export.Records = append(export.Records, expanded)
		}
	}

	return export, nil
}

func parseSNPRow(row []string) (SNPRecord, error) {
	rec := SNPRecord{SNP: row[0]}

	call, err := marker.ParseYFullCall(row[1])
	if err != nil {
		return rec, err
	}
	rec.Call = call

	readCell, ratingCell := "", ""
	if len(row) > 2 {
		readCell = row[2]
	}
	if len(row) > 3 {
		ratingCell = row[3]
	}

	// Missing read counts shift the rating left one column.
	if strings.HasPrefix(readCell, "*") {
		ratingCell = readCell
		readCell = ""
	}

	if readCell != "" {
		count, rest, found := strings.Cut(readCell, " ")
		if !found || rest != "read" {
			return rec, fmt.Errorf("invalid SNP read count %q", readCell)
		}
		n, err := strconv.Atoi(count)
		if err != nil {
			return rec, fmt.Errorf("invalid SNP read count %q", readCell)
		}
		rec.ReadCount = n
	}

	if ratingCell == "" || strings.Trim(ratingCell, "*") != "" {
		return rec, fmt.Errorf("invalid SNP rating %q", ratingCell)
	}
	rec.Rating = len(ratingCell)

	return rec, nil
}

// STRRecord is one locus row of a YFull STR export. A nil Repeats means the
// locus (or copy) was not read.
type STRRecord struct {
	Locus         string // may carry a copy suffix, e.g. "DYS385.1"
	Repeats       *int
	Variant       string // micro-allele suffix, e.g. the "2" of "17.2"
	LowConfidence bool
}

// ParseSTRExport parses a YFull per-kit STR export: semicolon-separated
// "locus;value;confidence" rows. Loci containing "_" are vendor-internal
// and dropped. Values "?" and "n/a" mean the locus was not read; a "?" in
// the confidence column flags a low-confidence read.
func ParseSTRExport(r io.Reader) ([]STRRecord, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse STR export: %w", err)
	}

	var records []STRRecord
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		if strings.Contains(row[0], "_") {
			continue
		}

		rec := STRRecord{Locus: row[0]}

		if len(row) > 2 {
			switch row[2] {
			case "?":
				rec.LowConfidence = true
			case "":
			default:
				return nil, fmt.Errorf("parse STR export: invalid confidence %q for locus %s", row[2], row[0])
			}
		}

		switch row[1] {
		case "?", "n/a", "":
			// Not read; Repeats stays nil.
		default:
			value, variant, _ := strings.Cut(row[1], ".")
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("parse STR export: invalid value %q for locus %s", row[1], row[0])
			}
			rec.Repeats = &n
			rec.Variant = variant
		}

		records = append(records, rec)
	}

	return records, nil
}

// FoldSTRProfile joins multi-copy locus rows ("DYS385.1", "DYS385.2") into
// one allele list per locus. A missing copy voids the whole locus, since a
// partial multi-copy value cannot be compared.
func FoldSTRProfile(records []STRRecord) marker.STRProfile {
	profile := make(marker.STRProfile)
	voided := make(map[string]bool)

	for _, rec := range records {
		locus, _, _ := strings.Cut(rec.Locus, ".")

		if rec.Repeats == nil {
			voided[locus] = true
			continue
		}
		if voided[locus] {
			continue
		}
		profile[locus] = append(profile[locus], *rec.Repeats)
	}

	for locus := range voided {
		delete(profile, locus)
	}
	return profile
}
