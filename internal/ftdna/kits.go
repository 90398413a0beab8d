package ftdna

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alexreg/ycomp/internal/marker"
)

// SNPKit is one kit row of a group's SNP results table.
type SNPKit struct {
	marker.Kit
	Profile marker.SNPProfile
}

// STRKit is one kit row of a group's STR results table.
type STRKit struct {
	marker.Kit
	Profile marker.STRProfile
}

// metadataColumns are the table columns that are not marker data.
var metadataColumns = map[string]bool{
	"Kit Number":             true,
	"Paternal Ancestor Name": true,
	"Last Name":              true,
	"Name":                   true,
	"Country":                true,
	"Haplogroup":             true,
	"Short Hand":             true,
	"Confirmed SNPs":         true,
}

// cell returns the row's value for a column index, tolerating short rows.
func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// ancestorName applies the column fallback FTDNA tables need: projects
// variously label the ancestor column "Paternal Ancestor Name", "Last Name"
// or just "Name".
func ancestorName(t *Table, row []string) string {
	for _, name := range []string{"Paternal Ancestor Name", "Last Name", "Name"} {
		if v := cell(row, t.Column(name)); v != "" {
			return v
		}
	}
	return ""
}

// haplogroupName reads the haplogroup column ("Short Hand" on SNP pages).
// FTDNA prints "-" for kits without a confirmed haplogroup.
func haplogroupName(t *Table, row []string) string {
	hg := cell(row, t.Column("Haplogroup"))
	if hg == "" {
		hg = cell(row, t.Column("Short Hand"))
	}
	if hg == "-" {
		return ""
	}
	return hg
}

// ParseSNPKits converts a scraped SNP results table into kit records with
// SNP profiles parsed from the "Confirmed SNPs" column.
func ParseSNPKits(t *Table) ([]SNPKit, error) {
	kitCol := t.Column("Kit Number")
	snpsCol := t.Column("Confirmed SNPs")
	if kitCol < 0 || snpsCol < 0 {
		return nil, ErrUnknownPageLayout
	}

	var kits []SNPKit
	for _, row := range t.Rows {
		number := cell(row, kitCol)
		if number == "" {
			continue
		}

		kit := SNPKit{
			Kit: marker.Kit{
				Number:     number,
				Ancestor:   ancestorName(t, row),
				Haplogroup: haplogroupName(t, row),
			},
			Profile: marker.SNPProfile{},
		}

		if snps := cell(row, snpsCol); snps != "" {
			for _, token := range strings.Split(snps, ", ") {
				name, call, ok, err := marker.ParseFTDNAToken(token)
				if err != nil {
					return nil, fmt.Errorf("kit %s: %w", number, err)
				}
				if !ok {
					continue
				}
				kit.Profile[name] = call
			}
		}

		kits = append(kits, kit)
	}
	return kits, nil
}

// ParseSTRKits converts a scraped STR results table into kit records.
//
// STR result tables interleave group header rows (a single full-width cell)
// with kit rows; each kit belongs to the most recent header. Kits above the
// first header have no group and are dropped. Multi-copy locus cells hold
// "-"-joined values ("13-14"); an empty cell means the locus was not tested.
func ParseSTRKits(t *Table) ([]STRKit, error) {
	kitCol := t.Column("Kit Number")
	countryCol := t.Column("Country")
	if kitCol < 0 {
		return nil, ErrUnknownPageLayout
	}

	type locusColumn struct {
		name string
		col  int
	}
	var loci []locusColumn
	for i, name := range t.Header {
		if !metadataColumns[name] {
			loci = append(loci, locusColumn{name: strings.ToUpper(name), col: i})
		}
	}

	var kits []STRKit
	group := ""
	for _, row := range t.Rows {
		// Group header rows collapse to one repeated value.
		if len(row) == 1 || (row[0] != "" && row[0] == row[len(row)-1]) {
			group = row[0]
			continue
		}
		if group == "" {
			continue
		}

		number := cell(row, kitCol)
		if number == "" {
			continue
		}

		kit := STRKit{
			Kit: marker.Kit{
				Number:     number,
				Group:      group,
				Ancestor:   ancestorName(t, row),
				Country:    cell(row, countryCol),
				Haplogroup: haplogroupName(t, row),
			},
			Profile: marker.STRProfile{},
		}

		for _, locus := range loci {
			value := cell(row, locus.col)
			if value == "" {
				continue
			}

			var alleles marker.Alleles
			for _, part := range strings.Split(value, "-") {
				n, err := strconv.Atoi(part)
				if err != nil {
					return nil, fmt.Errorf("kit %s: invalid value %q for locus %s", number, value, locus.name)
				}
				alleles = append(alleles, n)
			}
			kit.Profile[locus.name] = alleles
		}

		kits = append(kits, kit)
	}
	return kits, nil
}
