package marker

import (
	"fmt"
	"strings"
)

// Call is a tri-state SNP call. The zero value is NoCall, so a missing
// entry in a profile and an explicit no-call read identically.
type Call int8

const (
	NoCall Call = iota
	Negative
	Positive
)

func (c Call) String() string {
	switch c {
	case NoCall:
		return "no call"
	case Negative:
		return "negative"
	case Positive:
		return "positive"
	default:
		return fmt.Sprintf("Call(%d)", int8(c))
	}
}

// ParseYFullCall parses a call word from a YFull SNP export.
// Ambiguous, false positive and false negative reads all map to NoCall:
// they carry no usable signal for comparison.
func ParseYFullCall(s string) (Call, error) {
	switch s {
	case "positive":
		return Positive, nil
	case "negative":
		return Negative, nil
	case "no call", "ambiguous", "false positive", "false negative":
		return NoCall, nil
	default:
		return NoCall, fmt.Errorf("invalid SNP call %q", s)
	}
}

// ParseFTDNAToken parses one token from an FTDNA "Confirmed SNPs" cell,
// e.g. "M269+", "L21-" or "P312*". The SNP name and its call are returned;
// an ambiguous "*" call returns ok=false and should be skipped.
func ParseFTDNAToken(token string) (name string, call Call, ok bool, err error) {
	token = strings.TrimSpace(token)
	if len(token) < 2 {
		return "", NoCall, false, fmt.Errorf("invalid SNP token %q", token)
	}

	name = token[:len(token)-1]
	switch token[len(token)-1] {
	case '+':
		return name, Positive, true, nil
	case '-':
		return name, Negative, true, nil
	case '*':
		return name, NoCall, false, nil
	default:
		return "", NoCall, false, fmt.Errorf("invalid SNP token %q", token)
	}
}

// Alleles holds the repeat counts of one STR locus. Multi-copy loci have
// more than one entry; a nil slice means the locus was not tested.
type Alleles []int

// Kit holds the metadata attached to a tested sample. Empty strings mean
// unknown.
type Kit struct {
	Number     string
	Group      string
	Ancestor   string // earliest known patrilineal ancestor
	Country    string
	Haplogroup string
}

// SNPProfile maps SNP name to call for one kit.
type SNPProfile map[string]Call

// STRProfile maps locus name to allele values for one kit.
type STRProfile map[string]Alleles
