package marker

import "testing"

func TestParseYFullCall(t *testing.T) {
	cases := []struct {
		in   string
		want Call
	}{
		{"positive", Positive},
		{"negative", Negative},
		{"no call", NoCall},
		{"ambiguous", NoCall},
		{"false positive", NoCall},
		{"false negative", NoCall},
	}

	for _, tc := range cases {
		got, err := ParseYFullCall(tc.in)
		if err != nil {
			t.Errorf("ParseYFullCall(%q) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseYFullCall(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := ParseYFullCall("maybe"); err == nil {
		t.Error("expected error for unknown call word")
	}
}

func TestParseFTDNAToken(t *testing.T) {
	name, call, ok, err := ParseFTDNAToken("M269+")
	if err != nil || !ok || name != "M269" || call != Positive {
		t.Errorf("M269+ = (%q, %v, %v, %v)", name, call, ok, err)
	}

	name, call, ok, err = ParseFTDNAToken("L21-")
	if err != nil || !ok || name != "L21" || call != Negative {
		t.Errorf("L21- = (%q, %v, %v, %v)", name, call, ok, err)
	}

	// Ambiguous calls are skippable, not errors.
	_, _, ok, err = ParseFTDNAToken("P312*")
	if err != nil || ok {
		t.Errorf("P312* = (ok=%v, err=%v), want skipped", ok, err)
	}

	if _, _, _, err := ParseFTDNAToken("M269"); err == nil {
		t.Error("expected error for token without call suffix")
	}

	if _, _, _, err := ParseFTDNAToken(""); err == nil {
		t.Error("expected error for empty token")
	}
}

func TestCallString(t *testing.T) {
	if NoCall.String() != "no call" || Positive.String() != "positive" || Negative.String() != "negative" {
		t.Error("Call.String() mismatch")
	}
}
