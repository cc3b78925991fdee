package aggregate

import "testing"

func TestNormalizePhoneStripsCountryCodeAndTrunkZero(t *testing.T) {
	cases := map[string]string{
		"+49 30 123456":  "30123456",
		"0049 30 123456": "30123456",
		"030 123456":     "30123456",
		"":                "",
	}
	for in, want := range cases {
		if got := NormalizePhone(in); got != want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeNameStripsLegalForms(t *testing.T) {
	got := NormalizeName("Müller & Schmidt GmbH")
	want := "mueller schmidt"
	if got != want {
		t.Errorf("NormalizeName = %q, want %q", got, want)
	}
}

func TestNormalizeAddressNormalizesStreetAbbreviations(t *testing.T) {
	got := NormalizeAddress("Hauptstr. 12")
	if got != "hauptstrasse 12" {
		t.Errorf("NormalizeAddress = %q, want hauptstrasse 12", got)
	}
}

func TestIsPhoneMatchExactAfterNormalization(t *testing.T) {
	match, conf := IsPhoneMatch("+49 30 1234567", "030 1234567")
	if !match || conf != 1.0 {
		t.Errorf("IsPhoneMatch = (%v, %v), want (true, 1.0)", match, conf)
	}
}

func TestIsPhoneMatchRejectsDifferentNumbers(t *testing.T) {
	match, _ := IsPhoneMatch("030 1111111", "089 9999999")
	if match {
		t.Errorf("expected no match for unrelated numbers")
	}
}

func TestIsNameMatchHandlesLegalFormDifference(t *testing.T) {
	match, conf := IsNameMatch("Bäckerei Schmidt GmbH", "Baeckerei Schmidt", 0.85)
	if !match {
		t.Errorf("expected name match, confidence %v", conf)
	}
}

func TestIsAddressMatchPrioritizesPostalCode(t *testing.T) {
	match, conf := IsAddressMatch("Hauptstrasse 12", "10115", "Hauptstr 12", "10115", 0.8)
	if !match || conf < 0.8 {
		t.Errorf("IsAddressMatch = (%v, %v), want high-confidence match", match, conf)
	}
}

func TestIsAddressMatchRejectsMismatchedPostalCode(t *testing.T) {
	match, conf := IsAddressMatch("Hauptstrasse 12", "10115", "Hauptstrasse 12", "80331", 0.8)
	if match {
		t.Errorf("expected no match across different postal codes, got confidence %v", conf)
	}
}
