package classify

import (
	"context"
	"testing"

	"github.com/use-agent/leadforge/internal/leads"
)

// TestClassifyShortCircuitsDefinitelyOldURL checks that a URL the
// heuristic alone flags as definitely old never reaches the header or
// HTML stage, even at DepthThorough. The classifier is built with a
// nil client: if the cascade tried to issue a HEAD or GET it would
// panic on the nil pointer, so a clean return proves no I/O happened.
func TestClassifyShortCircuitsDefinitelyOldURL(t *testing.T) {
	c := New(nil)
	v := c.Classify(context.Background(), "http://geocities.com/~oldsite/index.htm", DepthThorough)

	if v.Status != leads.StatusOld {
		t.Fatalf("status = %v, want StatusOld", v.Status)
	}
	if v.CheckMethods["header"] || v.CheckMethods["html"] {
		t.Fatalf("expected only the url stage to run, got methods %+v", v.CheckMethods)
	}
	if !v.CheckMethods["url"] {
		t.Fatalf("expected url stage recorded")
	}
}

// TestClassifyShortCircuitsBuilderPlatform mirrors the spec's Jimdo
// scenario: a builder-platform URL is decisive on its own.
func TestClassifyShortCircuitsBuilderPlatform(t *testing.T) {
	c := New(nil)
	v := c.Classify(context.Background(), "https://mycompany.jimdo.com", DepthThorough)

	if v.Status != leads.StatusOld {
		t.Fatalf("status = %v, want StatusOld", v.Status)
	}
	found := false
	for _, s := range v.Signals {
		if s == "url:jimdo_baukasten" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected url:jimdo_baukasten signal, got %v", v.Signals)
	}
	if v.CheckMethods["header"] || v.CheckMethods["html"] {
		t.Fatalf("expected no further stages, got methods %+v", v.CheckMethods)
	}
}

// TestClassifyFastDepthNeverProbes checks that DepthFast never touches
// the header or HTML stage for a merely-suspicious (not decisive) URL.
func TestClassifyFastDepthNeverProbes(t *testing.T) {
	c := New(nil)
	v := c.Classify(context.Background(), "http://example.com/~user/cgi-bin/page.php3", DepthFast)

	if v.CheckMethods["header"] || v.CheckMethods["html"] {
		t.Fatalf("DepthFast must not run header/html stages, got %+v", v.CheckMethods)
	}
	if v.Status != leads.StatusOld {
		t.Fatalf("status = %v, want StatusOld (two suspicious-path signals)", v.Status)
	}
}

// TestClassifyFastDepthUnknownWhenURLInconclusive checks that an
// ordinary https URL with no heuristic signal resolves to Unknown at
// DepthFast rather than falling through to further stages.
func TestClassifyFastDepthUnknownWhenURLInconclusive(t *testing.T) {
	c := New(nil)
	v := c.Classify(context.Background(), "https://example.com/impressum", DepthFast)

	if v.Status != leads.StatusUnknown {
		t.Fatalf("status = %v, want StatusUnknown", v.Status)
	}
	if v.CheckMethods["header"] || v.CheckMethods["html"] {
		t.Fatalf("expected no further stages at DepthFast, got %+v", v.CheckMethods)
	}
}

func TestWeightFunctionsAgreeWithCascadeThresholds(t *testing.T) {
	if weight(VerdictProbablyOld, true) != 2 || weight(VerdictProbablyModern, false) != 2 {
		t.Fatalf("stage weights for url/header drifted from spec")
	}
	if weightHTML(VerdictProbablyOld, true) != 2.5 || weightHTML(VerdictProbablyModern, false) != 3 {
		t.Fatalf("stage weight for html drifted from spec")
	}
}

// TestCombineWeightedURLOldHTMLModernPrefersModern exercises the
// Thorough-depth weighted-score path with a non-decisive combination:
// url=ProbablyOld (old=2) plus html=ProbablyModern (modern=3) must
// resolve to Modern, not a tie, since the two verdicts come from
// different stages with different weights.
func TestCombineWeightedURLOldHTMLModernPrefersModern(t *testing.T) {
	oldScore := weight(VerdictProbablyOld, true)
	modernScore := weightHTML(VerdictProbablyModern, false)

	status, confidence := combineWeighted(oldScore, modernScore)
	if status != leads.StatusModern {
		t.Fatalf("status = %v, want StatusModern (oldScore=%v modernScore=%v)", status, oldScore, modernScore)
	}
	if confidence != 0.6 {
		t.Fatalf("confidence = %v, want 0.6 (non-decisive, below threshold 4)", confidence)
	}
}

func TestCombineWeightedDecisiveThresholdUsesScaledConfidence(t *testing.T) {
	status, confidence := combineWeighted(4, 0)
	if status != leads.StatusOld {
		t.Fatalf("status = %v, want StatusOld", status)
	}
	if confidence != 0.9 {
		t.Fatalf("confidence = %v, want 0.9 (0.5+0.1*4)", confidence)
	}
}

func TestCombineWeightedTieIsUnknown(t *testing.T) {
	status, confidence := combineWeighted(2, 2)
	if status != leads.StatusUnknown || confidence != 0.3 {
		t.Fatalf("got status=%v confidence=%v, want Unknown/0.3", status, confidence)
	}
}

func TestMapVerdictCoversAllCases(t *testing.T) {
	cases := map[Verdict]leads.WebsiteStatus{
		VerdictDefinitelyOld:  leads.StatusOld,
		VerdictProbablyOld:    leads.StatusOld,
		VerdictBuilderPlatform: leads.StatusOld,
		VerdictProbablyModern: leads.StatusModern,
		VerdictUnknown:        leads.StatusUnknown,
	}
	for v, want := range cases {
		if got := mapVerdict(v); got != want {
			t.Errorf("mapVerdict(%v) = %v, want %v", v, got, want)
		}
	}
}
