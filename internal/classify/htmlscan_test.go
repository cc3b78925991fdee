package classify

import "testing"

func TestScanBodyDefiniteOldGenerator(t *testing.T) {
	body := `<html><head><meta name="generator" content="Microsoft FrontPage 4.0"></head><body>hi</body></html>`
	res := ScanBody(body)
	if res.Verdict != VerdictDefinitelyOld {
		t.Fatalf("verdict = %v, want DefinitelyOld", res.Verdict)
	}
	if res.Confidence != 0.95 {
		t.Fatalf("confidence = %v, want 0.95", res.Confidence)
	}
}

func TestScanBodyFramesetIsDefiniteOld(t *testing.T) {
	body := `<html><frameset rows="*,100"><frame src="nav.htm"><frame src="main.htm"></frameset></html>`
	res := ScanBody(body)
	if res.Verdict != VerdictDefinitelyOld {
		t.Fatalf("verdict = %v, want DefinitelyOld", res.Verdict)
	}
}

func TestScanBodyThreeOldSignalsIsProbablyOldHighConfidence(t *testing.T) {
	body := `<html><head></head><body>
<table><tr><td><table><tr><td>nested</td></tr></table></td></tr></table>
<font color="red">old text</font>
<center>centered</center>
</body></html>`
	res := ScanBody(body)
	// missing_doctype + deprecated_tags + no_viewport == 3 old signals
	// (a single nested table stays below the table_layout threshold)
	if res.Verdict != VerdictProbablyOld {
		t.Fatalf("verdict = %v, want ProbablyOld", res.Verdict)
	}
	if res.Confidence != 0.8 {
		t.Fatalf("confidence = %v, want 0.8 for 3+ old signals", res.Confidence)
	}
}

func TestScanBodyTwoOldSignalsIsProbablyOldMidConfidence(t *testing.T) {
	body := `<!DOCTYPE html><html><head><meta name="viewport" content="width=device-width"></head><body>
<table><tr><td><table><tr><td>nested</td></tr></table><table><tr><td>nested</td></tr></table></td></tr></table>
<font color="red">old text</font>
</body></html>`
	res := ScanBody(body)
	if res.Verdict != VerdictProbablyOld || res.Confidence != 0.65 {
		t.Fatalf("got verdict=%v confidence=%v, want ProbablyOld/0.65", res.Verdict, res.Confidence)
	}
}

func TestScanBodyModernSignalsOutweighSingleOldSignal(t *testing.T) {
	body := `<!DOCTYPE html><html><head>
<meta name="viewport" content="width=device-width">
<meta property="og:title" content="Test">
<meta name="twitter:card" content="summary">
</head><body>
<div id="app"></div>
<font color="red">legacy leftover</font>
</body></html>`
	res := ScanBody(body)
	if res.Verdict != VerdictProbablyModern {
		t.Fatalf("verdict = %v, want ProbablyModern (3 modern signals outweigh 1 old)", res.Verdict)
	}
	if res.Confidence != 0.85 {
		t.Fatalf("confidence = %v, want 0.85 for 3+ modern signals", res.Confidence)
	}
}

func TestScanBodyNoSignalsIsUnknown(t *testing.T) {
	body := `<!DOCTYPE html><html><head><meta name="viewport" content="width=device-width"></head><body><p>plain page</p></body></html>`
	res := ScanBody(body)
	if res.Verdict != VerdictUnknown {
		t.Fatalf("verdict = %v, want Unknown", res.Verdict)
	}
}

func TestScanBodyInvalidHTMLReturnsUnknownNotPanic(t *testing.T) {
	res := ScanBody("")
	if res.Verdict != VerdictUnknown {
		t.Fatalf("verdict = %v, want Unknown for empty body", res.Verdict)
	}
}
