package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/use-agent/leadforge/internal/fetch"
	"github.com/use-agent/leadforge/internal/leads"
)

// Depth selects how far the cascade is allowed to run.
type Depth int

const (
	DepthFast Depth = iota
	DepthNormal
	DepthThorough
)

// Classifier runs the URL/header/HTML cascade and produces a
// WebsiteVerdict.
type Classifier struct {
	client *fetch.Client
}

// New builds a Classifier. client may be nil only when every call
// either uses DepthFast or targets a definitely-old or builder-platform
// URL (no I/O stage is reachable in those cases); any other path
// requires a client.
func New(client *fetch.Client) *Classifier {
	return &Classifier{client: client}
}

// Classify runs the cascade against target at the given depth.
func (c *Classifier) Classify(ctx context.Context, target string, depth Depth) leads.WebsiteVerdict {
	verdict := leads.WebsiteVerdict{CheckMethods: map[string]bool{}}

	urlRes := ClassifyURL(target)
	verdict.MarkMethod("url")
	addSignals(&verdict, "url", urlRes.Signals)

	if urlRes.Verdict == VerdictDefinitelyOld {
		verdict.Status = leads.StatusOld
		verdict.Confidence = urlRes.Confidence
		return verdict
	}
	if urlRes.Verdict == VerdictBuilderPlatform {
		verdict.Status = leads.StatusOld
		verdict.Confidence = urlRes.Confidence
		return verdict
	}

	if depth == DepthFast {
		switch urlRes.Verdict {
		case VerdictProbablyModern:
			verdict.Status = leads.StatusModern
			verdict.Confidence = urlRes.Confidence
		case VerdictProbablyOld:
			verdict.Status = leads.StatusOld
			verdict.Confidence = urlRes.Confidence
		default:
			verdict.Status = leads.StatusUnknown
		}
		return verdict
	}

	headerRes := CheckHeaders(ctx, c.client, target)
	verdict.MarkMethod("header")
	addSignals(&verdict, "header", headerRes.Signals)

	if headerRes.Verdict == VerdictDefinitelyOld {
		verdict.Status = leads.StatusOld
		verdict.Confidence = headerRes.Confidence
		return verdict
	}
	if headerRes.Err != nil {
		// header probe failed: fall back to URL verdict with attenuated
		// confidence.
		verdict.Status = mapVerdict(urlRes.Verdict)
		verdict.Confidence = urlRes.Confidence * 0.7
		return verdict
	}

	if depth == DepthNormal {
		urlOld := urlRes.Verdict == VerdictProbablyOld
		urlModern := urlRes.Verdict == VerdictProbablyModern
		headerOld := headerRes.Verdict == VerdictProbablyOld
		headerModern := headerRes.Verdict == VerdictProbablyModern

		switch {
		case (urlOld || headerOld) && !urlModern && !headerModern:
			verdict.Status = leads.StatusOld
			verdict.Confidence = maxConfidence(urlRes.Confidence, headerRes.Confidence)
			return verdict
		case (urlModern || headerModern) && !urlOld && !headerOld:
			verdict.Status = leads.StatusModern
			verdict.Confidence = maxConfidence(urlRes.Confidence, headerRes.Confidence)
			return verdict
		case urlRes.Verdict == VerdictUnknown && headerRes.Verdict == VerdictUnknown:
			// fall through to the HTML stage regardless of depth
		default:
			verdict.Status = leads.StatusUnknown
			return verdict
		}
	}

	htmlRes := Scan(ctx, c.client, target)
	verdict.MarkMethod("html")
	addSignals(&verdict, "html", htmlRes.Signals)

	if htmlRes.Verdict == VerdictDefinitelyOld {
		verdict.Status = leads.StatusOld
		verdict.Confidence = htmlRes.Confidence
		return verdict
	}

	oldScore := weight(urlRes.Verdict, true) + weight(headerRes.Verdict, true) + weightHTML(htmlRes.Verdict, true)
	modernScore := weight(urlRes.Verdict, false) + weight(headerRes.Verdict, false) + weightHTML(htmlRes.Verdict, false)

	verdict.Status, verdict.Confidence = combineWeighted(oldScore, modernScore)
	return verdict
}

// combineWeighted turns the URL/header/HTML weighted scores into a
// final status and confidence: a side reaching the decisive threshold
// of 4 wins outright; below that the higher side still wins but at a
// flat confidence; a tie is Unknown. Ported from the original's
// `_make_final_decision`.
func combineWeighted(oldScore, modernScore float64) (leads.WebsiteStatus, float64) {
	var status leads.WebsiteStatus
	switch {
	case oldScore >= 4 && oldScore > modernScore:
		status = leads.StatusOld
	case modernScore >= 4 && modernScore > oldScore:
		status = leads.StatusModern
	case oldScore > modernScore:
		status = leads.StatusOld
	case modernScore > oldScore:
		status = leads.StatusModern
	default:
		return leads.StatusUnknown, 0.3
	}

	winning := oldScore
	if status == leads.StatusModern {
		winning = modernScore
	}
	if winning < 4 {
		return status, 0.6
	}
	confidence := 0.5 + 0.1*winning
	if confidence > 0.95 {
		confidence = 0.95
	}
	return status, confidence
}

// weight scores the URL/header stages: probable-old is worth 2,
// probable-modern is worth 2. Definite-old never reaches here since
// Classify already short-circuits on it.
func weight(v Verdict, old bool) float64 {
	if old && v == VerdictProbablyOld {
		return 2
	}
	if !old && v == VerdictProbablyModern {
		return 2
	}
	return 0
}

// weightHTML scores the HTML stage: probable-old is worth 2.5,
// probable-modern is worth 3.
func weightHTML(v Verdict, old bool) float64 {
	if old && v == VerdictProbablyOld {
		return 2.5
	}
	if !old && v == VerdictProbablyModern {
		return 3
	}
	return 0
}

func mapVerdict(v Verdict) leads.WebsiteStatus {
	switch v {
	case VerdictProbablyOld, VerdictDefinitelyOld, VerdictBuilderPlatform:
		return leads.StatusOld
	case VerdictProbablyModern:
		return leads.StatusModern
	default:
		return leads.StatusUnknown
	}
}

func maxConfidence(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func addSignals(v *leads.WebsiteVerdict, stage string, signals []string) {
	for _, s := range signals {
		if !strings.HasPrefix(s, stage+":") {
			s = fmt.Sprintf("%s:%s", stage, s)
		}
		v.AddSignal(s)
	}
}
