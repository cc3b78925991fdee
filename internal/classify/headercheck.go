package classify

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/use-agent/leadforge/internal/fetch"
	"github.com/use-agent/leadforge/internal/ratelimit"
)

// HeaderResult is the Header Analyzer's output.
type HeaderResult struct {
	Verdict        Verdict
	Confidence     float64
	Signals        []string
	SecurityHeaderCount int
	Err            error
}

var securityHeaderNames = []string{
	"strict-transport-security",
	"content-security-policy",
	"x-content-type-options",
	"x-frame-options",
	"x-xss-protection",
	"referrer-policy",
	"permissions-policy",
}

var (
	oldServerDefiniteRe = regexp.MustCompile(`(?i)apache/1\.|apache/2\.0|iis/[1-7]\.|nginx/0\.|php/5\.[0-3]|asp\.net.*[1-3]\.|frontpage`)
	oldServerProbableRe = regexp.MustCompile(`(?i)apache/2\.[1-2]|iis/[8]\.|php/5\.[4-6]`)
	modernServerRe      = regexp.MustCompile(`(?i)nginx/1\.(1[89]|[2-9]\d)|apache/2\.4|cloudflare|fastly|akamai|php/[78]\.|vercel|netlify`)
)

// CheckHeaders issues a HEAD request via client and classifies the
// result by response headers.
func CheckHeaders(ctx context.Context, client *fetch.Client, target string) HeaderResult {
	resp, err := client.Head(ctx, target, ratelimit.ClassOther)
	if err != nil {
		return HeaderResult{Verdict: VerdictUnknown, Err: err}
	}
	if !resp.Success {
		if resp.StatusCode == 0 {
			// transport-level failure: no response at all
			return HeaderResult{Verdict: VerdictUnknown, Err: fmt.Errorf("header probe: %s", resp.Err)}
		}
		return HeaderResult{Verdict: VerdictUnknown, Signals: []string{"header:probe_failed"}}
	}

	var signals []string
	server := resp.Headers["server"]
	poweredBy := resp.Headers["x-powered-by"]
	combined := strings.ToLower(server + " " + poweredBy)

	secCount := 0
	for _, h := range securityHeaderNames {
		if resp.Headers[h] != "" {
			secCount++
		}
	}
	if secCount == 0 {
		signals = append(signals, "header:no_security_headers")
	} else if secCount >= 4 {
		signals = append(signals, "header:many_security_headers")
	}

	definiteOld := oldServerDefiniteRe.MatchString(combined)
	probableOld := oldServerProbableRe.MatchString(combined)
	modern := modernServerRe.MatchString(combined)

	if definiteOld {
		signals = append(signals, "header:old_server")
		return HeaderResult{Verdict: VerdictDefinitelyOld, Confidence: 0.9, Signals: signals, SecurityHeaderCount: secCount}
	}

	probableOldSignals := 0
	if probableOld {
		probableOldSignals++
		signals = append(signals, "header:probable_old_server")
	}
	if secCount == 0 {
		probableOldSignals++
	}

	if probableOldSignals >= 2 {
		return HeaderResult{Verdict: VerdictProbablyOld, Confidence: 0.7, Signals: signals, SecurityHeaderCount: secCount}
	}

	if modern {
		signals = append(signals, "header:modern_platform")
		if secCount >= 3 {
			return HeaderResult{Verdict: VerdictProbablyModern, Confidence: 0.85, Signals: signals, SecurityHeaderCount: secCount}
		}
		return HeaderResult{Verdict: VerdictProbablyModern, Confidence: 0.6, Signals: signals, SecurityHeaderCount: secCount}
	}

	return HeaderResult{Verdict: VerdictUnknown, Confidence: 0, Signals: signals, SecurityHeaderCount: secCount}
}
