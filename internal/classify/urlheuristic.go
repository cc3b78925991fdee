// Package classify implements the three-level website-age cascade:
// a no-I/O URL heuristic, an HTTP header probe, and an HTML structural
// scan, combined by a weighted-score classifier.
package classify

import (
	"net/url"
	"regexp"
	"strings"
)

// Verdict is one stage's categorical output.
type Verdict int

const (
	VerdictUnknown Verdict = iota
	VerdictDefinitelyOld
	VerdictProbablyOld
	VerdictProbablyModern
	VerdictBuilderPlatform
)

func (v Verdict) String() string {
	switch v {
	case VerdictDefinitelyOld:
		return "definitely_old"
	case VerdictProbablyOld:
		return "probably_old"
	case VerdictProbablyModern:
		return "probably_modern"
	case VerdictBuilderPlatform:
		return "builder_platform"
	default:
		return "unknown"
	}
}

// URLResult is the URL Heuristic's output.
type URLResult struct {
	Verdict    Verdict
	Confidence float64
	Signals    []string
	Domain     string
	IsHTTPS    bool
}

var (
	legacyHosterRe   = regexp.MustCompile(`(?i)(^|\.)(geocities|tripod|angelfire|freewebs|50webs|netfirms)\.`)
	ipLiteralRe      = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
	telecomHomeRe    = regexp.MustCompile(`(?i)(arcor|t-online)\.de/.*~`)
	deprecatedTLDRe  = regexp.MustCompile(`(?i)\.(info|tk|cjb\.net)$`)
	builderPlatformRe = regexp.MustCompile(`(?i)\.(jimdo|jimdofree|wixsite|weebly|webnode|webador)\.`)
	modernPlatformRe = regexp.MustCompile(`(?i)\.(vercel\.app|netlify\.app|github\.io|firebaseapp\.com|web\.app|pages\.dev)$`)
	suspiciousPathRe = regexp.MustCompile(`(?i)(~[a-z0-9_\-]+|/cgi-bin/|\.php3$|\.asp$|\.htm$)`)
)

// ClassifyURL applies the no-I/O host/path rule table to target.
func ClassifyURL(target string) URLResult {
	if !strings.Contains(target, "://") {
		target = "https://" + target
	}
	u, err := url.Parse(target)
	if err != nil {
		return URLResult{Verdict: VerdictUnknown, Signals: []string{"url:unparseable"}}
	}

	res := URLResult{Domain: u.Host, IsHTTPS: u.Scheme == "https"}

	switch {
	case legacyHosterRe.MatchString(u.Host):
		res.Verdict = VerdictDefinitelyOld
		res.Confidence = 0.95
		res.Signals = append(res.Signals, "url:legacy_hoster")
		return res
	case ipLiteralRe.MatchString(u.Hostname()):
		res.Verdict = VerdictDefinitelyOld
		res.Confidence = 0.9
		res.Signals = append(res.Signals, "url:ip_literal")
		return res
	case telecomHomeRe.MatchString(target):
		res.Verdict = VerdictDefinitelyOld
		res.Confidence = 0.85
		res.Signals = append(res.Signals, "url:telecom_home_path")
		return res
	case deprecatedTLDRe.MatchString(u.Host):
		res.Verdict = VerdictDefinitelyOld
		res.Confidence = 0.7
		res.Signals = append(res.Signals, "url:deprecated_tld")
		return res
	case builderPlatformRe.MatchString(u.Host):
		res.Verdict = VerdictBuilderPlatform
		res.Confidence = 0.95
		res.Signals = append(res.Signals, "url:"+builderSlug(u.Host))
		return res
	case modernPlatformRe.MatchString(u.Host):
		res.Verdict = VerdictProbablyModern
		res.Confidence = 0.7
		res.Signals = append(res.Signals, "url:modern_platform")
	}

	suspicious := 0
	if suspiciousPathRe.MatchString(u.Path) {
		suspicious++
		res.Signals = append(res.Signals, "url:suspicious_path")
	}
	if !res.IsHTTPS {
		res.Signals = append(res.Signals, "url:kein_https")
		suspicious++
	}

	if res.Verdict == VerdictUnknown && suspicious >= 2 {
		res.Verdict = VerdictProbablyOld
		res.Confidence = 0.6
	}

	return res
}

func builderSlug(host string) string {
	for _, slug := range []string{"jimdo", "wixsite", "weebly", "webnode", "webador"} {
		if strings.Contains(host, slug) {
			return slug + "_baukasten"
		}
	}
	return "builder_baukasten"
}
