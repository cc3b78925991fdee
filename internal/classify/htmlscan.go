package classify

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/use-agent/leadforge/internal/fetch"
	"github.com/use-agent/leadforge/internal/ratelimit"
)

// Compiled once: generator/viewport meta tags are checked on every scan,
// so they go through cascadia directly rather than goquery's Find.
var (
	generatorSel = cascadia.MustCompile(`meta[name="generator"]`)
	viewportSel  = cascadia.MustCompile(`meta[name="viewport"]`)
)

// HTMLResult is the HTML Analyzer's output.
type HTMLResult struct {
	Verdict    Verdict
	Confidence float64
	Signals    []string
	Err        error
}

var (
	definiteOldGeneratorRe = regexp.MustCompile(`(?i)frontpage|golive|nvu|microsoft word|wordpress\s*[123]\.|joomla!?\s*1\.|drupal\s*[1-6]\b`)
	oldCMSRe               = regexp.MustCompile(`(?i)wordpress\s*[4-5]\.[0-4]|joomla!?\s*[23]\.`)
	modernCMSRe            = regexp.MustCompile(`(?i)wordpress\s*(5\.[5-9]|6\.|[7-9]\.)|joomla!?\s*[45]\.|shopify|wix|squarespace`)
	legacyJSRe             = regexp.MustCompile(`(?i)jquery[/\-]1\.[0-5]|prototype\.js|mootools|swfobject`)
	deprecatedTagRe        = regexp.MustCompile(`(?i)<(font|center|marquee|blink|basefont|big|strike|tt|applet)[\s>]`)
)

// Scan issues a GET via client and classifies the page body.
func Scan(ctx context.Context, client *fetch.Client, target string) HTMLResult {
	resp, err := client.Get(ctx, target, ratelimit.ClassOther)
	if err != nil {
		return HTMLResult{Verdict: VerdictUnknown, Err: err}
	}
	if !resp.Success {
		return HTMLResult{Verdict: VerdictUnknown, Signals: []string{"html:probe_failed"}}
	}
	return ScanBody(resp.Body)
}

// ScanBody classifies raw HTML body text, exposed separately so tests
// and golden fixtures don't require a live fetch.
func ScanBody(body string) HTMLResult {
	if strings.TrimSpace(body) == "" {
		return HTMLResult{Verdict: VerdictUnknown}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return HTMLResult{Verdict: VerdictUnknown, Err: err}
	}

	var signals []string
	definiteOld := false

	tokens := scanTokens(body)

	var generator string
	if nodes := generatorSel.MatchAll(doc.Nodes[0]); len(nodes) > 0 {
		generator = attrVal(nodes[0], "content")
	}
	if definiteOldGeneratorRe.MatchString(generator) {
		definiteOld = true
		signals = append(signals, "html:definite_old_generator")
	} else if oldCMSRe.MatchString(generator) {
		signals = append(signals, "html:old_cms")
	} else if modernCMSRe.MatchString(generator) {
		signals = append(signals, "html:modern_cms")
	}

	doctype := strings.ToLower(tokens.doctype)
	if strings.Contains(doctype, "html 3") || strings.Contains(doctype, "html 4") {
		definiteOld = true
		signals = append(signals, "html:old_doctype")
	} else if doctype == "" {
		signals = append(signals, "html:missing_doctype")
	}

	if doc.Find("frameset, frame").Length() > 0 {
		definiteOld = true
		signals = append(signals, "html:frameset")
	}
	if doc.Find("object[type*=flash], embed[type*=flash], object[classid*=clsid]").Length() > 0 {
		definiteOld = true
		signals = append(signals, "html:flash_or_activex")
	}

	if deprecatedTagRe.MatchString(body) {
		signals = append(signals, "html:deprecated_tags")
	}

	combinedJS := tokens.scriptText + " " + strings.Join(tokens.scriptSrcs, " ")
	if legacyJSRe.MatchString(combinedJS) {
		signals = append(signals, "html:legacy_js_library")
	}

	if tokens.title == "" {
		signals = append(signals, "html:missing_title")
	}

	if doc.Find("table table").Length() >= 2 {
		signals = append(signals, "html:table_layout")
	}
	if doc.Find("[style]").Length() > 50 {
		signals = append(signals, "html:excessive_inline_style")
	}
	if len(viewportSel.MatchAll(doc.Nodes[0])) == 0 {
		signals = append(signals, "html:no_viewport")
	}

	modernCount := 0
	if doc.Find(`[itemscope], [itemtype*="schema.org"]`).Length() > 0 {
		modernCount++
		signals = append(signals, "html:schema_org")
	}
	if doc.Find(`meta[property^="og:"]`).Length() > 0 {
		modernCount++
		signals = append(signals, "html:open_graph")
	}
	if doc.Find(`meta[name^="twitter:"]`).Length() > 0 {
		modernCount++
		signals = append(signals, "html:twitter_cards")
	}
	if strings.Contains(tokens.scriptText, "serviceworker") || strings.Contains(body, "service-worker") {
		modernCount++
		signals = append(signals, "html:service_worker")
	}
	if doc.Find(`#root, #app, #__next, #__nuxt`).Length() > 0 {
		modernCount++
		signals = append(signals, "html:spa_root")
	}
	if strings.Contains(body, "display:grid") || strings.Contains(body, "display: grid") || strings.Contains(body, "display:flex") || strings.Contains(body, "display: flex") {
		modernCount++
		signals = append(signals, "html:modern_css_layout")
	}

	if definiteOld {
		return HTMLResult{Verdict: VerdictDefinitelyOld, Confidence: 0.95, Signals: signals}
	}

	probableOldCount := 0
	for _, s := range signals {
		switch s {
		case "html:old_cms", "html:deprecated_tags", "html:table_layout", "html:excessive_inline_style", "html:missing_doctype", "html:no_viewport":
			probableOldCount++
		}
	}

	switch {
	case probableOldCount >= 3:
		return HTMLResult{Verdict: VerdictProbablyOld, Confidence: 0.8, Signals: signals}
	case probableOldCount == 2:
		return HTMLResult{Verdict: VerdictProbablyOld, Confidence: 0.65, Signals: signals}
	case probableOldCount == 1 && modernCount == 0:
		return HTMLResult{Verdict: VerdictProbablyOld, Confidence: 0.5, Signals: signals}
	}

	switch {
	case modernCount >= 3:
		return HTMLResult{Verdict: VerdictProbablyModern, Confidence: 0.85, Signals: signals}
	case modernCount >= 1:
		return HTMLResult{Verdict: VerdictProbablyModern, Confidence: 0.6, Signals: signals}
	}

	return HTMLResult{Verdict: VerdictUnknown, Signals: signals}
}

// tokenScan holds the results of a single raw-tokenizer pass: title,
// doctype, and script tags, gathered without building a DOM tree.
type tokenScan struct {
	title      string
	doctype    string
	scriptSrcs []string
	scriptText string
}

// scanTokens mirrors engine's extractTitle, extended to also pull the
// doctype declaration and inline/external script content in one pass.
func scanTokens(body string) tokenScan {
	var result tokenScan
	tokenizer := html.NewTokenizer(strings.NewReader(body))
	inTitle := false
	inScript := false
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return result
		case html.DoctypeToken:
			result.doctype = string(tokenizer.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := tokenizer.TagName()
			switch string(name) {
			case "title":
				inTitle = true
			case "script":
				inScript = true
				for hasAttr {
					key, val, more := tokenizer.TagAttr()
					if string(key) == "src" {
						result.scriptSrcs = append(result.scriptSrcs, string(val))
					}
					if !more {
						break
					}
				}
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "title":
				inTitle = false
			case "script":
				inScript = false
			}
		case html.TextToken:
			if inTitle && result.title == "" {
				result.title = strings.TrimSpace(string(tokenizer.Text()))
			}
			if inScript {
				result.scriptText += strings.ToLower(string(tokenizer.Text())) + " "
			}
		}
	}
}

// attrVal reads an attribute from a raw *html.Node, used with cascadia's
// direct MatchAll results (which bypass goquery's Selection wrapper).
func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
