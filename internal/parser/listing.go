// Package parser extracts ListingStub and Lead records from directory
// search-result pages, detail pages, and map-service result pages
// using goquery selectors with regex fallbacks for malformed markup.
package parser

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/leadforge/internal/leads"
)

// listingSelectors is tried in order; the first selector that matches
// at least one node wins. Mirrors the directory's historical markup
// variants.
var listingSelectors = []string{
	`article[data-realid]`,
	`article.mod-Treffer`,
	`div.mod-Treffer`,
	`li.mod-Treffer`,
}

var (
	plzCityRe    = regexp.MustCompile(`\b(\d{5})\s+([A-ZÄÖÜ][a-zäöüß\-\s]+)\b`)
	streetRe     = regexp.MustCompile(`([A-ZÄÖÜ][a-zäöüßA-Za-zÄÖÜäöü\.\-\s]+?\s\d+[a-zA-Z]?)\s*,?\s*(\d{5})?\s*([A-ZÄÖÜ][a-zäöüß\-\s]+)?`)
	phoneDigitsRe = regexp.MustCompile(`[^0-9+\-/ ]`)
	phoneFallback = regexp.MustCompile(`(\+?\d[\d\s\-/]{5,}\d)`)
	ratingCountParensRe = regexp.MustCompile(`\((\d+)\)`)
	ratingCountWordsRe  = regexp.MustCompile(`(\d+)\s*Bewertung`)
)

// ListingParser extracts search-result listings from directory HTML.
type ListingParser struct{}

// NewListingParser builds a ListingParser.
func NewListingParser() *ListingParser { return &ListingParser{} }

// Parse returns the ListingStubs found in html, given the page's own
// URL (used to resolve relative detail links).
func (p *ListingParser) Parse(html, pageURL string) ([]leads.ListingStub, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, leads.NewScrapeError(leads.ErrCodeParserMiss, "failed to parse listing HTML", err)
	}

	base, _ := url.Parse(pageURL)

	var nodes *goquery.Selection
	for _, sel := range listingSelectors {
		found := doc.Find(sel)
		if found.Length() > 0 {
			nodes = found
			break
		}
	}
	if nodes == nil {
		nodes = fallbackScan(doc)
	}

	var stubs []leads.ListingStub
	nodes.Each(func(_ int, s *goquery.Selection) {
		stub, ok := p.extractOne(s, base)
		if ok {
			stubs = append(stubs, stub)
		}
	})
	return stubs, nil
}

func fallbackScan(doc *goquery.Document) *goquery.Selection {
	return doc.Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
		if s.Find("h2, h3, a").Length() == 0 {
			return false
		}
		text := s.Text()
		return plzCityRe.MatchString(text) || phoneFallback.MatchString(text)
	})
}

func (p *ListingParser) extractOne(s *goquery.Selection, base *url.URL) (leads.ListingStub, bool) {
	var stub leads.ListingStub

	name, detailURL := extractNameAndLink(s, base)
	if name == "" {
		return stub, false
	}
	stub.Name = name
	stub.DetailURL = detailURL

	if phone := extractPhone(s); phone != "" {
		stub.Phone = phone
	}

	stub.AddressRaw = extractAddressRaw(s)
	stub.Category = strings.TrimSpace(s.Find(".category, .mod-Treffer__branche, [class*=branche]").First().Text())

	if href, ok := s.Find("a[href*='website'], a.mod-TreffermitBild__websiteLink, a[class*=website]").First().Attr("href"); ok {
		stub.HasWebsite = true
		stub.WebsiteURL = resolveRedirect(href)
	}

	if rating, count, ok := extractRating(s); ok {
		stub.Rating = &rating
		if count >= 0 {
			stub.RatingCount = &count
		}
	}

	stub.Source = leads.SourceDirectory
	return stub, true
}

func extractNameAndLink(s *goquery.Selection, base *url.URL) (string, string) {
	for _, sel := range []string{"h2 a", "h3 a", "a.mod-Treffer__name", "a[data-sourcetype]"} {
		node := s.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		name := strings.TrimSpace(node.Text())
		href, _ := node.Attr("href")
		if name != "" {
			return name, resolveURL(base, href)
		}
	}

	// Fallback: any link whose href looks like a detail-page path.
	var name, link string
	s.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if strings.Contains(href, "/gsbiz/") || strings.Contains(href, "/Detail/") {
			name = strings.TrimSpace(a.Text())
			link = resolveURL(base, href)
			return false
		}
		return true
	})
	return name, link
}

func resolveURL(base *url.URL, href string) string {
	if href == "" || base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// resolveRedirect unwraps a "…?url=<encoded>" redirect wrapper
// commonly used for outbound website links.
func resolveRedirect(raw string) string {
	if idx := strings.Index(raw, "?url="); idx >= 0 {
		encoded := raw[idx+len("?url="):]
		if decoded, err := url.QueryUnescape(encoded); err == nil {
			return decoded
		}
	}
	return raw
}

func extractPhone(s *goquery.Selection) string {
	text := s.Find(".phone, [class*=telefon], [class*=phone]").First().Text()
	if text == "" {
		text = s.Text()
	}
	cleaned := phoneDigitsRe.ReplaceAllString(text, "")
	digits := regexp.MustCompile(`\D`).ReplaceAllString(cleaned, "")
	if len(digits) >= 6 {
		return strings.TrimSpace(cleaned)
	}
	if m := phoneFallback.FindString(s.Text()); m != "" {
		return strings.TrimSpace(m)
	}
	return ""
}

func extractAddressRaw(s *goquery.Selection) string {
	if addr := strings.TrimSpace(s.Find(".address, [class*=adresse]").First().Text()); addr != "" {
		return addr
	}
	if m := streetRe.FindString(s.Text()); m != "" {
		return strings.TrimSpace(m)
	}
	if m := plzCityRe.FindString(s.Text()); m != "" {
		return strings.TrimSpace(m)
	}
	return ""
}

func extractRating(s *goquery.Selection) (float64, int, bool) {
	ratingText := strings.TrimSpace(s.Find(".rating, [class*=bewertung]").First().Text())
	if ratingText == "" {
		return 0, -1, false
	}
	normalized := strings.ReplaceAll(ratingText, ",", ".")
	m := regexp.MustCompile(`\d+(\.\d+)?`).FindString(normalized)
	if m == "" {
		return 0, -1, false
	}
	val, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, -1, false
	}

	count := -1
	if cm := ratingCountParensRe.FindStringSubmatch(ratingText); cm != nil {
		count, _ = strconv.Atoi(cm[1])
	} else if cm := ratingCountWordsRe.FindStringSubmatch(ratingText); cm != nil {
		count, _ = strconv.Atoi(cm[1])
	}
	return val, count, true
}

// PaginationInfo is the result of examining a listing page's
// pagination controls.
type PaginationInfo struct {
	Current int
	Total   int
	HasNext bool
}

// Pagination extracts the current/total page numbers and whether a
// next page exists.
func (p *ListingParser) Pagination(html string) (PaginationInfo, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return PaginationInfo{}, leads.NewScrapeError(leads.ErrCodeParserMiss, "failed to parse pagination", err)
	}

	info := PaginationInfo{Current: 1, Total: 1}
	if cur := doc.Find(".pagination .is-active, .pagination__current").First().Text(); cur != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(cur)); err == nil {
			info.Current = n
		}
	}

	max := info.Current
	doc.Find(".pagination a, .pagination__item").Each(func(_ int, a *goquery.Selection) {
		if n, err := strconv.Atoi(strings.TrimSpace(a.Text())); err == nil && n > max {
			max = n
		}
	})
	info.Total = max

	info.HasNext = doc.Find(`a[rel="next"], .pagination__next:not(.is-disabled)`).Length() > 0 || info.Current < info.Total
	return info, nil
}

// TotalResults extracts a directory's reported total-results count,
// when the page declares one.
func (p *ListingParser) TotalResults(html string) (int, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, false
	}
	text := doc.Find(`[class*="ergebnis"], [class*="result-count"], [class*="treffer"]`).First().Text()
	m := regexp.MustCompile(`(\d[\d\.]*)\s*(Ergebnis|Treffer)`).FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	digits := strings.ReplaceAll(m[1], ".", "")
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}
