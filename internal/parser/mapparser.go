package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/leadforge/internal/leads"
)

// mapResultSelectors is tried in priority order against a rendered map
// service results panel.
var mapResultSelectors = []string{
	`div[role="article"]`,
	`a[data-cid]`,
	`div.section-result`,
}

var placeIDAttrs = []string{"data-cid", "data-place-id", "data-result-id"}

// MapParser extracts ListingStub and Lead records from a map-service
// results DOM. It never emits review text, review author names,
// user-submitted photos, or owner names: its output is constrained to
// ListingStub/Lead, neither of which has fields for that data, so
// there is no way for this parser to leak it even if present in the
// source DOM.
type MapParser struct{}

// NewMapParser builds a MapParser.
func NewMapParser() *MapParser { return &MapParser{} }

// ParseResults extracts listing stubs from a rendered results panel.
// Scrolling to load further results is the orchestrator's
// responsibility (§4.O); this parser only reads whatever DOM it is
// given.
func (p *MapParser) ParseResults(html string) ([]leads.ListingStub, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, leads.NewScrapeError(leads.ErrCodeParserMiss, "failed to parse map results HTML", err)
	}

	var nodes *goquery.Selection
	for _, sel := range mapResultSelectors {
		found := doc.Find(sel)
		if found.Length() > 0 {
			nodes = found
			break
		}
	}
	if nodes == nil {
		nodes = doc.Find("[" + placeIDAttrs[0] + "], [" + placeIDAttrs[1] + "], [" + placeIDAttrs[2] + "]")
	}

	var stubs []leads.ListingStub
	nodes.Each(func(_ int, s *goquery.Selection) {
		stub, ok := p.extractOne(s)
		if ok {
			stubs = append(stubs, stub)
		}
	})
	return stubs, nil
}

func (p *MapParser) extractOne(s *goquery.Selection) (leads.ListingStub, bool) {
	var stub leads.ListingStub

	name := strings.TrimSpace(s.Find(`[class*="fontHeadline"], h3, .section-result-title`).First().Text())
	if name == "" {
		name = strings.TrimSpace(s.AttrOr("aria-label", ""))
	}
	if name == "" {
		return stub, false
	}
	stub.Name = name

	for _, attr := range placeIDAttrs {
		if id, ok := s.Attr(attr); ok && id != "" {
			stub.PlaceID = id
			break
		}
	}
	if stub.PlaceID == "" {
		if href, ok := s.Find("a").First().Attr("href"); ok {
			if m := regexp.MustCompile(`!1s([^!]+)`).FindStringSubmatch(href); m != nil {
				stub.PlaceID = m[1]
			}
		}
	}

	text := s.Text()
	if m := plzCityRe.FindString(text); m != "" {
		stub.AddressRaw = strings.TrimSpace(m)
	}
	if m := phoneFallback.FindString(text); m != "" {
		stub.Phone = strings.TrimSpace(m)
	}

	stub.Category = strings.TrimSpace(s.Find(`[class*="fontBodyMedium"] span`).First().Text())

	if rating, count, ok := extractMapRating(text); ok {
		stub.Rating = &rating
		if count >= 0 {
			stub.RatingCount = &count
		}
	}

	if href, ok := s.Find(`a[data-value="Website"], a[aria-label*="Website"]`).First().Attr("href"); ok && href != "" {
		stub.HasWebsite = true
		stub.WebsiteURL = href
	}

	stub.Source = leads.SourceMap
	return stub, true
}

var mapRatingRe = regexp.MustCompile(`(\d[.,]\d)\s*(?:\((\d+)\))?`)

func extractMapRating(text string) (float64, int, bool) {
	m := mapRatingRe.FindStringSubmatch(text)
	if m == nil {
		return 0, -1, false
	}
	val, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return 0, -1, false
	}
	count := -1
	if m[2] != "" {
		count, _ = strconv.Atoi(m[2])
	}
	return val, count, true
}
