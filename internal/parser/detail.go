package parser

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/leadforge/internal/leads"
)

var (
	telHrefDigitsRe = regexp.MustCompile(`\D`)
	faxLabelRe      = regexp.MustCompile(`(?i)fax[:\s]*([\d\s\-/+()]{6,})`)
	phoneLabelRe    = regexp.MustCompile(`(?i)(telefon|tel\.?)[:\s]*([\d\s\-/+()]{6,})`)
	emailRe         = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	weekdayAbbrev   = map[string]string{
		"mo": "Montag", "di": "Dienstag", "mi": "Mittwoch", "do": "Donnerstag",
		"fr": "Freitag", "sa": "Samstag", "so": "Sonntag",
	}
	hoursRowRe = regexp.MustCompile(`(?i)(mo|di|mi|do|fr|sa|so|montag|dienstag|mittwoch|donnerstag|freitag|samstag|sonntag)[a-zäöü]*\s*:?\s*(\d{1,2}[:\.]\d{2})\s*-\s*(\d{1,2}[:\.]\d{2})`)
	houseNumberSplitRe = regexp.MustCompile(`^(.*?)\s+(\d+[a-zA-Z]?)$`)
)

const (
	maxCategoryLen    = 100
	maxDescriptionLen = 500
)

// DetailParser extracts a full Lead from one directory detail page.
type DetailParser struct {
	// DirectoryHost is used to decide whether a discovered absolute URL
	// counts as an external website link.
	DirectoryHost string
}

// NewDetailParser builds a DetailParser.
func NewDetailParser(directoryHost string) *DetailParser {
	return &DetailParser{DirectoryHost: directoryHost}
}

// Parse returns a Lead built from html, or ok=false when no non-empty
// name could be extracted.
func (p *DetailParser) Parse(html, pageURL string) (*leads.Lead, bool, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, false, leads.NewScrapeError(leads.ErrCodeParserMiss, "failed to parse detail HTML", err)
	}

	name := strings.TrimSpace(doc.Find("h1, .mod-AnbieterHeader__name, [itemprop=name]").First().Text())
	if name == "" {
		return nil, false, nil
	}

	category := strings.TrimSpace(doc.Find(".category, .mod-AnbieterHeader__branche, [itemprop=additionalType]").First().Text())
	if category == "" {
		category = "Unbekannt"
	}
	if len(category) > maxCategoryLen {
		category = category[:maxCategoryLen]
	}

	addr := extractDetailAddress(doc)

	lead, err := leads.New(name, category, addr)
	if err != nil {
		return nil, false, err
	}
	lead.DirectoryURL = pageURL

	lead.Phone = extractDetailPhone(doc)
	lead.Fax = extractDetailFax(doc)
	lead.SetEmail(extractDetailEmail(doc))

	base, _ := url.Parse(pageURL)
	if website, present := extractDetailWebsite(doc, base, p.DirectoryHost); present {
		lead.SetWebsiteURL(website)
	}

	if rating, count, ok := extractDetailRating(doc); ok {
		if rating < 0 {
			rating = 0
		}
		if rating > 5 {
			rating = 5
		}
		lead.Rating = &rating
		if count >= 0 {
			lead.RatingCount = &count
		}
	}

	lead.OpeningHours = extractDetailHours(doc)

	description := strings.TrimSpace(doc.Find(".description, [itemprop=description]").First().Text())
	if len(description) > maxDescriptionLen {
		description = description[:maxDescriptionLen]
	}
	lead.Description = description

	lead.AddSource(leads.SourceDirectory)
	return lead, true, nil
}

func extractDetailAddress(doc *goquery.Document) leads.Address {
	street := strings.TrimSpace(doc.Find("[itemprop=streetAddress]").First().Text())
	plz := strings.TrimSpace(doc.Find("[itemprop=postalCode]").First().Text())
	city := strings.TrimSpace(doc.Find("[itemprop=addressLocality]").First().Text())

	if street != "" || plz != "" || city != "" {
		houseNumber := ""
		if m := houseNumberSplitRe.FindStringSubmatch(street); m != nil {
			street, houseNumber = m[1], m[2]
		}
		return leads.NewAddress(street, houseNumber, plz, city, "")
	}

	// Fallback: parse a combined address block with regexes.
	text := doc.Find(".address, [class*=adresse]").First().Text()
	if m := streetRe.FindStringSubmatch(text); m != nil {
		street := strings.TrimSpace(m[1])
		houseNumber := ""
		if hm := houseNumberSplitRe.FindStringSubmatch(street); hm != nil {
			street, houseNumber = hm[1], hm[2]
		}
		return leads.NewAddress(street, houseNumber, m[2], m[3], "")
	}
	if m := plzCityRe.FindStringSubmatch(text); m != nil {
		return leads.NewAddress("", "", m[1], m[2], "")
	}
	return leads.NewAddress("", "", "", "", "")
}

func extractDetailPhone(doc *goquery.Document) string {
	if href, ok := doc.Find(`a[href^="tel:"]`).First().Attr("href"); ok {
		digits := telHrefDigitsRe.ReplaceAllString(strings.TrimPrefix(href, "tel:"), "")
		if len(digits) >= 6 {
			return strings.TrimPrefix(href, "tel:")
		}
	}
	if text := strings.TrimSpace(doc.Find(".phone, [class*=telefon], [itemprop=telephone]").First().Text()); text != "" {
		return text
	}
	if m := phoneLabelRe.FindStringSubmatch(doc.Text()); m != nil {
		return strings.TrimSpace(m[2])
	}
	return ""
}

func extractDetailFax(doc *goquery.Document) string {
	if text := strings.TrimSpace(doc.Find(".fax, [class*=fax]").First().Text()); text != "" {
		return text
	}
	if m := faxLabelRe.FindStringSubmatch(doc.Text()); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func extractDetailEmail(doc *goquery.Document) string {
	if href, ok := doc.Find(`a[href^="mailto:"]`).First().Attr("href"); ok {
		addr := strings.TrimPrefix(href, "mailto:")
		if idx := strings.Index(addr, "?"); idx >= 0 {
			addr = addr[:idx]
		}
		return addr
	}
	if text := strings.TrimSpace(doc.Find(".email, [itemprop=email]").First().Text()); text != "" {
		return text
	}
	return emailRe.FindString(doc.Text())
}

func extractDetailWebsite(doc *goquery.Document, base *url.URL, directoryHost string) (string, bool) {
	href, ok := doc.Find(`a[class*=website], a[data-sourcetype=website]`).First().Attr("href")
	if ok && href != "" {
		return resolveRedirect(href), true
	}

	// Any absolute external link not pointing back at the directory.
	found := ""
	doc.Find("a[href^=http]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		h, _ := a.Attr("href")
		u, err := url.Parse(h)
		if err != nil || u.Host == "" {
			return true
		}
		if directoryHost != "" && strings.Contains(u.Host, directoryHost) {
			return true
		}
		found = h
		return false
	})
	if found != "" {
		return found, true
	}
	return "", false
}

func extractDetailRating(doc *goquery.Document) (float64, int, bool) {
	text := strings.TrimSpace(doc.Find(".rating, [itemprop=ratingValue]").First().Text())
	if text == "" {
		return 0, -1, false
	}
	normalized := strings.ReplaceAll(text, ",", ".")
	m := regexp.MustCompile(`\d+(\.\d+)?`).FindString(normalized)
	if m == "" {
		return 0, -1, false
	}
	val, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, -1, false
	}

	countText := doc.Find("[itemprop=reviewCount], [itemprop=ratingCount]").First().Text()
	count := -1
	if n, err := strconv.Atoi(strings.TrimSpace(countText)); err == nil {
		count = n
	} else if cm := ratingCountParensRe.FindStringSubmatch(text); cm != nil {
		count, _ = strconv.Atoi(cm[1])
	}
	return val, count, true
}

func extractDetailHours(doc *goquery.Document) map[string]string {
	hours := map[string]string{}

	doc.Find(".opening-hours tr, .mod-Oeffnungszeiten tr, [class*=oeffnungszeit] tr").Each(func(_ int, row *goquery.Selection) {
		addHoursRow(hours, row.Text())
	})
	if len(hours) == 0 {
		for _, m := range hoursRowRe.FindAllStringSubmatch(doc.Text(), -1) {
			day := normalizeWeekday(m[1])
			if day == "" {
				continue
			}
			hours[day] = strings.ReplaceAll(m[2], ".", ":") + " - " + strings.ReplaceAll(m[3], ".", ":")
		}
	}
	return hours
}

func addHoursRow(hours map[string]string, text string) {
	m := hoursRowRe.FindStringSubmatch(text)
	if m == nil {
		return
	}
	day := normalizeWeekday(m[1])
	if day == "" {
		return
	}
	hours[day] = strings.ReplaceAll(m[2], ".", ":") + " - " + strings.ReplaceAll(m[3], ".", ":")
}

func normalizeWeekday(raw string) string {
	key := strings.ToLower(raw)
	if len(key) > 2 {
		key = key[:2]
	}
	return weekdayAbbrev[key]
}
