package leads

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Source tags a lead's origin. Leads may carry more than one once the
// Aggregator has merged records from multiple sources.
const (
	SourceDirectory = "directory"
	SourceMap       = "map"
)

// Lead is the stable output record for one discovered business. It is
// uniquely addressable by (one of its Sources, a source-local id), but
// this package does not enforce that uniqueness itself — that is an
// Aggregator-level property.
type Lead struct {
	Name           string
	Category       string
	SubCategory    string
	Description    string
	Address        Address
	Phone          string
	Fax            string
	Email          string
	WebsiteURL     string
	Verdict        WebsiteVerdict
	Rating         *float64
	RatingCount    *int
	OpeningHours   map[string]string
	DirectoryURL   string
	DirectoryID    string
	MapPlaceID     string
	MapURL         string
	ScrapedAt      time.Time
	Sources        map[string]bool
}

// New constructs a Lead, applying the same validation/normalization the
// original implementation's pydantic validators perform: name and
// category must be non-empty; email, if present, must match a basic
// address pattern or is discarded; a website URL gains a scheme if
// missing.
func New(name, category string, addr Address) (*Lead, error) {
	name = strings.TrimSpace(name)
	category = strings.TrimSpace(category)
	if name == "" {
		return nil, NewScrapeError(ErrCodeParserMiss, "lead name is empty", nil)
	}
	if category == "" {
		return nil, NewScrapeError(ErrCodeParserMiss, "lead category is empty", nil)
	}
	return &Lead{
		Name:      name,
		Category:  category,
		Address:   addr,
		Verdict:   NewNotYetChecked(),
		ScrapedAt: time.Now(),
		Sources:   map[string]bool{},
	}, nil
}

// SetEmail validates and stores an email address; an invalid address
// is silently discarded, matching the original's validator behavior.
func (l *Lead) SetEmail(raw string) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return
	}
	if emailPattern.MatchString(raw) {
		l.Email = raw
	}
}

// SetWebsiteURL normalizes and stores a website URL, prepending a
// scheme when one is missing.
func (l *Lead) SetWebsiteURL(raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	l.WebsiteURL = raw
}

// HasWebsite reports whether a website URL is present.
func (l *Lead) HasWebsite() bool { return l.WebsiteURL != "" }

// QualityScore recomputes the 0-100 quality score from currently
// present fields, per the documented rubric: phone +20, email +25,
// website +15, full address +15 (partial +7), rating+count +10, hours
// +5, description +10, clamped to 100.
func (l *Lead) QualityScore() int {
	score := 0
	if l.Phone != "" {
		score += 20
	}
	if l.Email != "" {
		score += 25
	}
	if l.HasWebsite() {
		score += 15
	}
	if l.Address.HasFull() {
		score += 15
	} else if l.Address.HasPartial() {
		score += 7
	}
	if l.Rating != nil && l.RatingCount != nil && *l.RatingCount > 0 {
		score += 10
	}
	if len(l.OpeningHours) > 0 {
		score += 5
	}
	if l.Description != "" {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}

// AddSource tags this lead as having data contributed by source.
func (l *Lead) AddSource(source string) {
	if l.Sources == nil {
		l.Sources = map[string]bool{}
	}
	l.Sources[source] = true
}

// SourceList returns the lead's sources with directory first and map
// second; any other source tags follow in map iteration order.
func (l *Lead) SourceList() []string {
	out := make([]string, 0, len(l.Sources))
	for _, s := range []string{SourceDirectory, SourceMap} {
		if l.Sources[s] {
			out = append(out, s)
		}
	}
	for s := range l.Sources {
		if s != SourceDirectory && s != SourceMap {
			out = append(out, s)
		}
	}
	return out
}

func (l *Lead) String() string {
	return fmt.Sprintf("Lead{%s, %s, %s}", l.Name, l.Category, l.Address.FormatFull())
}
