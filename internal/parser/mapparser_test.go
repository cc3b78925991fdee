package parser

import "testing"

const sampleMapHTML = `
<html><body>
<div role="article" data-cid="CID-123" aria-label="Friseur Müller">
  <span class="fontHeadline">Friseur Müller</span>
  <span class="fontBodyMedium"><span>Friseur</span></span>
  <span>4,7 (88) · Hauptstr. 1, 10115 Berlin · 030 98765432</span>
  <a data-value="Website" href="https://salon-mueller.de">Website</a>
</div>
</body></html>
`

func TestMapParserExtractsListing(t *testing.T) {
	p := NewMapParser()
	stubs, err := p.ParseResults(sampleMapHTML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stubs) != 1 {
		t.Fatalf("expected 1 stub, got %d", len(stubs))
	}

	s := stubs[0]
	if s.Name != "Friseur Müller" {
		t.Errorf("expected name, got %q", s.Name)
	}
	if s.PlaceID != "CID-123" {
		t.Errorf("expected place id CID-123, got %q", s.PlaceID)
	}
	if s.Rating == nil || *s.Rating != 4.7 {
		t.Errorf("expected rating 4.7, got %v", s.Rating)
	}
	if s.RatingCount == nil || *s.RatingCount != 88 {
		t.Errorf("expected rating count 88, got %v", s.RatingCount)
	}
	if !s.HasWebsite || s.WebsiteURL != "https://salon-mueller.de" {
		t.Errorf("expected website extracted, got %q", s.WebsiteURL)
	}
	if s.Source != "map" {
		t.Errorf("expected source=map, got %q", s.Source)
	}
}

func TestMapParserSkipsArticlesWithoutName(t *testing.T) {
	p := NewMapParser()
	stubs, err := p.ParseResults(`<div role="article"></div>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stubs) != 0 {
		t.Errorf("expected 0 stubs, got %d", len(stubs))
	}
}
