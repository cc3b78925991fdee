package parser

import "testing"

const sampleListingHTML = `
<html><body>
<div class="results">
<article data-realid="1">
  <h2><a href="/gsbiz/friseur-mueller-1234">Friseur Müller</a></h2>
  <div class="category">Friseur</div>
  <div class="address">Hauptstr. 1, 10115 Berlin</div>
  <div class="phone">030 12345678</div>
  <div class="rating">4,5 (12)</div>
  <a class="mod-TreffermitBild__websiteLink" href="/redirect?url=https%3A%2F%2Fsalon-mueller.de">Website</a>
</article>
<article data-realid="2">
  <h2><a href="/gsbiz/bistro-am-markt-5678">Bistro am Markt</a></h2>
  <div class="category">Restaurant</div>
  <div class="address">10117 Berlin</div>
</article>
</div>
<div class="pagination">
  <span class="pagination__current is-active">1</span>
  <a class="pagination__item" href="?p=2">2</a>
  <a class="pagination__item" href="?p=3">3</a>
  <a rel="next" href="?p=2">next</a>
</div>
</body></html>
`

func TestListingParserExtractsCoreFields(t *testing.T) {
	p := NewListingParser()
	stubs, err := p.Parse(sampleListingHTML, "https://www.gelbeseiten.de/suche/friseur/berlin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stubs) != 2 {
		t.Fatalf("expected 2 stubs, got %d", len(stubs))
	}

	first := stubs[0]
	if first.Name != "Friseur Müller" {
		t.Errorf("expected name %q, got %q", "Friseur Müller", first.Name)
	}
	if first.DetailURL != "https://www.gelbeseiten.de/gsbiz/friseur-mueller-1234" {
		t.Errorf("expected resolved detail URL, got %q", first.DetailURL)
	}
	if first.Category != "Friseur" {
		t.Errorf("expected category Friseur, got %q", first.Category)
	}
	if first.Phone == "" {
		t.Error("expected a phone number to be extracted")
	}
	if !first.HasWebsite || first.WebsiteURL != "https://salon-mueller.de" {
		t.Errorf("expected redirect URL to be unwrapped, got %q", first.WebsiteURL)
	}
	if first.Rating == nil || *first.Rating != 4.5 {
		t.Errorf("expected rating 4.5, got %v", first.Rating)
	}
	if first.RatingCount == nil || *first.RatingCount != 12 {
		t.Errorf("expected rating count 12, got %v", first.RatingCount)
	}

	second := stubs[1]
	if second.HasWebsite {
		t.Error("expected second listing to have no website")
	}
	if second.AddressRaw == "" {
		t.Error("expected a fallback address to be extracted for the second listing")
	}
}

func TestListingParserPaginationInfo(t *testing.T) {
	p := NewListingParser()
	info, err := p.Pagination(sampleListingHTML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Current != 1 {
		t.Errorf("expected current page 1, got %d", info.Current)
	}
	if info.Total != 3 {
		t.Errorf("expected total pages 3, got %d", info.Total)
	}
	if !info.HasNext {
		t.Error("expected HasNext true")
	}
}

func TestListingParserReturnsEmptyOnNoMatches(t *testing.T) {
	p := NewListingParser()
	stubs, err := p.Parse("<html><body><p>no results</p></body></html>", "https://www.gelbeseiten.de/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stubs) != 0 {
		t.Errorf("expected 0 stubs, got %d", len(stubs))
	}
}
