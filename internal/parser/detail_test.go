package parser

import "testing"

const sampleDetailHTML = `
<html><body>
<h1>Friseur Müller</h1>
<div class="category">Friseur</div>
<span itemprop="streetAddress">Hauptstr. 1</span>
<span itemprop="postalCode">10115</span>
<span itemprop="addressLocality">Berlin</span>
<a href="tel:+493012345678">+49 30 12345678</a>
<a href="mailto:info@salon-mueller.de?subject=Anfrage">info@salon-mueller.de</a>
<a class="website" href="/redirect?url=https%3A%2F%2Fsalon-mueller.de">Zur Webseite</a>
<div class="rating" itemprop="ratingValue">4,5</div>
<span itemprop="reviewCount">12</span>
<table class="opening-hours">
<tr><td>Mo: 09:00-18:00</td></tr>
<tr><td>Di: 09:00-18:00</td></tr>
</table>
<p class="description">Ein Friseursalon im Herzen Berlins mit langjähriger Erfahrung.</p>
</body></html>
`

func TestDetailParserExtractsFullLead(t *testing.T) {
	p := NewDetailParser("www.gelbeseiten.de")
	lead, ok, err := p.Parse(sampleDetailHTML, "https://www.gelbeseiten.de/gsbiz/friseur-mueller-1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a lead to be extracted")
	}

	if lead.Name != "Friseur Müller" {
		t.Errorf("expected name %q, got %q", "Friseur Müller", lead.Name)
	}
	if lead.Address.Street() != "Hauptstr." || lead.Address.HouseNumber() != "1" {
		t.Errorf("expected street split into %q + house number, got %q / %q", "Hauptstr.", lead.Address.Street(), lead.Address.HouseNumber())
	}
	if lead.Address.PostalCode() != "10115" || lead.Address.City() != "Berlin" {
		t.Errorf("expected plz 10115 city Berlin, got %q %q", lead.Address.PostalCode(), lead.Address.City())
	}
	if lead.Phone == "" {
		t.Error("expected phone to be extracted from tel: href")
	}
	if lead.Email != "info@salon-mueller.de" {
		t.Errorf("expected email without query string, got %q", lead.Email)
	}
	if lead.WebsiteURL != "https://salon-mueller.de" {
		t.Errorf("expected website redirect unwrapped, got %q", lead.WebsiteURL)
	}
	if lead.Rating == nil || *lead.Rating != 4.5 {
		t.Errorf("expected rating 4.5, got %v", lead.Rating)
	}
	if lead.RatingCount == nil || *lead.RatingCount != 12 {
		t.Errorf("expected rating count 12, got %v", lead.RatingCount)
	}
	if lead.OpeningHours["Montag"] != "09:00 - 18:00" {
		t.Errorf("expected normalized Monday hours, got %q", lead.OpeningHours["Montag"])
	}
	if lead.OpeningHours["Dienstag"] == "" {
		t.Error("expected Tuesday hours to be present")
	}
}

func TestDetailParserReturnsNotOkWithoutName(t *testing.T) {
	p := NewDetailParser("www.gelbeseiten.de")
	_, ok, err := p.Parse("<html><body><p>nothing here</p></body></html>", "https://www.gelbeseiten.de/x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected ok=false when no name is present")
	}
}

func TestDetailParserClampsRatingAndTruncatesText(t *testing.T) {
	longCategory := ""
	for i := 0; i < 150; i++ {
		longCategory += "x"
	}
	html := `<h1>Test</h1><div class="category">` + longCategory + `</div>
<div class="rating" itemprop="ratingValue">9,9</div>`

	p := NewDetailParser("www.gelbeseiten.de")
	lead, ok, err := p.Parse(html, "https://www.gelbeseiten.de/x")
	if err != nil || !ok {
		t.Fatalf("unexpected result: ok=%v err=%v", ok, err)
	}
	if len(lead.Category) != maxCategoryLen {
		t.Errorf("expected category truncated to %d chars, got %d", maxCategoryLen, len(lead.Category))
	}
	if *lead.Rating != 5 {
		t.Errorf("expected rating clamped to 5, got %v", *lead.Rating)
	}
}
