package leads

import "testing"

func TestNewRejectsEmptyNameOrCategory(t *testing.T) {
	addr := NewAddress("Hauptstr.", "1", "10115", "Berlin", "")

	if _, err := New("", "Friseur", addr); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := New("Salon Müller", "", addr); err == nil {
		t.Error("expected error for empty category")
	}
	if _, err := New("Salon Müller", "Friseur", addr); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSetEmailDiscardsInvalid(t *testing.T) {
	l, _ := New("Salon Müller", "Friseur", NewAddress("", "", "", "Berlin", ""))

	l.SetEmail("not-an-email")
	if l.Email != "" {
		t.Errorf("invalid email should be discarded, got %q", l.Email)
	}

	l.SetEmail("Info@Salon-Mueller.de")
	if l.Email != "info@salon-mueller.de" {
		t.Errorf("expected normalized lowercase email, got %q", l.Email)
	}
}

func TestSetWebsiteURLAddsScheme(t *testing.T) {
	l, _ := New("Salon Müller", "Friseur", NewAddress("", "", "", "Berlin", ""))

	l.SetWebsiteURL("salon-mueller.de")
	if l.WebsiteURL != "https://salon-mueller.de" {
		t.Errorf("expected scheme to be prepended, got %q", l.WebsiteURL)
	}

	l2, _ := New("Salon Müller", "Friseur", NewAddress("", "", "", "Berlin", ""))
	l2.SetWebsiteURL("http://salon-mueller.de")
	if l2.WebsiteURL != "http://salon-mueller.de" {
		t.Errorf("existing scheme should be kept, got %q", l2.WebsiteURL)
	}
}

func TestQualityScoreRubric(t *testing.T) {
	addr := NewAddress("Hauptstr.", "1", "10115", "Berlin", "")
	l, _ := New("Salon Müller", "Friseur", addr)
	l.Phone = "030 12345678"
	l.SetEmail("info@salon-mueller.de")
	l.SetWebsiteURL("salon-mueller.de")

	if got := l.QualityScore(); got != 75 {
		t.Errorf("expected 75 (20+25+15+15), got %d", got)
	}

	l.OpeningHours = map[string]string{"Montag": "09:00 - 18:00"}
	if got := l.QualityScore(); got != 80 {
		t.Errorf("expected 80 after adding hours, got %d", got)
	}
}

func TestQualityScoreClampsAt100(t *testing.T) {
	addr := NewAddress("Hauptstr.", "1", "10115", "Berlin", "")
	l, _ := New("Salon Müller", "Friseur", addr)
	l.Phone = "030 12345678"
	l.SetEmail("info@salon-mueller.de")
	l.SetWebsiteURL("salon-mueller.de")
	l.OpeningHours = map[string]string{"Montag": "09:00 - 18:00"}
	l.Description = "A description long enough to count."
	rating := 4.5
	count := 12
	l.Rating = &rating
	l.RatingCount = &count

	if got := l.QualityScore(); got != 100 {
		t.Errorf("expected clamp at 100, got %d", got)
	}
}

func TestAddressHasFullAndPartial(t *testing.T) {
	full := NewAddress("Hauptstr.", "1", "10115", "Berlin", "")
	if !full.HasFull() {
		t.Error("expected full address")
	}

	partial := NewAddress("Hauptstr.", "1", "", "Berlin", "")
	if !partial.HasPartial() || partial.HasFull() {
		t.Error("expected partial-only address")
	}

	none := NewAddress("", "", "", "Berlin", "")
	if none.HasFull() || none.HasPartial() {
		t.Error("expected neither full nor partial")
	}
}

func TestAddressNonCanonicalPostalCodeRetainsRaw(t *testing.T) {
	addr := NewAddress("", "", "ABCDE", "Berlin", "")
	if addr.PostalCodeCanonical() {
		t.Error("expected non-canonical postal code")
	}
	if addr.PostalCode() != "ABCDE" {
		t.Errorf("expected raw postal code retained, got %q", addr.PostalCode())
	}
}

func TestSourceListOrdersDirectoryBeforeMap(t *testing.T) {
	l, _ := New("Salon Müller", "Friseur", NewAddress("", "", "", "Berlin", ""))
	l.AddSource(SourceMap)
	l.AddSource(SourceDirectory)

	got := l.SourceList()
	if len(got) != 2 || got[0] != SourceDirectory || got[1] != SourceMap {
		t.Errorf("expected [directory map], got %v", got)
	}
}
