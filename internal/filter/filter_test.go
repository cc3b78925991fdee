package filter

import (
	"testing"

	"github.com/use-agent/leadforge/internal/leads"
)

func mustLead(t *testing.T, name, category string, addr leads.Address) *leads.Lead {
	t.Helper()
	l, err := leads.New(name, category, addr)
	if err != nil {
		t.Fatalf("leads.New: %v", err)
	}
	return l
}

func TestShouldIncludeExcludesModernWebsiteWhenDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IncludeModernWebsite = false
	f := New(cfg, nil)

	lead := mustLead(t, "Test GmbH", "Handwerk", leads.Address{})
	lead.Verdict.Status = leads.StatusModern

	result := f.ShouldInclude(lead)
	if result.Included {
		t.Fatalf("expected exclusion for modern website status")
	}
	if result.Reason != "website_status_modern" {
		t.Errorf("reason = %q, want website_status_modern", result.Reason)
	}
}

func TestShouldIncludeEnforcesMinimumQualityScore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinQualityScore = 50
	f := New(cfg, nil)

	lead := mustLead(t, "Test GmbH", "Handwerk", leads.Address{})
	result := f.ShouldInclude(lead)
	if result.Included {
		t.Fatalf("expected exclusion for low quality score")
	}
}

func TestShouldIncludeEnforcesRequiredPhone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequirePhone = true
	f := New(cfg, nil)

	lead := mustLead(t, "Test GmbH", "Handwerk", leads.Address{})
	result := f.ShouldInclude(lead)
	if result.Included || result.Reason != "missing_phone" {
		t.Fatalf("got %+v, want exclusion for missing_phone", result)
	}
}

func TestShouldIncludeRunsCustomFilters(t *testing.T) {
	f := New(DefaultConfig(), nil)
	f.AddCustomFilter(CreateBlacklistFilter([]string{"spam"}))

	lead := mustLead(t, "Spam Company", "Handwerk", leads.Address{})
	result := f.ShouldInclude(lead)
	if result.Included {
		t.Fatalf("expected blacklist filter to exclude")
	}
}

func TestStatsTrackInclusionAndExclusionReasons(t *testing.T) {
	f := New(DefaultConfig(), nil)
	f.cfg.RequirePhone = true

	lead := mustLead(t, "Test GmbH", "Handwerk", leads.Address{})
	f.ShouldInclude(lead)

	stats := f.Stats()
	if stats.TotalProcessed != 1 || stats.TotalIncluded != 0 || stats.TotalExcluded != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.ExclusionReasons["missing_phone"] != 1 {
		t.Fatalf("expected missing_phone count 1, got %+v", stats.ExclusionReasons)
	}
}

func TestSortLeadsByQualityDescending(t *testing.T) {
	low := mustLead(t, "Low", "Handwerk", leads.Address{})
	high := mustLead(t, "High", "Handwerk", leads.Address{})
	high.Phone = "030123456"
	high.SetEmail("info@high.de")

	sorted := SortLeads([]*leads.Lead{low, high}, SortByQuality, true)
	if sorted[0].Name != "High" {
		t.Fatalf("expected High first, got %s", sorted[0].Name)
	}
}

func TestSortLeadsByNameCaseInsensitive(t *testing.T) {
	a := mustLead(t, "zebra", "Handwerk", leads.Address{})
	b := mustLead(t, "Apple", "Handwerk", leads.Address{})

	sorted := SortLeads([]*leads.Lead{a, b}, SortByName, false)
	if sorted[0].Name != "Apple" {
		t.Fatalf("expected Apple first ascending, got %s", sorted[0].Name)
	}
}

func TestCreateRegionFilterAllowsMissingPLZ(t *testing.T) {
	filterFn := CreateRegionFilter([]string{"10", "12"})
	lead := mustLead(t, "Test", "Handwerk", leads.Address{})
	if !filterFn(lead).Included {
		t.Fatalf("expected lead with no PLZ to pass region filter")
	}
}

func TestCreateRegionFilterRejectsOutOfRegion(t *testing.T) {
	filterFn := CreateRegionFilter([]string{"10", "12"})
	addr := leads.NewAddress("Hauptstrasse", "1", "80331", "München", "")
	lead := mustLead(t, "Test", "Handwerk", addr)
	if filterFn(lead).Included {
		t.Fatalf("expected lead outside region to be rejected")
	}
}

func TestCreateWhitelistFilterMatchesSubstring(t *testing.T) {
	filterFn := CreateWhitelistFilter([]string{"handwerk"})
	lead := mustLead(t, "Test", "Bau-Handwerk", leads.Address{})
	if !filterFn(lead).Included {
		t.Fatalf("expected category substring match to pass")
	}
}
