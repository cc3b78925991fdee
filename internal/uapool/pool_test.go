package uapool

import (
	"math/rand"
	"strings"
	"testing"
)

func TestNextRoundRobinsThroughAllIdentities(t *testing.T) {
	p := New(rand.New(rand.NewSource(1)))
	seen := map[string]bool{}
	for i := 0; i < len(Identities); i++ {
		seen[p.Next()] = true
	}
	if len(seen) != len(Identities) {
		t.Errorf("expected %d distinct identities after one full cycle, got %d", len(Identities), len(seen))
	}
	// should wrap back to the first entry
	if p.Next() != Identities[0].UserAgent {
		t.Error("expected Next() to wrap around to the first identity")
	}
}

func TestRandomStaysWithinPool(t *testing.T) {
	p := New(rand.New(rand.NewSource(42)))
	valid := map[string]bool{}
	for _, id := range Identities {
		valid[id.UserAgent] = true
	}
	for i := 0; i < 50; i++ {
		if ua := p.Random(); !valid[ua] {
			t.Fatalf("Random() returned unknown identity: %q", ua)
		}
	}
}

func TestHeadersVariesByBrowser(t *testing.T) {
	chromeUA := Identities[0].UserAgent
	firefoxUA := ""
	for _, id := range Identities {
		if id.Browser == "Firefox" {
			firefoxUA = id.UserAgent
			break
		}
	}

	ch := Headers(chromeUA)
	if _, ok := ch["Sec-Ch-Ua"]; !ok {
		t.Error("expected Chrome identity to carry Sec-Ch-Ua header")
	}

	ff := Headers(firefoxUA)
	if _, ok := ff["Sec-Ch-Ua"]; ok {
		t.Error("expected Firefox identity to omit Sec-Ch-Ua header")
	}
	if !strings.Contains(ff["User-Agent"], "Firefox") {
		t.Error("expected User-Agent header to echo the identity string")
	}
}
