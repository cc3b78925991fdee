// Package uapool supplies browser identity strings and matching header
// bundles for the Fetch Client and Browser Capability.
package uapool

import (
	"math/rand"
	"strings"
)

// Identity describes one browser user-agent entry.
type Identity struct {
	UserAgent string
	Browser   string
	Platform  string
	Version   string
}

// Identities is the static pool, ported from the original scraper's
// user-agent table (Chrome/Firefox/Safari/Edge across Windows/macOS).
var Identities = []Identity{
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", "Chrome", "Windows", "120"},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36", "Chrome", "Windows", "119"},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36", "Chrome", "Windows", "121"},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", "Chrome", "macOS", "120"},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36", "Chrome", "macOS", "119"},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2_1) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", "Chrome", "macOS", "120"},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0", "Firefox", "Windows", "121"},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0", "Firefox", "Windows", "120"},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0", "Firefox", "Windows", "122"},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:121.0) Gecko/20100101 Firefox/121.0", "Firefox", "macOS", "121"},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 14.2; rv:121.0) Gecko/20100101 Firefox/121.0", "Firefox", "macOS", "121"},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15", "Safari", "macOS", "17.2"},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2.1 Safari/605.1.15", "Safari", "macOS", "17.2.1"},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0", "Edge", "Windows", "120"},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36 Edg/119.0.0.0", "Edge", "Windows", "119"},
}

// Pool rotates through Identities, weighting Chrome and Firefox more
// heavily than other families to look like realistic browser-share
// traffic.
type Pool struct {
	identities []Identity
	weighted   []Identity
	rng        *rand.Rand
	next       int
}

// New builds a Pool over the default Identities table. rng may be nil,
// in which case the pool gets its own source seeded with 1, so random
// picks repeat from run to run; tests should pass a seeded *rand.Rand
// for determinism.
func New(rng *rand.Rand) *Pool {
	return NewWithIdentities(Identities, rng)
}

// NewWithIdentities builds a Pool over a caller-supplied identity
// table, primarily for tests.
func NewWithIdentities(identities []Identity, rng *rand.Rand) *Pool {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	p := &Pool{identities: identities, rng: rng}
	p.weighted = weightedList(identities)
	return p
}

func weightedList(identities []Identity) []Identity {
	var weighted []Identity
	for _, id := range identities {
		switch id.Browser {
		case "Chrome":
			weighted = append(weighted, id, id, id)
		case "Firefox":
			weighted = append(weighted, id, id)
		default:
			weighted = append(weighted, id)
		}
	}
	return weighted
}

// Random returns a weighted-random identity string.
func (p *Pool) Random() string {
	return p.weighted[p.rng.Intn(len(p.weighted))].UserAgent
}

// Next returns the next identity in round-robin order.
func (p *Pool) Next() string {
	id := p.identities[p.next]
	p.next = (p.next + 1) % len(p.identities)
	return id.UserAgent
}

// Headers builds a full browser-header bundle appropriate to identity.
// Chrome and Edge identities gain Sec-Ch-Ua client-hint headers;
// Firefox does not.
func Headers(identity string) map[string]string {
	headers := map[string]string{
		"User-Agent":                identity,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		"Accept-Language":           "de-DE,de;q=0.9,en-US;q=0.8,en;q=0.7",
		"Accept-Encoding":           "gzip, deflate, br",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
		"Cache-Control":             "max-age=0",
	}

	switch {
	case strings.Contains(identity, "Firefox"):
		headers["Accept"] = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
	case strings.Contains(identity, "Chrome") || strings.Contains(identity, "Edg"):
		headers["Sec-Ch-Ua"] = `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`
		headers["Sec-Ch-Ua-Mobile"] = "?0"
		if strings.Contains(identity, "Windows") {
			headers["Sec-Ch-Ua-Platform"] = `"Windows"`
		} else {
			headers["Sec-Ch-Ua-Platform"] = `"macOS"`
		}
	}

	return headers
}
