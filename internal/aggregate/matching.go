// Package aggregate combines leads scraped from multiple sources,
// matching and merging duplicates by phone, name, and address
// similarity.
package aggregate

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/use-agent/leadforge/internal/leads"
)

// MatchResult is the outcome of comparing two leads for duplication.
type MatchResult struct {
	IsMatch          bool
	Confidence       float64
	MatchReasons     []string
	MismatchReasons  []string
}

var (
	nonDigitRe     = regexp.MustCompile(`\D`)
	nonWordRe      = regexp.MustCompile(`[^\w\s]`)
	multiSpaceRe   = regexp.MustCompile(`\s+`)
	legalFormRe    = regexp.MustCompile(`\b(gmbh|ag|kg|ohg|eg|e\.?k\.?|inh\.?|&\s*co\.?|co\.?|gbr|mbh|partg|partner|gesellschaft|company)\b`)
	streetAbbrevRe = regexp.MustCompile(`str\.?\b`)
	platzAbbrevRe  = regexp.MustCompile(`\bpl\.?\b`)
)

// German digraph transliterations that diacritic-stripping alone would
// get wrong (ä folds to "a", not the conventional "ae").
var germanDigraphReplacer = strings.NewReplacer("ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss")

// diacriticFold decomposes remaining accented runes and drops the
// combining marks, catching anything germanDigraphReplacer doesn't
// (French/Turkish spellings occasionally found in franchise names).
var diacriticFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldDiacritics(s string) string {
	out, _, err := transform.String(diacriticFold, s)
	if err != nil {
		return s
	}
	return out
}

func normalizeUmlauts(s string) string {
	return foldDiacritics(germanDigraphReplacer.Replace(s))
}

// NormalizePhone strips everything but digits, the German country code,
// and a leading trunk zero, leaving a bare comparable number.
func NormalizePhone(phone string) string {
	if phone == "" {
		return ""
	}
	digits := nonDigitRe.ReplaceAllString(phone, "")
	switch {
	case strings.HasPrefix(digits, "0049"):
		digits = digits[4:]
	case strings.HasPrefix(digits, "49") && (strings.HasPrefix(strings.TrimSpace(phone), "+") || len(digits) > 10):
		digits = digits[2:]
	}
	if strings.HasPrefix(digits, "0") {
		digits = digits[1:]
	}
	return digits
}

// NormalizeName lowercases, folds umlauts, strips German legal-form
// suffixes and punctuation, and collapses whitespace.
func NormalizeName(name string) string {
	if name == "" {
		return ""
	}
	name = strings.ToLower(name)
	name = normalizeUmlauts(name)
	name = legalFormRe.ReplaceAllString(name, "")
	name = nonWordRe.ReplaceAllString(name, "")
	name = multiSpaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// NormalizeAddress lowercases, folds umlauts, normalizes common German
// street-name abbreviations, and strips punctuation.
func NormalizeAddress(address string) string {
	if address == "" {
		return ""
	}
	address = strings.ToLower(address)
	address = normalizeUmlauts(address)
	address = streetAbbrevRe.ReplaceAllString(address, "strasse")
	address = platzAbbrevRe.ReplaceAllString(address, "platz")
	address = nonWordRe.ReplaceAllString(address, "")
	address = multiSpaceRe.ReplaceAllString(address, " ")
	return strings.TrimSpace(address)
}

// SimilarityScore returns a 0..1 Levenshtein-ratio similarity between
// two strings, computed as 1 - (edit distance / max length).
func SimilarityScore(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}

// IsPhoneMatch compares two phone numbers, tolerating differing
// country-code/trunk-zero formatting and minor transcription errors.
func IsPhoneMatch(phone1, phone2 string) (bool, float64) {
	if phone1 == "" || phone2 == "" {
		return false, 0.0
	}
	norm1, norm2 := NormalizePhone(phone1), NormalizePhone(phone2)
	if norm1 == "" || norm2 == "" {
		return false, 0.0
	}
	if norm1 == norm2 {
		return true, 1.0
	}
	if strings.Contains(norm2, norm1) || strings.Contains(norm1, norm2) {
		shorter := len(norm1)
		if len(norm2) < shorter {
			shorter = len(norm2)
		}
		if shorter >= 6 {
			return true, 0.9
		}
	}
	sim := SimilarityScore(norm1, norm2)
	if sim >= 0.9 {
		return true, sim
	}
	return false, sim
}

// IsNameMatch compares two company names after normalization.
func IsNameMatch(name1, name2 string, threshold float64) (bool, float64) {
	if name1 == "" || name2 == "" {
		return false, 0.0
	}
	norm1, norm2 := NormalizeName(name1), NormalizeName(name2)
	if norm1 == "" || norm2 == "" {
		return false, 0.0
	}
	if norm1 == norm2 {
		return true, 1.0
	}
	sim := SimilarityScore(norm1, norm2)
	if sim >= threshold {
		return true, sim
	}
	if len(norm1) > 3 && len(norm2) > 3 && (strings.Contains(norm2, norm1) || strings.Contains(norm1, norm2)) {
		return true, 0.85
	}
	return false, sim
}

// IsAddressMatch compares two addresses, giving a postal-code match
// the highest priority.
func IsAddressMatch(addr1, plz1, addr2, plz2 string, threshold float64) (bool, float64) {
	plzMatch := false
	if plz1 != "" && plz2 != "" {
		plzMatch = nonDigitRe.ReplaceAllString(plz1, "") == nonDigitRe.ReplaceAllString(plz2, "")
	}
	if plz1 != "" && plz2 != "" && !plzMatch {
		return false, 0.0
	}
	if addr1 == "" || addr2 == "" {
		if plzMatch {
			return true, 0.7
		}
		return false, 0.0
	}
	norm1, norm2 := NormalizeAddress(addr1), NormalizeAddress(addr2)
	if norm1 == "" || norm2 == "" {
		if plzMatch {
			return true, 0.7
		}
		return false, 0.0
	}
	sim := SimilarityScore(norm1, norm2)
	if plzMatch && sim >= 0.5 {
		boosted := sim + 0.3
		if boosted > 1.0 {
			boosted = 1.0
		}
		return true, boosted
	}
	if sim >= threshold {
		return true, sim
	}
	return false, sim
}

// MatchWeights tunes the relative contribution of each signal to
// IsDuplicate's overall confidence score.
type MatchWeights struct {
	Phone     float64
	Name      float64
	Address   float64
	Threshold float64
}

// DefaultMatchWeights mirrors the defaults used by the distilled
// aggregator: phone counts most, name next, address least.
func DefaultMatchWeights() MatchWeights {
	return MatchWeights{Phone: 1.0, Name: 0.8, Address: 0.6, Threshold: 0.85}
}

// IsDuplicate decides whether two leads describe the same business.
// An exact phone match (confidence >= 0.95) short-circuits as a
// definite duplicate; otherwise name and address similarity are
// combined into a weighted score.
func IsDuplicate(a, b *leads.Lead, w MatchWeights) MatchResult {
	var matchReasons, mismatchReasons []string
	var totalScore, totalWeight float64

	if a.Phone != "" && b.Phone != "" {
		match, conf := IsPhoneMatch(a.Phone, b.Phone)
		if match && conf >= 0.95 {
			return MatchResult{IsMatch: true, Confidence: conf, MatchReasons: []string{"phone_exact"}}
		}
		if match {
			matchReasons = append(matchReasons, "phone")
			totalScore += conf * w.Phone
		} else {
			mismatchReasons = append(mismatchReasons, "phone")
		}
		totalWeight += w.Phone
	}

	nameMatch, nameConf := IsNameMatch(a.Name, b.Name, 0.85)
	if nameMatch {
		matchReasons = append(matchReasons, "name")
		totalScore += nameConf * w.Name
	} else {
		mismatchReasons = append(mismatchReasons, "name")
	}
	totalWeight += w.Name

	addrA, addrB := a.Address.FormatFull(), b.Address.FormatFull()
	plzA, plzB := a.Address.PostalCode(), b.Address.PostalCode()
	if addrA != "" || addrB != "" || plzA != "" || plzB != "" {
		addrMatch, addrConf := IsAddressMatch(addrA, plzA, addrB, plzB, 0.8)
		if addrMatch {
			matchReasons = append(matchReasons, "address")
			totalScore += addrConf * w.Address
		} else {
			mismatchReasons = append(mismatchReasons, "address")
		}
		totalWeight += w.Address
	}

	confidence := 0.0
	if totalWeight > 0 {
		confidence = totalScore / totalWeight
	}

	if nameMatch && plzA != "" && plzB != "" && plzA == plzB {
		if confidence < 0.9 {
			confidence = 0.9
		}
		matchReasons = append(matchReasons, "plz_exact")
	}

	return MatchResult{
		IsMatch:         confidence >= w.Threshold,
		Confidence:      confidence,
		MatchReasons:    matchReasons,
		MismatchReasons: mismatchReasons,
	}
}

// MergeLeads merges secondary's data into a copy of primary, filling
// only fields primary leaves empty. primary's own fields always win.
func MergeLeads(primary, secondary *leads.Lead) *leads.Lead {
	merged := *primary

	if merged.Phone == "" {
		merged.Phone = secondary.Phone
	}
	if merged.Email == "" {
		merged.Email = secondary.Email
	}
	if merged.WebsiteURL == "" {
		merged.WebsiteURL = secondary.WebsiteURL
	}
	if len(merged.OpeningHours) == 0 {
		merged.OpeningHours = secondary.OpeningHours
	}
	if merged.Rating == nil && secondary.Rating != nil {
		merged.Rating = secondary.Rating
		merged.RatingCount = secondary.RatingCount
	}
	if merged.Fax == "" {
		merged.Fax = secondary.Fax
	}
	if merged.Description == "" {
		merged.Description = secondary.Description
	}

	if merged.MapPlaceID == "" && secondary.MapPlaceID != "" {
		merged.MapPlaceID = secondary.MapPlaceID
		merged.MapURL = secondary.MapURL
	}
	if merged.DirectoryURL == "" && secondary.DirectoryURL != "" {
		merged.DirectoryURL = secondary.DirectoryURL
		merged.DirectoryID = secondary.DirectoryID
	}

	sources := map[string]bool{}
	for s := range primary.Sources {
		sources[s] = true
	}
	for s := range secondary.Sources {
		sources[s] = true
	}
	merged.Sources = sources

	return &merged
}
