// Package filter implements the Lead Filter: configurable
// website-status gates, a minimum quality score, required-field
// checks, pluggable custom predicates, and sort modes for the final
// output list.
package filter

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/use-agent/leadforge/internal/leads"
)

// Result is the outcome of checking one lead against the filter.
type Result struct {
	Included bool
	Reason   string
}

// Func is a custom predicate a caller can register with AddCustomFilter.
type Func func(*leads.Lead) Result

// Config tunes which website statuses and fields are required.
type Config struct {
	IncludeNoWebsite      bool
	IncludeOldWebsite     bool
	IncludeModernWebsite  bool
	IncludeUnknownWebsite bool
	MinQualityScore       int
	RequirePhone          bool
	RequireEmail          bool
	RequireAddress        bool
}

// DefaultConfig matches the distilled pipeline's defaults: every
// website status passes, no minimum score, no required fields.
func DefaultConfig() Config {
	return Config{
		IncludeNoWebsite:      true,
		IncludeOldWebsite:     true,
		IncludeModernWebsite:  true,
		IncludeUnknownWebsite: true,
	}
}

// Stats summarizes the outcome of one or more should-include calls.
type Stats struct {
	TotalProcessed   int
	TotalIncluded    int
	TotalExcluded    int
	ExclusionReasons map[string]int
}

// InclusionRate returns TotalIncluded/TotalProcessed, or 0 when no
// leads have been processed.
func (s Stats) InclusionRate() float64 {
	if s.TotalProcessed == 0 {
		return 0
	}
	return float64(s.TotalIncluded) / float64(s.TotalProcessed)
}

// Filter evaluates leads against Config plus any registered custom
// filters, in that order, short-circuiting on the first rejection.
type Filter struct {
	cfg     Config
	custom  []Func
	stats   Stats
	log     *slog.Logger
}

// New builds a Filter.
func New(cfg Config, log *slog.Logger) *Filter {
	if log == nil {
		log = slog.Default()
	}
	return &Filter{cfg: cfg, log: log, stats: Stats{ExclusionReasons: map[string]int{}}}
}

// AddCustomFilter registers an additional predicate, run after the
// built-in checks.
func (f *Filter) AddCustomFilter(fn Func) { f.custom = append(f.custom, fn) }

// Stats returns cumulative statistics since construction or the last
// ResetStats call.
func (f *Filter) Stats() Stats { return f.stats }

// ResetStats clears accumulated statistics.
func (f *Filter) ResetStats() { f.stats = Stats{ExclusionReasons: map[string]int{}} }

// ShouldInclude runs lead through every check in priority order:
// website status, quality score, required fields, then custom filters.
func (f *Filter) ShouldInclude(lead *leads.Lead) Result {
	f.stats.TotalProcessed++

	if r := f.checkWebsiteStatus(lead); !r.Included {
		f.recordExclusion(r.Reason)
		return r
	}
	if r := f.checkQualityScore(lead); !r.Included {
		f.recordExclusion(r.Reason)
		return r
	}
	if r := f.checkRequiredFields(lead); !r.Included {
		f.recordExclusion(r.Reason)
		return r
	}
	for _, custom := range f.custom {
		if r := custom(lead); !r.Included {
			f.recordExclusion(r.Reason)
			return r
		}
	}

	f.stats.TotalIncluded++
	return Result{Included: true}
}

func (f *Filter) checkWebsiteStatus(lead *leads.Lead) Result {
	switch lead.Verdict.Status {
	case leads.StatusAbsent:
		if f.cfg.IncludeNoWebsite {
			return Result{Included: true}
		}
		return Result{Included: false, Reason: "website_status_absent"}
	case leads.StatusOld:
		if f.cfg.IncludeOldWebsite {
			return Result{Included: true}
		}
		return Result{Included: false, Reason: "website_status_old"}
	case leads.StatusModern:
		if f.cfg.IncludeModernWebsite {
			return Result{Included: true}
		}
		return Result{Included: false, Reason: "website_status_modern"}
	case leads.StatusUnknown:
		if f.cfg.IncludeUnknownWebsite {
			return Result{Included: true}
		}
		return Result{Included: false, Reason: "website_status_unknown"}
	default:
		// StatusNotYetChecked passes through.
		return Result{Included: true}
	}
}

func (f *Filter) checkQualityScore(lead *leads.Lead) Result {
	score := lead.QualityScore()
	if score < f.cfg.MinQualityScore {
		return Result{Included: false, Reason: fmt.Sprintf("quality_score_too_low_%d", score)}
	}
	return Result{Included: true}
}

func (f *Filter) checkRequiredFields(lead *leads.Lead) Result {
	if f.cfg.RequirePhone && lead.Phone == "" {
		return Result{Included: false, Reason: "missing_phone"}
	}
	if f.cfg.RequireEmail && lead.Email == "" {
		return Result{Included: false, Reason: "missing_email"}
	}
	if f.cfg.RequireAddress && !lead.Address.HasFull() {
		return Result{Included: false, Reason: "missing_address"}
	}
	return Result{Included: true}
}

func (f *Filter) recordExclusion(reason string) {
	if reason == "" {
		return
	}
	f.stats.ExclusionReasons[reason]++
	f.stats.TotalExcluded++
}

// FilterLeads applies ShouldInclude to every lead and returns the
// survivors, logging the inclusion count.
func (f *Filter) FilterLeads(input []*leads.Lead) []*leads.Lead {
	var out []*leads.Lead
	for _, lead := range input {
		if f.ShouldInclude(lead).Included {
			out = append(out, lead)
		}
	}
	f.log.Info("filter complete", "included", len(out), "excluded", len(input)-len(out))
	return out
}

// SortBy is a sort mode for SortLeads.
type SortBy int

const (
	SortByQuality SortBy = iota
	SortByName
	SortByRating
)

// SortLeads sorts a copy of input by the given mode. reverse sorts
// descending (the natural order for quality/rating rankings). Leads
// that tie on the sort key are ordered by name, ascending.
func SortLeads(input []*leads.Lead, by SortBy, reverse bool) []*leads.Lead {
	out := make([]*leads.Lead, len(input))
	copy(out, input)

	less := func(i, j int) bool {
		switch by {
		case SortByName:
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		case SortByRating:
			ri, ci := ratingKey(out[i])
			rj, cj := ratingKey(out[j])
			if ri != rj {
				return ri < rj
			}
			return ci < cj
		default:
			return out[i].QualityScore() < out[j].QualityScore()
		}
	}
	order := less
	if reverse {
		order = func(i, j int) bool { return less(j, i) }
	}
	sort.SliceStable(out, func(i, j int) bool {
		if order(i, j) || order(j, i) {
			return order(i, j)
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

func ratingKey(l *leads.Lead) (float64, int) {
	var rating float64
	var count int
	if l.Rating != nil {
		rating = *l.Rating
	}
	if l.RatingCount != nil {
		count = *l.RatingCount
	}
	return rating, count
}

// CreateBlacklistFilter rejects leads whose name contains any of the
// given (case-insensitive) substrings.
func CreateBlacklistFilter(blacklist []string) Func {
	lowered := make([]string, len(blacklist))
	for i, b := range blacklist {
		lowered[i] = strings.ToLower(b)
	}
	return func(lead *leads.Lead) Result {
		name := strings.ToLower(lead.Name)
		for _, blocked := range lowered {
			if strings.Contains(name, blocked) {
				return Result{Included: false, Reason: "blacklist_" + blocked}
			}
		}
		return Result{Included: true}
	}
}

// CreateWhitelistFilter accepts only leads whose category contains one
// of the given (case-insensitive) substrings.
func CreateWhitelistFilter(allowed []string) Func {
	lowered := make([]string, len(allowed))
	for i, a := range allowed {
		lowered[i] = strings.ToLower(a)
	}
	return func(lead *leads.Lead) Result {
		category := strings.ToLower(lead.Category)
		for _, a := range lowered {
			if strings.Contains(category, a) {
				return Result{Included: true}
			}
		}
		return Result{Included: false, Reason: "category_not_in_whitelist"}
	}
}

// CreateRegionFilter accepts leads whose postal code starts with one
// of the given prefixes, or any lead with no postal code at all.
func CreateRegionFilter(allowedPLZPrefixes []string) Func {
	return func(lead *leads.Lead) Result {
		plz := lead.Address.PostalCode()
		if plz == "" {
			return Result{Included: true}
		}
		for _, prefix := range allowedPLZPrefixes {
			if strings.HasPrefix(plz, prefix) {
				return Result{Included: true}
			}
		}
		return Result{Included: false, Reason: "plz_not_in_region"}
	}
}
