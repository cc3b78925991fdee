package aggregate

import (
	"log/slog"
	"strings"

	"github.com/use-agent/leadforge/internal/leads"
)

// Stats summarizes one Aggregate or Deduplicate run.
type Stats struct {
	DirectoryInput int
	MapInput       int
	TotalInput     int
	Duplicates     int
	Merged         int
	Unique         int
	OutputCount    int
}

// Pair is a matched duplicate pair returned by FindDuplicates.
type Pair struct {
	A      *leads.Lead
	B      *leads.Lead
	Result MatchResult
}

// Aggregator combines leads scraped from multiple sources into a
// deduplicated set, preferring directory-sourced data and filling gaps
// from supplementary sources such as a map-service scrape.
type Aggregator struct {
	weights MatchWeights
	stats   Stats
	log     *slog.Logger
}

// New builds an Aggregator with the given match weights.
func New(weights MatchWeights, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{weights: weights, log: log}
}

// Stats returns the statistics from the most recent Aggregate or
// Deduplicate call.
func (a *Aggregator) Stats() Stats { return a.stats }

// Aggregate merges directoryLeads (treated as the primary, more
// complete source) with mapLeads (treated as supplementary). A map
// lead matching an existing directory lead is merged into it; an
// unmatched map lead is appended as a new, independent lead. Passing
// an empty mapLeads slice reduces to the identity (X, ∅) → X.
func (a *Aggregator) Aggregate(directoryLeads, mapLeads []*leads.Lead) []*leads.Lead {
	a.stats = Stats{
		DirectoryInput: len(directoryLeads),
		MapInput:       len(mapLeads),
		TotalInput:     len(directoryLeads) + len(mapLeads),
	}

	result := make([]*leads.Lead, len(directoryLeads))
	copy(result, directoryLeads)

	for _, mapLead := range mapLeads {
		matchIndex := -1
		bestConfidence := 0.0

		for i, existing := range result {
			mr := IsDuplicate(existing, mapLead, a.weights)
			if mr.IsMatch && mr.Confidence > bestConfidence {
				matchIndex = i
				bestConfidence = mr.Confidence
			}
		}

		if matchIndex >= 0 {
			a.stats.Duplicates++
			result[matchIndex] = MergeLeads(result[matchIndex], mapLead)
			a.stats.Merged++
			a.log.Debug("merged duplicate lead", "name", mapLead.Name, "confidence", bestConfidence)
		} else {
			result = append(result, mapLead)
			a.stats.Unique++
		}
	}

	a.stats.OutputCount = len(result)
	a.log.Info("aggregation complete",
		"output", a.stats.OutputCount, "duplicates", a.stats.Duplicates, "merged", a.stats.Merged)
	return result
}

// Deduplicate collapses duplicates within a single-source lead list.
// Later duplicates merge into the first-seen representative.
func (a *Aggregator) Deduplicate(input []*leads.Lead) []*leads.Lead {
	a.stats = Stats{TotalInput: len(input)}
	if len(input) <= 1 {
		a.stats.OutputCount = len(input)
		return input
	}

	var result []*leads.Lead
	for _, lead := range input {
		dup := false
		for i, existing := range result {
			mr := IsDuplicate(existing, lead, a.weights)
			if mr.IsMatch {
				dup = true
				a.stats.Duplicates++
				result[i] = MergeLeads(existing, lead)
				break
			}
		}
		if !dup {
			result = append(result, lead)
		}
	}

	a.stats.OutputCount = len(result)
	a.log.Info("deduplication complete", "input", len(input), "output", len(result), "duplicates", a.stats.Duplicates)
	return result
}

// FindDuplicates reports every matching pair within leads, without
// mutating or merging them. Useful for manual review.
func FindDuplicates(input []*leads.Lead, weights MatchWeights) []Pair {
	var pairs []Pair
	for i, a := range input {
		for _, b := range input[i+1:] {
			mr := IsDuplicate(a, b, weights)
			if mr.IsMatch {
				pairs = append(pairs, Pair{A: a, B: b, Result: mr})
			}
		}
	}
	return pairs
}

// GroupByLocation buckets leads by postal code, falling back to city
// (lowercased) and finally "unknown" when neither is present.
func GroupByLocation(input []*leads.Lead) map[string][]*leads.Lead {
	groups := map[string][]*leads.Lead{}
	for _, lead := range input {
		key := "unknown"
		switch {
		case lead.Address.PostalCode() != "":
			key = lead.Address.PostalCode()
		case lead.Address.City() != "":
			key = strings.ToLower(lead.Address.City())
		}
		groups[key] = append(groups[key], lead)
	}
	return groups
}
