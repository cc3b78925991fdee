// Package export writes a RunResult to JSON (AI-ready, with a meta
// block) and CSV (minimal/default/full column sets) files, matching
// the distilled pipeline's two output formats.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/use-agent/leadforge/internal/leads"
)

// dsgvoExcludedData lists the personal-data categories this exporter
// never carries, regardless of what a source page exposed.
var dsgvoExcludedData = []string{
	"personal_review_content",
	"review_author_names",
	"user_photos",
	"owner_names",
	"employee_names",
}

// Meta is the JSON export's header block: search context, filter
// criteria, and the privacy notes a downstream consumer needs to cite.
type Meta struct {
	Category        string         `json:"category"`
	Region          string         `json:"region"`
	LeadCount       int            `json:"lead_count"`
	ExportedAt      string         `json:"exported_at"`
	FormatVersion   string         `json:"format_version"`
	Sources         []string       `json:"sources,omitempty"`
	FilterCriteria  map[string]any `json:"filter_criteria,omitempty"`
	GDPRCompliant   bool           `json:"gdpr_compliant"`
	ExcludedData    []string       `json:"excluded_data"`
	LegalBasis      string         `json:"legal_basis"`
}

// Stats is the JSON export's run-summary block.
type Stats struct {
	TotalFound    int      `json:"total_found"`
	TotalExported int      `json:"total_exported"`
	PagesScraped  int      `json:"pages_scraped"`
	DurationSecs  float64  `json:"duration_seconds"`
	ErrorCount    int      `json:"error_count"`
	Errors        []string `json:"errors,omitempty"`
	Partial       bool     `json:"partial"`
}

// leadRecord is one exported lead, field names chosen for a downstream
// AI-outreach consumer rather than mirroring the Go struct verbatim.
type leadRecord struct {
	Name             string            `json:"name"`
	Category         string            `json:"category"`
	SubCategory      string            `json:"sub_category,omitempty"`
	Phone            string            `json:"phone,omitempty"`
	Email            string            `json:"email,omitempty"`
	WebsiteURL       string            `json:"website_url,omitempty"`
	WebsiteStatus    string            `json:"website_status"`
	WebsiteSignals   []string          `json:"website_signals,omitempty"`
	Address          addressRecord     `json:"address"`
	Rating           *float64          `json:"rating,omitempty"`
	RatingCount      *int              `json:"rating_count,omitempty"`
	OpeningHours     map[string]string `json:"opening_hours,omitempty"`
	QualityScore     int               `json:"quality_score"`
	Sources          []string          `json:"sources"`
	ScrapedAt        string            `json:"scraped_at"`
	DirectoryURL     string            `json:"directory_url,omitempty"`
	MapURL           string            `json:"map_url,omitempty"`
	MapPlaceID       string            `json:"map_place_id,omitempty"`
}

type addressRecord struct {
	Street      string `json:"street,omitempty"`
	HouseNumber string `json:"house_number,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
	City        string `json:"city"`
	Region      string `json:"region,omitempty"`
	Formatted   string `json:"formatted"`
}

// JSONOptions tunes the JSON exporter.
type JSONOptions struct {
	IncludeMeta bool
	PrettyPrint bool
	Sources     []string
	FilterCriteria map[string]any
}

// DefaultJSONOptions matches the distilled pipeline's defaults: meta
// included, pretty-printed.
func DefaultJSONOptions() JSONOptions {
	return JSONOptions{IncludeMeta: true, PrettyPrint: true}
}

// JSONExporter writes a RunResult to a JSON file.
type JSONExporter struct {
	opts JSONOptions
}

// NewJSONExporter builds a JSONExporter.
func NewJSONExporter(opts JSONOptions) *JSONExporter { return &JSONExporter{opts: opts} }

type exportDocument struct {
	Meta  *Meta        `json:"meta,omitempty"`
	Leads []leadRecord `json:"leads"`
	Stats *Stats       `json:"stats,omitempty"`
}

// Export writes result to path, returning the path on success.
func (e *JSONExporter) Export(result *leads.RunResult, path, category, city string) (string, error) {
	doc := exportDocument{Leads: make([]leadRecord, len(result.Leads))}
	for i, l := range result.Leads {
		doc.Leads[i] = toLeadRecord(l)
	}

	if e.opts.IncludeMeta {
		meta := &Meta{
			Category:       category,
			Region:         city,
			LeadCount:      len(result.Leads),
			ExportedAt:     time.Now().Format(time.RFC3339),
			FormatVersion:  "2.0",
			Sources:        e.opts.Sources,
			FilterCriteria: e.opts.FilterCriteria,
			GDPRCompliant:  true,
			ExcludedData:   dsgvoExcludedData,
			LegalBasis:     "legitimate interest (B2B business data)",
		}
		doc.Meta = meta

		doc.Stats = &Stats{
			TotalFound:    result.TotalFound,
			TotalExported: len(result.Leads),
			PagesScraped:  result.PagesScraped,
			DurationSecs:  result.Duration.Seconds(),
			ErrorCount:    len(result.Errors),
			Errors:        result.ErrorsCapped(10),
			Partial:       result.Partial,
		}
	}

	var raw []byte
	var err error
	if e.opts.PrettyPrint {
		raw, err = json.MarshalIndent(doc, "", "  ")
	} else {
		raw, err = json.Marshal(doc)
	}
	if err != nil {
		return "", fmt.Errorf("export: marshal json: %w", err)
	}

	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("export: write json: %w", err)
	}
	return path, nil
}

func toLeadRecord(l leads.Lead) leadRecord {
	return leadRecord{
		Name:          l.Name,
		Category:      l.Category,
		SubCategory:   l.SubCategory,
		Phone:         l.Phone,
		Email:         l.Email,
		WebsiteURL:    l.WebsiteURL,
		WebsiteStatus: l.Verdict.Status.String(),
		WebsiteSignals: l.Verdict.Signals,
		Address: addressRecord{
			Street:      l.Address.Street(),
			HouseNumber: l.Address.HouseNumber(),
			PostalCode:  l.Address.PostalCode(),
			City:        l.Address.City(),
			Region:      l.Address.Region(),
			Formatted:   l.Address.FormatFull(),
		},
		Rating:       l.Rating,
		RatingCount:  l.RatingCount,
		OpeningHours: l.OpeningHours,
		QualityScore: l.QualityScore(),
		Sources:      l.SourceList(),
		ScrapedAt:    l.ScrapedAt.Format(time.RFC3339),
		DirectoryURL: l.DirectoryURL,
		MapURL:       l.MapURL,
		MapPlaceID:   l.MapPlaceID,
	}
}
