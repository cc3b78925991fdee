package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/use-agent/leadforge/internal/leads"
)

// ColumnSet selects which fields a CSV export includes.
type ColumnSet int

const (
	ColumnsMinimal ColumnSet = iota
	ColumnsDefault
	ColumnsFull
)

// minimalColumns is the 9-field set: the bare minimum for outreach.
var minimalColumns = []string{
	"name", "category", "phone", "email", "website_url",
	"website_status", "postal_code", "city", "quality_score",
}

// defaultColumns is the 17-field set used when no explicit set is given.
var defaultColumns = []string{
	"name", "category", "phone", "email", "website_url", "website_status",
	"street", "house_number", "postal_code", "city", "region",
	"address_formatted", "rating", "rating_count", "quality_score",
	"directory_url", "scraped_at",
}

// fullColumns is the 25-field set, adding detail fields on top of default.
var fullColumns = []string{
	"name", "category", "sub_category", "description", "phone", "email",
	"website_url", "website_status", "website_signals",
	"street", "house_number", "postal_code", "city", "region",
	"address_formatted", "rating", "rating_count", "quality_score",
	"opening_hours", "directory_url", "map_url", "map_place_id",
	"directory_id", "sources", "scraped_at",
}

func columnsFor(set ColumnSet) []string {
	switch set {
	case ColumnsMinimal:
		return minimalColumns
	case ColumnsFull:
		return fullColumns
	default:
		return defaultColumns
	}
}

// CSVOptions tunes the CSV exporter.
type CSVOptions struct {
	Columns   ColumnSet
	Delimiter rune
	// IncludeBOM prepends a UTF-8 byte order mark, for spreadsheet tools
	// that otherwise mis-detect encoding.
	IncludeBOM bool
}

// DefaultCSVOptions matches the distilled pipeline's defaults:
// default column set, semicolon delimiter, BOM included.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Columns: ColumnsDefault, Delimiter: ';', IncludeBOM: true}
}

// CSVExporter writes a RunResult to a CSV file.
type CSVExporter struct {
	opts CSVOptions
}

// NewCSVExporter builds a CSVExporter.
func NewCSVExporter(opts CSVOptions) *CSVExporter {
	if opts.Delimiter == 0 {
		opts.Delimiter = ';'
	}
	return &CSVExporter{opts: opts}
}

// Export writes result to path, returning the path on success.
func (e *CSVExporter) Export(result *leads.RunResult, path string) (string, error) {
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("export: create csv: %w", err)
	}
	defer f.Close()

	if e.opts.IncludeBOM {
		if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return "", fmt.Errorf("export: write bom: %w", err)
		}
	}

	w := csv.NewWriter(f)
	w.Comma = e.opts.Delimiter

	columns := columnsFor(e.opts.Columns)
	if err := w.Write(columns); err != nil {
		return "", fmt.Errorf("export: write header: %w", err)
	}

	for _, l := range result.Leads {
		row := leadToRow(l, columns)
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("export: write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("export: flush csv: %w", err)
	}
	return path, nil
}

func leadToRow(l leads.Lead, columns []string) []string {
	fields := map[string]string{
		"name":              l.Name,
		"category":          l.Category,
		"sub_category":      l.SubCategory,
		"description":       truncate(l.Description, 200),
		"phone":             l.Phone,
		"fax":               l.Fax,
		"email":             l.Email,
		"website_url":       l.WebsiteURL,
		"website_status":    l.Verdict.Status.String(),
		"website_signals":   joinCapped(l.Verdict.Signals, 5, "; "),
		"street":            l.Address.Street(),
		"house_number":      l.Address.HouseNumber(),
		"postal_code":       l.Address.PostalCode(),
		"city":              l.Address.City(),
		"region":            l.Address.Region(),
		"address_formatted": l.Address.FormatFull(),
		"rating":            ratingString(l.Rating),
		"rating_count":      ratingCountString(l.RatingCount),
		"quality_score":     strconv.Itoa(l.QualityScore()),
		"opening_hours":     formatOpeningHours(l.OpeningHours),
		"directory_url":     l.DirectoryURL,
		"directory_id":      l.DirectoryID,
		"map_url":           l.MapURL,
		"map_place_id":      l.MapPlaceID,
		"sources":           strings.Join(l.SourceList(), "; "),
		"scraped_at":        l.ScrapedAt.Format("2006-01-02 15:04"),
	}

	row := make([]string, len(columns))
	for i, col := range columns {
		row[i] = fields[col]
	}
	return row
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func joinCapped(items []string, max int, sep string) string {
	if len(items) > max {
		items = items[:max]
	}
	return strings.Join(items, sep)
}

func ratingString(r *float64) string {
	if r == nil {
		return ""
	}
	return strconv.FormatFloat(*r, 'f', 1, 64)
}

func ratingCountString(c *int) string {
	if c == nil {
		return ""
	}
	return strconv.Itoa(*c)
}

func formatOpeningHours(hours map[string]string) string {
	if len(hours) == 0 {
		return ""
	}
	days := []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
	parts := make([]string, 0, len(hours))
	seen := map[string]bool{}
	for _, d := range days {
		if v, ok := hours[d]; ok {
			parts = append(parts, d+": "+v)
			seen[d] = true
		}
	}
	for k, v := range hours {
		if !seen[k] {
			parts = append(parts, k+": "+v)
		}
	}
	return strings.Join(parts, "; ")
}
