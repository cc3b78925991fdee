// Package pipeline wires the scrape, aggregate, classify, and filter
// stages into the Orchestrator: one call scrapes directory (and
// optionally map-service) listings, merges and deduplicates them,
// classifies each website's age, and returns the filtered, sorted
// result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/use-agent/leadforge/internal/aggregate"
	"github.com/use-agent/leadforge/internal/browser"
	"github.com/use-agent/leadforge/internal/classify"
	"github.com/use-agent/leadforge/internal/fetch"
	"github.com/use-agent/leadforge/internal/filter"
	"github.com/use-agent/leadforge/internal/leads"
	"github.com/use-agent/leadforge/internal/parser"
	"github.com/use-agent/leadforge/internal/proxypool"
	"github.com/use-agent/leadforge/internal/ratelimit"
	"github.com/use-agent/leadforge/internal/uapool"
)

// DefaultDirectorySearchURL is the directory's search-result endpoint;
// Config can point this at any host carrying the same listing/
// pagination markup the Listing Parser expects.
const DefaultDirectorySearchURL = "https://www.gelbeseiten.de/suche"

// ProgressFunc receives a human-readable stage message plus a
// current/total pair, matching the original's _report_progress.
type ProgressFunc func(message string, current, total int)

// Config wires every component the Orchestrator owns.
type Config struct {
	DirectoryBaseURL  string
	DirectoryHost     string
	FetchConfig       fetch.Config
	BrowserConfig     browser.Config
	RateParams        ratelimit.Params
	ProxyFile         string
	MatchWeights      aggregate.MatchWeights
	FilterConfig      filter.Config
}

// Pipeline is the Orchestrator. One instance runs one Run call at a
// time; it is not safe for concurrent Run calls (see §5 of the
// concurrency model: Fetch Client and parsers are single-owner).
type Pipeline struct {
	cfg Config
	log *slog.Logger

	governor    *ratelimit.Governor
	uaPool      *uapool.Pool
	fetchClient *fetch.Client

	listingParser *parser.ListingParser
	detailParser  *parser.DetailParser
	mapParser     *parser.MapParser
	classifier    *classify.Classifier
	aggregator    *aggregate.Aggregator
	leadFilter    *filter.Filter

	// Map-source components are lazily initialized: they cost a
	// browser process and are only needed when a run actually asks
	// for the map source.
	proxies *proxypool.Pool
	cap     *browser.Capability

	progressFn ProgressFunc
}

// New builds a Pipeline sharing one Rate Governor across every
// component that issues requests, per the concurrency model's
// requirement that stealth-mode session ceilings mean something even
// when both sources are active.
func New(cfg Config, governor *ratelimit.Governor, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if cfg.DirectoryBaseURL == "" {
		cfg.DirectoryBaseURL = DefaultDirectorySearchURL
	}

	uaPool := uapool.New(nil)
	fetchClient := fetch.New(cfg.FetchConfig, governor, uaPool, nil)

	return &Pipeline{
		cfg:           cfg,
		log:           log,
		governor:      governor,
		uaPool:        uaPool,
		fetchClient:   fetchClient,
		listingParser: parser.NewListingParser(),
		detailParser:  parser.NewDetailParser(cfg.DirectoryHost),
		mapParser:     parser.NewMapParser(),
		classifier:    classify.New(fetchClient),
		aggregator:    aggregate.New(cfg.MatchWeights, log),
		leadFilter:    filter.New(cfg.FilterConfig, log),
	}
}

// SetProgressFunc registers a progress callback, matching the
// original's set_progress_callback.
func (p *Pipeline) SetProgressFunc(fn ProgressFunc) { p.progressFn = fn }

func (p *Pipeline) reportProgress(message string, current, total int) {
	if p.progressFn != nil {
		p.progressFn(message, current, total)
	}
}

// RunOptions tunes one Run call.
type RunOptions struct {
	MaxLeads     int
	MaxPages     int
	Sources      []string // leads.SourceDirectory and/or leads.SourceMap
	WebsiteCheck classify.Depth
	SortBy       filter.SortBy
	SortReverse  bool
}

func (o RunOptions) wants(source string) bool {
	for _, s := range o.Sources {
		if s == source {
			return true
		}
	}
	return false
}

// Run executes the four-stage pipeline for one category/city pair.
func (p *Pipeline) Run(ctx context.Context, category, city string, opts RunOptions) (*leads.RunResult, error) {
	stats := &leads.RunStats{StartedAt: time.Now()}
	result := &leads.RunResult{}
	defer p.cleanup()

	p.log.Info("pipeline start", "category", category, "city", city, "sources", opts.Sources)

	var directoryLeads, mapLeads []*leads.Lead

	if opts.wants(leads.SourceDirectory) {
		p.reportProgress("scraping directory listings", 0, 100)
		var err error
		directoryLeads, err = p.scrapeDirectory(ctx, category, city, opts, stats, result)
		if errors.Is(err, ratelimit.ErrSessionLimitReached) {
			p.log.Info("session limit reached during directory scrape, keeping partial results")
			return p.finishPartial(result, stats, directoryLeads, mapLeads), nil
		}
		if err != nil {
			return nil, err
		}
		p.log.Info("directory scrape complete", "leads", len(directoryLeads))
	}

	if opts.wants(leads.SourceMap) {
		p.reportProgress("scraping map listings", 20, 100)
		mLeads, err := p.scrapeMap(ctx, category, city, opts, stats, result)
		if errors.Is(err, ratelimit.ErrSessionLimitReached) {
			p.log.Info("session limit reached during map scrape, keeping partial results")
			return p.finishPartial(result, stats, directoryLeads, mLeads), nil
		}
		if err != nil {
			result.AddError(fmt.Sprintf("map scrape failed: %v", err))
		} else {
			mapLeads = mLeads
			p.log.Info("map scrape complete", "leads", len(mapLeads))
		}
	}

	merged := p.mergeSources(directoryLeads, mapLeads, stats)
	if len(merged) == 0 {
		result.AddError("no leads found")
		p.finalize(result, stats, nil)
		return result, nil
	}

	p.reportProgress("checking website ages", 50, 100)
	p.checkWebsites(ctx, merged, opts.WebsiteCheck, stats)
	p.log.Info("website checks complete", "checked", stats.WebsitesChecked, "old", stats.VerdictOld, "modern", stats.VerdictModern)

	p.reportProgress("filtering leads", 80, 100)
	filtered := p.leadFilter.FilterLeads(merged)
	filtered = filter.SortLeads(filtered, opts.SortBy, !opts.SortReverse)
	stats.LeadsAfterFilter = len(filtered)

	p.reportProgress("done", 100, 100)
	p.finalize(result, stats, filtered)
	p.log.Info("pipeline complete", "leads", len(filtered), "duration", stats.Duration())
	return result, nil
}

// finishPartial mirrors the original's SessionLimitReached handler:
// whatever leads were collected before the cap skip straight to the
// result, bypassing website-check and filter entirely.
func (p *Pipeline) finishPartial(result *leads.RunResult, stats *leads.RunStats, directoryLeads, mapLeads []*leads.Lead) *leads.RunResult {
	merged := p.mergeSources(directoryLeads, mapLeads, stats)
	result.Partial = true
	p.finalize(result, stats, merged)
	return result
}

func (p *Pipeline) finalize(result *leads.RunResult, stats *leads.RunStats, final []*leads.Lead) {
	stats.FinishedAt = time.Now()
	stats.LeadsExported = len(final)

	result.TotalFound = stats.DirectoryListingsFound + stats.MapListingsFound
	result.TotalFiltered = len(final)
	result.PagesScraped = stats.DirectoryPagesScraped + stats.MapPagesScraped
	result.Duration = stats.Duration()
	for _, lead := range final {
		result.AddLead(*lead)
	}
}

func (p *Pipeline) mergeSources(directoryLeads, mapLeads []*leads.Lead, stats *leads.RunStats) []*leads.Lead {
	var merged []*leads.Lead
	switch {
	case len(directoryLeads) > 0 && len(mapLeads) > 0:
		merged = p.aggregator.Aggregate(directoryLeads, mapLeads)
		aggStats := p.aggregator.Stats()
		stats.DuplicatesFound = aggStats.Duplicates
		stats.MergedLeads = aggStats.Merged
	case len(directoryLeads) > 0:
		merged = directoryLeads
	default:
		merged = mapLeads
	}
	return merged
}

// cleanup releases the Fetch Client and, if initialized, the Browser
// Capability — the Go equivalent of the original's finally:
// self._cleanup().
func (p *Pipeline) cleanup() {
	p.fetchClient.Close()
	if p.cap != nil {
		p.cap.Close()
		p.cap = nil
	}
}

// --- Stage 1a: directory ---------------------------------------------

func (p *Pipeline) scrapeDirectory(ctx context.Context, category, city string, opts RunOptions, stats *leads.RunStats, result *leads.RunResult) ([]*leads.Lead, error) {
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = 50
	}
	maxLeads := opts.MaxLeads
	if maxLeads <= 0 {
		maxLeads = 100
	}

	var stubs []leads.ListingStub
	for page := 1; page <= maxPages && len(stubs) < maxLeads; page++ {
		searchURL := buildDirectorySearchURL(p.cfg.DirectoryBaseURL, category, city, page)

		resp, err := p.fetchClient.GetWithRetry(ctx, searchURL, ratelimit.ClassDirectory)
		if errors.Is(err, ratelimit.ErrSessionLimitReached) {
			return p.scrapeDirectoryDetails(ctx, stubs, category, city, opts, stats, result), err
		}
		if err != nil {
			result.AddError(fmt.Sprintf("directory page %d: %v", page, err))
			if page == 1 {
				break
			}
			continue
		}
		if !resp.Success {
			result.AddError(fmt.Sprintf("directory page %d failed: %s", page, resp.Err))
			if page == 1 {
				break
			}
			continue
		}
		stats.DirectoryPagesScraped++

		pageStubs, err := p.listingParser.Parse(resp.Body, resp.FinalURL)
		if err != nil {
			result.AddError(fmt.Sprintf("directory page %d parse: %v", page, err))
			break
		}
		if len(pageStubs) == 0 {
			break
		}
		for _, s := range pageStubs {
			if len(stubs) >= maxLeads {
				break
			}
			stubs = append(stubs, s)
		}
		stats.DirectoryListingsFound = len(stubs)

		pagination, err := p.listingParser.Pagination(resp.Body)
		if err == nil && !pagination.HasNext && page >= pagination.Total {
			break
		}
	}

	return p.scrapeDirectoryDetails(ctx, stubs, category, city, opts, stats, result), nil
}

func (p *Pipeline) scrapeDirectoryDetails(ctx context.Context, stubs []leads.ListingStub, category, city string, opts RunOptions, stats *leads.RunStats, result *leads.RunResult) []*leads.Lead {
	var out []*leads.Lead
	maxLeads := opts.MaxLeads
	if maxLeads <= 0 {
		maxLeads = 100
	}

	start := time.Now()
	for i, stub := range stubs {
		if len(out) >= maxLeads {
			break
		}
		if stub.DetailURL == "" {
			if lead := listingToLead(stub, category, city); lead != nil {
				out = append(out, lead)
			}
			continue
		}

		resp, err := p.fetchClient.GetWithRetry(ctx, stub.DetailURL, ratelimit.ClassOther)
		if errors.Is(err, ratelimit.ErrSessionLimitReached) {
			return out
		}

		var lead *leads.Lead
		if err == nil && resp.Success {
			parsed, ok, parseErr := p.detailParser.Parse(resp.Body, resp.FinalURL)
			if parseErr == nil && ok {
				lead = mergeListingIntoDetail(parsed, stub)
				lead.AddSource(leads.SourceDirectory)
			}
		}
		if lead == nil {
			lead = listingToLead(stub, category, city)
		}
		if lead != nil {
			out = append(out, lead)
		}

		if (i+1)%10 == 0 {
			elapsed := time.Since(start).Seconds()
			rate := float64(i+1) / elapsed
			p.log.Debug("directory detail progress", "done", i+1, "total", len(stubs), "leads", len(out), "per_second", rate)
		}
	}
	return out
}

// --- Stage 1b: map source ---------------------------------------------

func (p *Pipeline) scrapeMap(ctx context.Context, category, city string, opts RunOptions, stats *leads.RunStats, result *leads.RunResult) ([]*leads.Lead, error) {
	if err := p.ensureMapCapability(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("%s in %s", category, city)
	searchURL := "https://www.google.com/maps/search/" + url.QueryEscape(query)

	if _, err := p.governor.Acquire(ctx, "google.com", ratelimit.ClassMap); err != nil {
		return nil, err
	}

	nav, err := p.cap.Navigate(ctx, searchURL, "idle")
	if err != nil {
		result.AddError(fmt.Sprintf("map navigate: %v", err))
		return nil, nil
	}
	stats.MapPagesScraped++

	if err := p.cap.WaitForSelector(`div[data-result-index], div.Nv2PK`, "present", 10*time.Second); err != nil {
		result.AddError("map: no search results found")
		return nil, nil
	}

	maxLeads := opts.MaxLeads
	if maxLeads <= 0 {
		maxLeads = 100
	}

	seen := map[string]bool{}
	var stubs []leads.ListingStub
	const maxScrolls = 40
	const scrollPause = 1500 * time.Millisecond

	for scroll := 0; scroll < maxScrolls && len(stubs) < maxLeads; scroll++ {
		html := nav.Body
		if scroll > 0 {
			var cerr error
			html, cerr = p.cap.Content()
			if cerr != nil {
				break
			}
		}

		pageStubs, err := p.mapParser.ParseResults(html)
		if err != nil {
			break
		}
		for _, s := range pageStubs {
			if seen[s.Name] {
				continue
			}
			seen[s.Name] = true
			stubs = append(stubs, s)
			stats.MapListingsFound++
			if len(stubs) >= maxLeads {
				break
			}
		}
		if len(stubs) >= maxLeads {
			break
		}

		scrolled, _ := p.cap.ScrollWithin(`div[role='feed'], div.m6QErb`, scrollPause, 1)
		if scrolled == 0 {
			_, _ = p.cap.ScrollToBottom(scrollPause, 1)
		}
	}

	var out []*leads.Lead
	for _, stub := range stubs {
		lead := listingToLead(stub, category, city)
		if lead != nil {
			lead.AddSource(leads.SourceMap)
			out = append(out, lead)
		}
	}
	return out, nil
}

func (p *Pipeline) ensureMapCapability() error {
	if p.cap != nil {
		return nil
	}
	if p.cfg.ProxyFile != "" {
		proxies, _, err := proxypool.LoadFile(p.cfg.ProxyFile)
		if err != nil {
			return err
		}
		p.proxies = proxies
	}

	cap, err := browser.New(p.cfg.BrowserConfig, p.uaPool, p.proxies)
	if err != nil {
		return err
	}
	p.cap = cap
	return nil
}

// --- Stage 3: website age classification -------------------------------

func (p *Pipeline) checkWebsites(ctx context.Context, input []*leads.Lead, depth classify.Depth, stats *leads.RunStats) {
	total := len(input)
	start := time.Now()
	for i, lead := range input {
		if (i+1)%10 == 0 {
			progress := 50 + int(float64(i)/float64(total)*30)
			p.reportProgress(fmt.Sprintf("website check %d/%d", i+1, total), progress, 100)
		}

		if !lead.HasWebsite() {
			lead.Verdict.Status = leads.StatusAbsent
			stats.VerdictAbsent++
			continue
		}

		verdict := p.classifier.Classify(ctx, lead.WebsiteURL, depth)
		verdict.ElapsedMS = time.Since(start).Milliseconds()
		lead.Verdict = verdict
		stats.RecordVerdict(verdict.Status)
	}
}

// --- listing → lead conversion and address parsing ---------------------

var (
	plzCityRawRe  = regexp.MustCompile(`(\d{5})\s+([A-Za-zäöüßÄÖÜ\-\s]+)`)
	streetHouseRe = regexp.MustCompile(`^(.+?)\s+(\d+\s*[a-zA-Z]?)$`)
)

// listingToLead converts a ListingStub that has no usable detail page
// (missing URL, failed fetch, or failed parse) directly into a Lead,
// mirroring the original's _listing_to_lead fallback.
func listingToLead(stub leads.ListingStub, category, city string) *leads.Lead {
	cat := stub.Category
	if cat == "" {
		cat = category
	}
	if cat == "" {
		cat = "Unbekannt"
	}

	addr := parseRawAddress(stub.AddressRaw, city)

	lead, err := leads.New(stub.Name, cat, addr)
	if err != nil {
		return nil
	}
	lead.Phone = stub.Phone
	if stub.WebsiteURL != "" {
		lead.SetWebsiteURL(stub.WebsiteURL)
	}
	lead.Rating = stub.Rating
	lead.RatingCount = stub.RatingCount
	lead.OpeningHours = stub.OpeningHours
	lead.DirectoryURL = stub.DetailURL
	lead.MapPlaceID = stub.PlaceID
	if stub.Source == leads.SourceMap && stub.DetailURL != "" && strings.Contains(stub.DetailURL, "google.com") {
		lead.MapURL = stub.DetailURL
	}
	lead.AddSource(stub.Source)
	return lead
}

// mergeListingIntoDetail fills gaps in a detail-page lead using data
// already present on the listing stub, mirroring _merge_listing_data.
func mergeListingIntoDetail(lead *leads.Lead, stub leads.ListingStub) *leads.Lead {
	if lead.Phone == "" {
		lead.Phone = stub.Phone
	}
	if lead.WebsiteURL == "" && stub.WebsiteURL != "" {
		lead.SetWebsiteURL(stub.WebsiteURL)
	}
	if lead.Rating == nil && stub.Rating != nil {
		lead.Rating = stub.Rating
		lead.RatingCount = stub.RatingCount
	}
	return lead
}

// parseRawAddress splits a directory's free-text address blob into a
// structured Address, the Go equivalent of the scraper's
// _parse_raw_address regex pass.
func parseRawAddress(raw, fallbackCity string) leads.Address {
	if raw == "" {
		return leads.NewAddress("", "", "", fallbackCity, "")
	}

	city := fallbackCity
	plz := ""
	street := ""
	houseNumber := ""

	loc := plzCityRawRe.FindStringSubmatchIndex(raw)
	if loc != nil {
		plz = raw[loc[2]:loc[3]]
		city = strings.TrimSpace(raw[loc[4]:loc[5]])

		prefix := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw[:loc[0]]), ","))
		if prefix != "" {
			if m := streetHouseRe.FindStringSubmatch(prefix); m != nil {
				street, houseNumber = m[1], m[2]
			} else {
				street = prefix
			}
		}
	}

	return leads.NewAddress(street, houseNumber, plz, city, "")
}

func buildDirectorySearchURL(base, category, city string, page int) string {
	encodedCategory := url.QueryEscape(strings.ToLower(category))
	encodedCity := url.QueryEscape(strings.ToLower(city))
	if page <= 1 {
		return fmt.Sprintf("%s/%s/%s", base, encodedCategory, encodedCity)
	}
	return fmt.Sprintf("%s/%s/%s/seite-%d", base, encodedCategory, encodedCity, page)
}
