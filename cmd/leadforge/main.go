package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/use-agent/leadforge/internal/catalog"
	"github.com/use-agent/leadforge/internal/classify"
	"github.com/use-agent/leadforge/internal/config"
	"github.com/use-agent/leadforge/internal/export"
	"github.com/use-agent/leadforge/internal/leads"
	"github.com/use-agent/leadforge/internal/notify"
	"github.com/use-agent/leadforge/internal/outreach"
	"github.com/use-agent/leadforge/internal/pipeline"
	"github.com/use-agent/leadforge/internal/ratelimit"
)

func main() {
	flags := parseFlags()

	cfg := config.Load()
	applyFlagOverrides(cfg, flags)
	initLogger(cfg, flags)

	if err := flags.validate(); err != nil {
		slog.Error("invalid flags", "error", err)
		os.Exit(1)
	}

	runID := uuid.New().String()[:8]
	slog.Info("leadforge starting",
		"run_id", runID,
		"stadt", flags.City,
		"stealth", cfg.RateLimit.Stealth,
		"sources", flags.Sources,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())
		cancel()
	}()

	proxyFile := ""
	if flags.UseProxy {
		proxyFile = flags.ProxyFile
	}

	governor := ratelimit.New(cfg.RatelimitParams(), time.Now())
	pcfg := pipeline.Config{
		DirectoryBaseURL: cfg.Directory.BaseURL,
		DirectoryHost:    cfg.Directory.Host,
		FetchConfig:      cfg.Fetch,
		BrowserConfig:    cfg.Browser,
		RateParams:       cfg.RatelimitParams(),
		ProxyFile:        proxyFile,
		MatchWeights:     cfg.Matching,
		FilterConfig:     cfg.Filter,
	}
	if flags.MinQuality > 0 {
		pcfg.FilterConfig.MinQualityScore = flags.MinQuality
	}
	if flags.RequirePhone {
		pcfg.FilterConfig.RequirePhone = true
	}
	if flags.RequireEmail {
		pcfg.FilterConfig.RequireEmail = true
	}
	pcfg.FilterConfig.IncludeModernWebsite = flags.IncludeModern
	if flags.NoHeadless {
		pcfg.BrowserConfig.Headless = false
	}

	pipe := pipeline.New(pcfg, governor, slog.Default())
	pipe.SetProgressFunc(printProgress)

	opts := pipeline.RunOptions{
		MaxLeads:     flags.Limit,
		MaxPages:     flags.MaxPages,
		Sources:      sourcesFor(flags.Sources),
		WebsiteCheck: depthFor(flags.WebsiteCheck),
	}

	leadsOut, runErrors, partial, err := run(ctx, pipe, flags, opts)
	if err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}

	result := &leads.RunResult{Leads: leadsOut, TotalFound: len(leadsOut), Errors: runErrors, Partial: partial}
	printSummary(result, flags)

	if err := exportResult(result, flags, runID); err != nil {
		slog.Error("export failed", "error", err)
		os.Exit(1)
	}

	if flags.OutreachDraft {
		if err := writeOutreachDraft(ctx, result, flags, runID); err != nil {
			slog.Warn("outreach draft generation failed", "error", err)
		}
	}

	if flags.WebhookURL != "" {
		notify.DeliverAsync(flags.WebhookURL, flags.WebhookSecret, &notify.Event{
			Type:      "run.completed",
			RunID:     runID,
			Branche:   branchLabel(flags),
			Stadt:     flags.City,
			Timestamp: time.Now().Unix(),
			Data: map[string]any{
				"leads_found": len(leadsOut),
				"partial":     partial,
				"errors":      len(runErrors),
			},
		})
	}

	slog.Info("leadforge finished", "run_id", runID, "leads", len(leadsOut))
}

func run(ctx context.Context, pipe *pipeline.Pipeline, flags *cliFlags, opts pipeline.RunOptions) ([]leads.Lead, []string, bool, error) {
	if flags.AllBranchen || flags.Kategorie != "" {
		categories := catalog.Lookup(flags.Kategorie)
		store := pipeline.NewCheckpointStore(flags.City)
		multiOpts := pipeline.MultiCategoryOptions{RunOptions: opts, CheckpointEvery: 10}

		result, err := pipe.RunMultiCategory(ctx, categories, flags.City, multiOpts, store, slog.Default())
		if result == nil {
			return nil, nil, false, err
		}
		return result.Leads, result.Errors, false, err
	}

	result, err := pipe.Run(ctx, flags.Branche, flags.City, opts)
	if err != nil && result == nil {
		return nil, nil, false, err
	}
	return result.Leads, result.Errors, result.Partial, nil
}

// printProgress renders an ASCII progress bar, matching the distilled
// pipeline's terminal output.
func printProgress(message string, current, total int) {
	if total <= 0 {
		fmt.Fprintf(os.Stderr, "\r%s", message)
		return
	}
	width := 30
	filled := width * current / total
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	fmt.Fprintf(os.Stderr, "\r[%s] %d%% %s", bar, current*100/total, message)
	if current >= total {
		fmt.Fprintln(os.Stderr)
	}
}

func printSummary(result *leads.RunResult, flags *cliFlags) {
	fmt.Println()
	fmt.Println("=== Zusammenfassung ===")
	fmt.Printf("Branche:        %s\n", branchLabel(flags))
	fmt.Printf("Stadt:          %s\n", flags.City)
	fmt.Printf("Leads gefunden: %d\n", len(result.Leads))
	if result.Partial {
		fmt.Println("Status:         abgebrochen (Sitzungslimit erreicht) — Teilergebnis")
	}
	if len(result.Errors) > 0 {
		fmt.Printf("Fehler:         %d\n", len(result.Errors))
	}
}

func branchLabel(flags *cliFlags) string {
	switch {
	case flags.AllBranchen:
		return fmt.Sprintf("alle (%d)", catalog.Count)
	case flags.Kategorie != "":
		return "Kategorie: " + flags.Kategorie
	default:
		return flags.Branche
	}
}

func exportResult(result *leads.RunResult, flags *cliFlags, runID string) error {
	base := flags.Output
	if base == "" {
		slug := strings.ToLower(strings.ReplaceAll(branchSlug(flags), " ", "_"))
		citySlug := strings.ToLower(strings.ReplaceAll(flags.City, " ", "_"))
		base = fmt.Sprintf("%s_%s_%s", slug, citySlug, runID)
	}

	writeJSON := flags.Format == "json" || flags.Format == "both"
	writeCSV := flags.Format == "csv" || flags.Format == "both"

	if writeJSON {
		jsonExp := export.NewJSONExporter(export.DefaultJSONOptions())
		path := base + ".json"
		if _, err := jsonExp.Export(result, path, branchLabel(flags), flags.City); err != nil {
			return err
		}
		slog.Info("wrote json export", "path", path)
	}
	if writeCSV {
		csvExp := export.NewCSVExporter(export.DefaultCSVOptions())
		path := base + ".csv"
		if _, err := csvExp.Export(result, path); err != nil {
			return err
		}
		slog.Info("wrote csv export", "path", path)
	}
	return nil
}

func writeOutreachDraft(ctx context.Context, result *leads.RunResult, flags *cliFlags, runID string) error {
	if flags.LLMAPIKey == "" {
		return fmt.Errorf("--llm-api-key is required with --outreach-draft")
	}
	if len(result.Leads) == 0 {
		return fmt.Errorf("no leads to seed an outreach draft with")
	}

	client := outreach.NewClient(nil)
	draft, err := client.GenerateDraft(ctx, branchLabel(flags), flags.City, result.Leads, outreach.Params{
		APIKey:  flags.LLMAPIKey,
		Model:   flags.LLMModel,
		BaseURL: flags.LLMBaseURL,
	})
	if err != nil {
		return err
	}

	path := fmt.Sprintf("outreach_%s.txt", runID)
	if err := os.WriteFile(path, []byte(draft), 0o644); err != nil {
		return fmt.Errorf("write outreach draft: %w", err)
	}
	slog.Info("wrote outreach draft", "path", path)
	return nil
}

func branchSlug(flags *cliFlags) string {
	switch {
	case flags.AllBranchen:
		return "alle"
	case flags.Kategorie != "":
		return flags.Kategorie
	default:
		return flags.Branche
	}
}

func sourcesFor(sources string) []string {
	switch sources {
	case "google-maps":
		return []string{leads.SourceMap}
	case "all":
		return []string{leads.SourceDirectory, leads.SourceMap}
	default:
		return []string{leads.SourceDirectory}
	}
}

func depthFor(s string) classify.Depth {
	switch s {
	case "fast":
		return classify.DepthFast
	case "thorough":
		return classify.DepthThorough
	default:
		return classify.DepthNormal
	}
}

// initLogger configures slog, honoring both the config's log settings
// and the CLI's verbosity flags (which take precedence).
func initLogger(cfg *config.Config, flags *cliFlags) {
	level := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if flags.Debug {
		level = slog.LevelDebug
	} else if flags.Verbose {
		level = slog.LevelInfo
	} else if flags.Quiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Log.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

type cliFlags struct {
	Branche       string
	City          string
	AllBranchen   bool
	Kategorie     string
	Limit         int
	MaxPages      int
	Sources       string
	UseProxy      bool
	ProxyFile     string
	NoHeadless    bool
	Stealth       bool
	Duration      int
	WebsiteCheck  string
	IncludeModern bool
	MinQuality    int
	RequirePhone  bool
	RequireEmail  bool
	Output        string
	Format        string
	Verbose       bool
	Debug         bool
	Quiet         bool
	OutreachDraft bool
	LLMAPIKey     string
	LLMModel      string
	LLMBaseURL    string
	WebhookURL    string
	WebhookSecret string
}

func parseFlags() *cliFlags {
	f := &cliFlags{}
	pflag.StringVarP(&f.Branche, "branche", "b", "", "business category to search (e.g. Friseur)")
	pflag.StringVarP(&f.City, "stadt", "s", "", "city to search in (required)")
	pflag.BoolVar(&f.AllBranchen, "all-branchen", false, "sweep the full built-in category catalog")
	pflag.StringVarP(&f.Kategorie, "kategorie", "k", "", "sweep a named category bundle (handwerk, gesundheit, beauty, gastro, auto, beratung)")
	pflag.IntVarP(&f.Limit, "limit", "l", 100, "maximum leads to collect")
	pflag.IntVar(&f.MaxPages, "max-pages", 50, "maximum directory pages to scrape")
	pflag.StringVar(&f.Sources, "sources", "gelbe-seiten", "sources to use: gelbe-seiten, google-maps, all")
	pflag.BoolVar(&f.UseProxy, "use-proxy", false, "load --proxy-file into the browser source's proxy pool (the browser does not route traffic through it)")
	pflag.StringVar(&f.ProxyFile, "proxy-file", "", "path to a newline-delimited proxy list")
	pflag.BoolVar(&f.NoHeadless, "no-headless", false, "run the browser source with a visible window")
	pflag.BoolVar(&f.Stealth, "stealth", false, "use the conservative stealth rate-limit profile")
	pflag.IntVar(&f.Duration, "duration", 180, "stealth session cap in minutes")
	pflag.StringVarP(&f.WebsiteCheck, "website-check", "w", "normal", "website classification depth: fast, normal, thorough")
	pflag.BoolVar(&f.IncludeModern, "include-modern", false, "include leads whose website was classified as modern (excluded by default)")
	pflag.IntVar(&f.MinQuality, "min-quality", 0, "minimum quality score to keep a lead")
	pflag.BoolVar(&f.RequirePhone, "require-phone", false, "drop leads with no phone number")
	pflag.BoolVar(&f.RequireEmail, "require-email", false, "drop leads with no email address")
	pflag.StringVarP(&f.Output, "output", "o", "", "output file base name (without extension)")
	pflag.StringVarP(&f.Format, "format", "f", "json", "export format: json, csv, both")
	pflag.BoolVarP(&f.Verbose, "verbose", "v", false, "verbose logging")
	pflag.BoolVar(&f.Debug, "debug", false, "debug logging")
	pflag.BoolVarP(&f.Quiet, "quiet", "q", false, "only log errors")
	pflag.BoolVar(&f.OutreachDraft, "outreach-draft", false, "ask an LLM to draft a cold-outreach email template from the collected leads")
	pflag.StringVar(&f.LLMAPIKey, "llm-api-key", "", "API key for --outreach-draft")
	pflag.StringVar(&f.LLMModel, "llm-model", "gpt-4o-mini", "chat completion model for --outreach-draft")
	pflag.StringVar(&f.LLMBaseURL, "llm-base-url", "https://api.openai.com/v1", "OpenAI-compatible base URL for --outreach-draft")
	pflag.StringVar(&f.WebhookURL, "webhook-url", "", "POST a run-completed event to this URL when the run finishes")
	pflag.StringVar(&f.WebhookSecret, "webhook-secret", "", "HMAC-SHA256 secret used to sign --webhook-url deliveries")
	pflag.Parse()
	return f
}

func (f *cliFlags) validate() error {
	if f.City == "" {
		return fmt.Errorf("--stadt is required")
	}
	if !f.AllBranchen && f.Kategorie == "" && f.Branche == "" {
		return fmt.Errorf("one of --branche, --kategorie, or --all-branchen is required")
	}
	switch f.Sources {
	case "gelbe-seiten", "google-maps", "all":
	default:
		return fmt.Errorf("--sources must be one of gelbe-seiten, google-maps, all")
	}
	switch f.WebsiteCheck {
	case "fast", "normal", "thorough":
	default:
		return fmt.Errorf("--website-check must be one of fast, normal, thorough")
	}
	switch f.Format {
	case "json", "csv", "both":
	default:
		return fmt.Errorf("--format must be one of json, csv, both")
	}
	return nil
}

func applyFlagOverrides(cfg *config.Config, flags *cliFlags) {
	if flags.Stealth {
		cfg.RateLimit.Stealth = true
		cfg.RateLimit.SessionCap = time.Duration(flags.Duration) * time.Minute
	}
}
