// Package browser wraps a go-rod headless browser with stealth
// patching for the optional map-service scrape. It mirrors the narrow
// navigate/wait/scroll/click/evaluate/content surface the core
// pipeline needs, nothing more.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/use-agent/leadforge/internal/leads"
	"github.com/use-agent/leadforge/internal/proxypool"
	"github.com/use-agent/leadforge/internal/uapool"
)

// Config tunes browser launch behavior.
type Config struct {
	Headless   bool
	NoSandbox  bool
	BrowserBin string
	// RotateEvery is the request count after which the page context is
	// torn down and rebuilt with a fresh user-agent identity. The proxy
	// pool handed to New is stored but not applied: browser traffic
	// always goes out directly.
	RotateEvery int
}

// DefaultConfig matches the documented default of rotating every 10
// requests, headless, sandboxed.
func DefaultConfig() Config {
	return Config{Headless: true, NoSandbox: false, RotateEvery: 10}
}

// NavigateResult is the normalized outcome of one Navigate call.
type NavigateResult struct {
	OK        bool
	Body      string
	FinalURL  string
	Status    int
	ElapsedMS int64
}

// Capability is the Browser Capability. It owns a single browser
// process and one active page; identity rotation recreates the page
// context every RotateEvery requests.
type Capability struct {
	cfg     Config
	uaPool  *uapool.Pool
	proxies *proxypool.Pool

	browser      *rod.Browser
	page         *rod.Page
	requestCount int
}

// New launches a headless browser with the same stealth-oriented
// Chromium flags the original scraper uses to avoid the
// AutomationControlled signal.
func New(cfg Config, uaPool *uapool.Pool, proxies *proxypool.Pool) (*Capability, error) {
	l := launcher.New().Headless(cfg.Headless).NoSandbox(cfg.NoSandbox)
	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, leads.NewScrapeError(leads.ErrCodeBrowserCrash, "failed to launch browser", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, leads.NewScrapeError(leads.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	if cfg.RotateEvery <= 0 {
		cfg.RotateEvery = 10
	}

	c := &Capability{cfg: cfg, uaPool: uaPool, proxies: proxies, browser: b}
	if err := c.newContext(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Capability) newContext() error {
	if c.page != nil {
		_ = c.page.Close()
	}

	page, err := c.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return leads.NewScrapeError(leads.ErrCodeBrowserCrash, "failed to create page", err)
	}

	if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
		// Stealth injection failing is non-fatal; proceed without it.
	}

	identity := c.uaPool.Random()
	_ = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: identity})

	c.page = page
	c.requestCount = 0
	return nil
}

func (c *Capability) maybeRotate() error {
	if c.requestCount >= c.cfg.RotateEvery {
		return c.newContext()
	}
	return nil
}

// Navigate opens url and waits for waitCondition ("idle" or "load") to
// settle, returning the rendered body and metadata. Identity rotates
// transparently every RotateEvery calls.
func (c *Capability) Navigate(ctx context.Context, url string, waitCondition string) (NavigateResult, error) {
	if err := c.maybeRotate(); err != nil {
		return NavigateResult{}, err
	}
	c.requestCount++

	start := time.Now()
	p := c.page.Context(ctx)

	if err := p.Navigate(url); err != nil {
		return NavigateResult{}, leads.NewScrapeError(leads.ErrCodeBrowserCrash, "navigation failed", err)
	}

	switch waitCondition {
	case "idle":
		wait := p.WaitRequestIdle(300*time.Millisecond, nil, nil, nil)
		wait()
	default:
		_ = p.WaitDOMStable(300*time.Millisecond, 0.1)
	}

	body, err := p.HTML()
	if err != nil {
		return NavigateResult{}, leads.NewScrapeError(leads.ErrCodeBrowserCrash, "failed to extract HTML", err)
	}

	finalURL := url
	if res, err := p.Eval(`() => window.location.href`); err == nil {
		if s := res.Value.Str(); s != "" {
			finalURL = s
		}
	}

	return NavigateResult{
		OK:        true,
		Body:      body,
		FinalURL:  finalURL,
		ElapsedMS: time.Since(start).Milliseconds(),
	}, nil
}

// WaitForSelector blocks until selector reaches state ("visible" or
// "present") or timeout elapses.
func (c *Capability) WaitForSelector(selector, state string, timeout time.Duration) error {
	el, err := c.page.Timeout(timeout).Element(selector)
	if err != nil {
		return leads.NewScrapeError(leads.ErrCodeTimeout, fmt.Sprintf("selector %q not found", selector), err)
	}
	if state == "visible" {
		if err := el.WaitVisible(); err != nil {
			return leads.NewScrapeError(leads.ErrCodeTimeout, fmt.Sprintf("selector %q never visible", selector), err)
		}
	}
	return nil
}

// ScrollWithin scrolls the element matching selector, pausing between
// scrolls, up to maxScrolls times or until scroll height stops
// growing, returning the number of scrolls performed.
func (c *Capability) ScrollWithin(selector string, pause time.Duration, maxScrolls int) (int, error) {
	el, err := c.page.Element(selector)
	if err != nil {
		return 0, leads.NewScrapeError(leads.ErrCodeParserMiss, fmt.Sprintf("scroll target %q not found", selector), err)
	}

	count := 0
	var lastHeight int
	for i := 0; i < maxScrolls; i++ {
		res, evalErr := el.Eval(`() => { this.scrollTop = this.scrollHeight; return this.scrollHeight; }`)
		if evalErr != nil {
			break
		}
		height := res.Value.Int()
		if height == lastHeight {
			break
		}
		lastHeight = height
		count++
		time.Sleep(pause)
	}
	return count, nil
}

// ScrollToBottom scrolls the whole page to the bottom repeatedly until
// document height stops growing or maxScrolls is reached.
func (c *Capability) ScrollToBottom(pause time.Duration, maxScrolls int) (int, error) {
	count := 0
	var lastHeight int
	for i := 0; i < maxScrolls; i++ {
		res, err := c.page.Eval(`() => { window.scrollTo(0, document.body.scrollHeight); return document.body.scrollHeight; }`)
		if err != nil {
			break
		}
		height := res.Value.Int()
		if height == lastHeight {
			break
		}
		lastHeight = height
		count++
		time.Sleep(pause)
	}
	return count, nil
}

// Click clicks the first element matching selector.
func (c *Capability) Click(selector string) error {
	el, err := c.page.Element(selector)
	if err != nil {
		return leads.NewScrapeError(leads.ErrCodeParserMiss, fmt.Sprintf("click target %q not found", selector), err)
	}
	if err := el.Click("left", 1); err != nil {
		return leads.NewScrapeError(leads.ErrCodeBrowserCrash, "click failed", err)
	}
	return nil
}

// Evaluate runs script in the page context and returns its string
// result.
func (c *Capability) Evaluate(script string) (string, error) {
	res, err := c.page.Eval(script)
	if err != nil {
		return "", leads.NewScrapeError(leads.ErrCodeBrowserCrash, "evaluate failed", err)
	}
	return res.Value.Str(), nil
}

// Content returns the current page's rendered HTML.
func (c *Capability) Content() (string, error) {
	body, err := c.page.HTML()
	if err != nil {
		return "", leads.NewScrapeError(leads.ErrCodeBrowserCrash, "failed to extract HTML", err)
	}
	return body, nil
}

// Close releases the page and kills the browser process.
func (c *Capability) Close() {
	if c.page != nil {
		_ = c.page.Close()
	}
	if c.browser != nil {
		c.browser.MustClose()
	}
}
