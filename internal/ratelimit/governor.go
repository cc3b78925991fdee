// Package ratelimit implements per-host pacing, session ceilings, and
// retry policy for the Fetch Client and Browser Capability. It composes
// golang.org/x/time/rate for the base token-bucket admission check with
// hand-written jitter, backoff, and long-break logic the library has no
// equivalent for.
package ratelimit

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrSessionLimitReached is the sentinel cooperative-termination error
// raised by Acquire once a stealth session's wall-clock cap or hourly
// request ceiling would be exceeded by waiting further. Callers must
// check for it with errors.Is, never treat it as a failure.
var ErrSessionLimitReached = errors.New("ratelimit: session limit reached")

// HostClass selects the base delay range for a host.
type HostClass int

const (
	ClassOther HostClass = iota
	ClassDirectory
	ClassMap
)

// retryableStatus mirrors the Fetch Client's retryable status set.
var retryableStatus = map[int]bool{429: true, 500: true, 502: true, 503: true, 504: true}

// Params tunes one operating profile (normal or stealth) of the
// Governor.
type Params struct {
	// DirectoryDelay, OtherDelay, MapDelay are [min,max] base delay
	// ranges per host class.
	DirectoryDelay [2]time.Duration
	OtherDelay     [2]time.Duration
	MapDelay       [2]time.Duration

	BackoffFactor float64
	MaxDelay      time.Duration

	// LongBreakEvery is the directory-request count after which a long
	// pause is inserted; 0 disables it.
	LongBreakEvery int
	LongBreak      [2]time.Duration

	MaxRetries int

	// Stealth-only fields; zero values disable stealth accounting.
	HourlyCeiling int
	SessionCap    time.Duration
}

// DefaultParams is the normal-mode operating profile.
func DefaultParams() Params {
	return Params{
		DirectoryDelay: [2]time.Duration{2 * time.Second, 4 * time.Second},
		OtherDelay:     [2]time.Duration{1 * time.Second, 2 * time.Second},
		MapDelay:       [2]time.Duration{3 * time.Second, 6 * time.Second},
		BackoffFactor:  2.0,
		MaxDelay:       60 * time.Second,
		LongBreakEvery: 20,
		LongBreak:      [2]time.Duration{15 * time.Second, 30 * time.Second},
		MaxRetries:     3,
	}
}

// StealthParams is the conservative stealth-mode profile; sessionCap
// defaults to 180 minutes when zero is passed.
func StealthParams(sessionCap time.Duration) Params {
	if sessionCap <= 0 {
		sessionCap = 180 * time.Minute
	}
	return Params{
		DirectoryDelay: [2]time.Duration{30 * time.Second, 90 * time.Second},
		OtherDelay:     [2]time.Duration{30 * time.Second, 90 * time.Second},
		MapDelay:       [2]time.Duration{30 * time.Second, 90 * time.Second},
		BackoffFactor:  2.0,
		MaxDelay:       60 * time.Second,
		LongBreakEvery: 12,
		LongBreak:      [2]time.Duration{3 * time.Minute, 8 * time.Minute},
		MaxRetries:     3,
		HourlyCeiling:  50,
		SessionCap:     sessionCap,
	}
}

type hostState struct {
	requestCount      int
	lastRequest       time.Time
	consecutiveErrors int
	cooldownUntil     time.Time
}

// Governor is the Rate Governor. One instance must be shared by every
// caller that needs a common session-wide ceiling (stealth mode); its
// public operations are internally serialized by mu, which is never
// held across a sleep.
type Governor struct {
	params Params
	rng    *rand.Rand

	mu         sync.Mutex
	hosts      map[string]*hostState
	sessionAt  time.Time
	hourWindow []time.Time
	limiters   map[string]*rate.Limiter
}

// New builds a Governor under the given params. now is the session
// start time (stealth mode measures its wall-clock cap from here).
func New(params Params, now time.Time) *Governor {
	return &Governor{
		params:    params,
		rng:       rand.New(rand.NewSource(now.UnixNano())),
		hosts:     map[string]*hostState{},
		sessionAt: now,
		limiters:  map[string]*rate.Limiter{},
	}
}

func (g *Governor) state(host string) *hostState {
	s, ok := g.hosts[host]
	if !ok {
		s = &hostState{}
		g.hosts[host] = s
	}
	return s
}

func delayRange(rng *rand.Rand, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rng.Int63n(int64(hi-lo)))
}

func (g *Governor) classDelay(class HostClass) [2]time.Duration {
	switch class {
	case ClassDirectory:
		return g.params.DirectoryDelay
	case ClassMap:
		return g.params.MapDelay
	default:
		return g.params.OtherDelay
	}
}

// Acquire blocks (respecting ctx cancellation) until it is this host's
// turn to send a request, then returns the actual delay applied. It
// returns ErrSessionLimitReached when a stealth session's wall-clock
// cap is exceeded, or when the hourly ceiling cannot be satisfied
// within the remaining session time.
func (g *Governor) Acquire(ctx context.Context, host string, class HostClass) (time.Duration, error) {
	g.mu.Lock()

	if g.params.SessionCap > 0 && time.Since(g.sessionAt) >= g.params.SessionCap {
		g.mu.Unlock()
		return 0, ErrSessionLimitReached
	}

	s := g.state(host)

	var cooldownWait time.Duration
	if !s.cooldownUntil.IsZero() {
		if w := time.Until(s.cooldownUntil); w > 0 {
			cooldownWait = w
		}
	}

	lo, hi := g.classDelay(class)[0], g.classDelay(class)[1]
	base := delayRange(g.rng, lo, hi)

	limiter, ok := g.limiters[host]
	if !ok {
		mid := (lo + hi) / 2
		if mid <= 0 {
			mid = lo
		}
		limiter = rate.NewLimiter(rate.Every(mid), 1)
		limiter.Allow() // consume the initial burst token so Reserve below paces immediately
		g.limiters[host] = limiter
	}
	limiterDelay := limiter.Reserve().Delay()

	backoff := 1.0
	for i := 0; i < s.consecutiveErrors; i++ {
		backoff *= g.params.BackoffFactor
	}
	delay := time.Duration(float64(base) * backoff)
	if delay > g.params.MaxDelay {
		delay = g.params.MaxDelay
	}

	var longBreak time.Duration
	if class == ClassDirectory && g.params.LongBreakEvery > 0 &&
		s.requestCount > 0 && s.requestCount%g.params.LongBreakEvery == 0 {
		longBreak = delayRange(g.rng, g.params.LongBreak[0], g.params.LongBreak[1])
	}

	var hourWait time.Duration
	if g.params.HourlyCeiling > 0 {
		g.pruneHourWindow()
		if len(g.hourWindow) >= g.params.HourlyCeiling {
			oldest := g.hourWindow[0]
			hourWait = time.Until(oldest.Add(time.Hour))
			if hourWait < 0 {
				hourWait = 0
			}
		}
	}

	residual := limiterDelay
	if cooldownWait > residual {
		residual = cooldownWait
	}
	if longBreak > residual {
		residual = longBreak
	}
	if hourWait > residual {
		residual = hourWait
	}
	if !s.lastRequest.IsZero() {
		elapsed := time.Since(s.lastRequest)
		if delay > elapsed {
			if wait := delay - elapsed; wait > residual {
				residual = wait
			}
		}
	} else if delay > residual {
		residual = delay
	}

	if g.params.SessionCap > 0 {
		remaining := g.params.SessionCap - time.Since(g.sessionAt)
		if residual >= remaining {
			g.mu.Unlock()
			return 0, ErrSessionLimitReached
		}
	}

	g.mu.Unlock()

	if residual > 0 {
		t := time.NewTimer(residual)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-t.C:
		}
	}

	g.mu.Lock()
	s.requestCount++
	s.lastRequest = time.Now()
	if g.params.HourlyCeiling > 0 {
		g.hourWindow = append(g.hourWindow, s.lastRequest)
	}
	g.mu.Unlock()

	return residual, nil
}

func (g *Governor) pruneHourWindow() {
	cutoff := time.Now().Add(-time.Hour)
	i := 0
	for ; i < len(g.hourWindow); i++ {
		if g.hourWindow[i].After(cutoff) {
			break
		}
	}
	g.hourWindow = g.hourWindow[i:]
}

// ReportSuccess zeroes a host's consecutive-error count.
func (g *Governor) ReportSuccess(host string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state(host).consecutiveErrors = 0
}

// ReportError increments a host's consecutive-error count and, for a
// retryable status, enters a cooldown of backoff_factor^errors * 5s
// capped at 300s.
func (g *Governor) ReportError(host string, status int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.state(host)
	s.consecutiveErrors++
	if retryableStatus[status] {
		backoff := 1.0
		for i := 0; i < s.consecutiveErrors; i++ {
			backoff *= g.params.BackoffFactor
		}
		cooldown := time.Duration(backoff * float64(5*time.Second))
		if cap := 300 * time.Second; cooldown > cap {
			cooldown = cap
		}
		s.cooldownUntil = time.Now().Add(cooldown)
	}
}

// ShouldRetry reports whether attempt should be retried for status,
// per attempt < max_retries and status being retryable.
func (g *Governor) ShouldRetry(status, attempt int) bool {
	return attempt < g.params.MaxRetries && retryableStatus[status]
}

// RetryDelay computes 2*backoff_factor^attempt with +/-20% jitter.
func (g *Governor) RetryDelay(attempt int) time.Duration {
	backoff := 1.0
	for i := 0; i < attempt; i++ {
		backoff *= g.params.BackoffFactor
	}
	base := 2 * float64(time.Second) * backoff
	jitter := 1 + (g.rng.Float64()*0.4 - 0.2)
	return time.Duration(base * jitter)
}
