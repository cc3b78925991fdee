package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestShouldRetryBoundary(t *testing.T) {
	g := New(DefaultParams(), time.Now())

	// at attempt = max_retries - 1, one more retry is permitted
	if !g.ShouldRetry(503, g.params.MaxRetries-1) {
		t.Error("expected retry to be permitted at max_retries-1")
	}
	// at attempt = max_retries, should_retry returns false
	if g.ShouldRetry(503, g.params.MaxRetries) {
		t.Error("expected no retry at max_retries")
	}
	// non-retryable status never retries
	if g.ShouldRetry(404, 0) {
		t.Error("expected 404 to never be retried")
	}
}

func TestReportErrorEntersCooldownOnRetryableStatus(t *testing.T) {
	g := New(DefaultParams(), time.Now())
	g.ReportError("example.de", 503)

	s := g.state("example.de")
	if s.consecutiveErrors != 1 {
		t.Errorf("expected 1 consecutive error, got %d", s.consecutiveErrors)
	}
	if s.cooldownUntil.IsZero() {
		t.Error("expected cooldown to be set for retryable status")
	}
}

func TestReportErrorNonRetryableSkipsCooldown(t *testing.T) {
	g := New(DefaultParams(), time.Now())
	g.ReportError("example.de", 404)

	s := g.state("example.de")
	if !s.cooldownUntil.IsZero() {
		t.Error("expected no cooldown for non-retryable status")
	}
}

func TestReportSuccessResetsErrors(t *testing.T) {
	g := New(DefaultParams(), time.Now())
	g.ReportError("example.de", 500)
	g.ReportSuccess("example.de")

	if g.state("example.de").consecutiveErrors != 0 {
		t.Error("expected consecutive errors to reset on success")
	}
}

func TestAcquireReturnsSessionLimitReachedPastCap(t *testing.T) {
	start := time.Now().Add(-200 * time.Minute)
	g := New(StealthParams(180*time.Minute), start)

	_, err := g.Acquire(context.Background(), "example.de", ClassOther)
	if !errors.Is(err, ErrSessionLimitReached) {
		t.Fatalf("expected ErrSessionLimitReached, got %v", err)
	}
}

func TestAcquireRollsHourWindowAtCeiling(t *testing.T) {
	params := StealthParams(3 * time.Hour)
	params.HourlyCeiling = 2
	// shrink delays so the test doesn't actually wait seconds
	params.DirectoryDelay = [2]time.Duration{time.Millisecond, 2 * time.Millisecond}
	params.OtherDelay = [2]time.Duration{time.Millisecond, 2 * time.Millisecond}
	g := New(params, time.Now())

	// prime the hour window to exactly the ceiling, all within the last
	// 60 minutes, so the next acquire must wait for the window to roll.
	now := time.Now()
	g.hourWindow = []time.Time{now.Add(-50 * time.Minute), now.Add(-40 * time.Minute)}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := g.Acquire(ctx, "example.de", ClassOther)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the acquire to still be waiting on the hour window, got %v", err)
	}
}

func TestRetryDelayGrowsWithAttemptAndJitters(t *testing.T) {
	g := New(DefaultParams(), time.Now())

	d0 := g.RetryDelay(0)
	d2 := g.RetryDelay(2)
	if d2 <= d0 {
		t.Errorf("expected retry delay to grow with attempt, got d0=%v d2=%v", d0, d2)
	}

	// jitter keeps delay within +/-20% of 2*backoff^attempt
	base := 2 * float64(time.Second)
	if float64(d0) < base*0.8 || float64(d0) > base*1.2 {
		t.Errorf("expected attempt-0 delay within +/-20%% of base, got %v", d0)
	}
}
