package browser

import "testing"

func TestDefaultConfigRotatesEvery10(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.RotateEvery != 10 {
		t.Errorf("expected RotateEvery=10, got %d", cfg.RotateEvery)
	}
	if !cfg.Headless {
		t.Error("expected headless by default")
	}
}
