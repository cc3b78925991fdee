package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/use-agent/leadforge/internal/leads"
)

func withTempWorkdir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestCheckpointStore_SlugsCityName(t *testing.T) {
	store := NewCheckpointStore("Bad Kreuznach")
	if filepath.Base(store.leadsPath) != ".checkpoint_leads_bad_kreuznach.json" {
		t.Errorf("leadsPath = %q", store.leadsPath)
	}
}

func TestCheckpointStore_LoadWithNoFilesReturnsEmpty(t *testing.T) {
	withTempWorkdir(t)
	store := NewCheckpointStore("Berlin")

	restored, processed, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(restored) != 0 || len(processed) != 0 {
		t.Errorf("expected empty state, got %d leads, %d processed", len(restored), len(processed))
	}
}

func TestCheckpointStore_SaveThenLoadRoundTrips(t *testing.T) {
	withTempWorkdir(t)
	store := NewCheckpointStore("Berlin")

	lead, err := leads.New("Test GmbH", "Handwerk", leads.Address{})
	if err != nil {
		t.Fatalf("leads.New: %v", err)
	}
	processed := map[string]bool{"Friseur": true}

	if err := store.Save([]leads.Lead{*lead}, processed); err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored, restoredProcessed, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(restored) != 1 || restored[0].Name != "Test GmbH" {
		t.Errorf("restored leads = %+v", restored)
	}
	if !restoredProcessed["Friseur"] {
		t.Errorf("expected Friseur marked processed, got %+v", restoredProcessed)
	}
}

func TestCheckpointStore_ClearRemovesFiles(t *testing.T) {
	withTempWorkdir(t)
	store := NewCheckpointStore("Berlin")

	if err := store.Save(nil, map[string]bool{"Friseur": true}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(store.leadsPath); !os.IsNotExist(err) {
		t.Errorf("expected leads checkpoint file removed")
	}
	if _, err := os.Stat(store.categoriesPath); !os.IsNotExist(err) {
		t.Errorf("expected categories checkpoint file removed")
	}
}

func TestCheckpointStore_ClearOnMissingFilesIsNotAnError(t *testing.T) {
	withTempWorkdir(t)
	store := NewCheckpointStore("NoSuchCity")
	if err := store.Clear(); err != nil {
		t.Errorf("Clear on missing files should be a no-op, got %v", err)
	}
}
