package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/use-agent/leadforge/internal/aggregate"
	"github.com/use-agent/leadforge/internal/leads"
)

// CheckpointStore persists progress across a multi-category run so a
// killed process can resume instead of rescraping categories it
// already finished, mirroring main.py's _save_checkpoint/
// run_multi_branche_scrape pair.
type CheckpointStore struct {
	leadsPath      string
	categoriesPath string
}

// NewCheckpointStore builds a CheckpointStore scoped to one city; the
// filenames match the original's slugging (lowercase, spaces to
// underscores) so a resume after a crash finds the same files.
func NewCheckpointStore(city string) *CheckpointStore {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(city)), " ", "_")
	return &CheckpointStore{
		leadsPath:      fmt.Sprintf(".checkpoint_leads_%s.json", slug),
		categoriesPath: fmt.Sprintf(".checkpoint_categories_%s.json", slug),
	}
}

type checkpointLeadsFile struct {
	Leads []leads.Lead `json:"leads"`
}

// Load reads whatever checkpoint exists, returning an empty, non-nil
// result when no files are present rather than an error.
func (s *CheckpointStore) Load() ([]leads.Lead, map[string]bool, error) {
	processed := map[string]bool{}

	if raw, err := os.ReadFile(s.categoriesPath); err == nil {
		var names []string
		if err := json.Unmarshal(raw, &names); err != nil {
			return nil, nil, fmt.Errorf("checkpoint: parse processed categories: %w", err)
		}
		for _, n := range names {
			processed[n] = true
		}
	} else if !os.IsNotExist(err) {
		return nil, nil, err
	}

	var restored []leads.Lead
	if len(processed) > 0 {
		if raw, err := os.ReadFile(s.leadsPath); err == nil {
			var file checkpointLeadsFile
			if err := json.Unmarshal(raw, &file); err != nil {
				return nil, nil, fmt.Errorf("checkpoint: parse leads: %w", err)
			}
			restored = file.Leads
		} else if !os.IsNotExist(err) {
			return nil, nil, err
		}
	}

	return restored, processed, nil
}

// Save writes the current accumulated leads and processed-category set
// to disk, overwriting any prior checkpoint.
func (s *CheckpointStore) Save(accumulated []leads.Lead, processed map[string]bool) error {
	leadsBytes, err := json.Marshal(checkpointLeadsFile{Leads: accumulated})
	if err != nil {
		return fmt.Errorf("checkpoint: marshal leads: %w", err)
	}
	if err := os.WriteFile(s.leadsPath, leadsBytes, 0o644); err != nil {
		return fmt.Errorf("checkpoint: write leads: %w", err)
	}

	names := make([]string, 0, len(processed))
	for n := range processed {
		names = append(names, n)
	}
	categoriesBytes, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("checkpoint: marshal categories: %w", err)
	}
	if err := os.WriteFile(s.categoriesPath, categoriesBytes, 0o644); err != nil {
		return fmt.Errorf("checkpoint: write categories: %w", err)
	}
	return nil
}

// Clear removes both checkpoint files; called once a multi-category
// run has processed every category (a category whose scrape failed
// still counts as processed).
func (s *CheckpointStore) Clear() error {
	if err := os.Remove(s.leadsPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Remove(s.categoriesPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MultiCategoryOptions tunes RunMultiCategory.
type MultiCategoryOptions struct {
	RunOptions
	CheckpointEvery int // categories between checkpoint saves; default 10
}

// MultiCategoryResult is the aggregated output of a multi-category run.
type MultiCategoryResult struct {
	Leads             []leads.Lead
	CategoriesRun     int
	CategoriesSkipped int
	Errors            []string
}

// RunMultiCategory drives Run once per category, deduplicating each
// batch of new leads against everything accumulated so far, and
// checkpointing every CheckpointEvery categories so a killed process
// can resume via the same CheckpointStore. It mirrors
// run_multi_branche_scrape's loop, including resuming already-processed
// categories and clearing the checkpoint on a full, uninterrupted
// completion.
func (p *Pipeline) RunMultiCategory(ctx context.Context, categories []string, city string, opts MultiCategoryOptions, store *CheckpointStore, log *slog.Logger) (*MultiCategoryResult, error) {
	if log == nil {
		log = p.log
	}
	if opts.CheckpointEvery <= 0 {
		opts.CheckpointEvery = 10
	}

	restored, processed, err := store.Load()
	if err != nil {
		return nil, err
	}
	if len(processed) > 0 {
		log.Info("resuming multi-category run", "categories_done", len(processed), "leads_restored", len(restored))
	}

	result := &MultiCategoryResult{Leads: restored}
	weights := p.cfg.MatchWeights
	if weights == (aggregate.MatchWeights{}) {
		weights = aggregate.DefaultMatchWeights()
	}

	accumulatedPtrs := make([]*leads.Lead, len(restored))
	for i := range restored {
		accumulatedPtrs[i] = &restored[i]
	}

	for i, category := range categories {
		if processed[category] {
			result.CategoriesSkipped++
			continue
		}

		if err := ctx.Err(); err != nil {
			log.Info("multi-category run interrupted, saving checkpoint", "category", category)
			_ = store.Save(flattenLeads(accumulatedPtrs), processed)
			return result, err
		}

		log.Info("multi-category run: starting category", "category", category, "index", i+1, "total", len(categories))

		runResult, runErr := p.Run(ctx, category, city, opts.RunOptions)
		if runErr != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", category, runErr))
			if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
				_ = store.Save(flattenLeads(accumulatedPtrs), processed)
				return result, runErr
			}
			processed[category] = true
			continue
		}

		newCount := 0
		for i := range runResult.Leads {
			candidate := &runResult.Leads[i]
			duplicate := false
			for _, existing := range accumulatedPtrs {
				if aggregate.IsDuplicate(candidate, existing, weights).IsMatch {
					duplicate = true
					break
				}
			}
			if !duplicate {
				accumulatedPtrs = append(accumulatedPtrs, candidate)
				newCount++
			}
		}
		log.Info("multi-category run: category complete", "category", category, "found", len(runResult.Leads), "new", newCount)

		processed[category] = true
		result.CategoriesRun++

		if result.CategoriesRun%opts.CheckpointEvery == 0 {
			if err := store.Save(flattenLeads(accumulatedPtrs), processed); err != nil {
				log.Error("checkpoint save failed", "error", err)
			} else {
				log.Info("checkpoint saved", "leads", len(accumulatedPtrs))
			}
		}
	}

	result.Leads = flattenLeads(accumulatedPtrs)

	if err := store.Clear(); err != nil {
		log.Warn("failed to clear checkpoint files", "error", err)
	}

	return result, nil
}

func flattenLeads(ptrs []*leads.Lead) []leads.Lead {
	out := make([]leads.Lead, len(ptrs))
	for i, p := range ptrs {
		out[i] = *p
	}
	return out
}
