// Package registry reconciles the declared source list into the source store.
package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"reddot-watch/newsdesk/internal/models"
	"reddot-watch/newsdesk/internal/storage"
)

// Registry upserts declared sources by URL.
type Registry struct {
	store *storage.Store
}

// New creates a registry backed by store.
func New(store *storage.Store) *Registry {
	return &Registry{store: store}
}

// Reconcile creates declared sources that do not exist yet and updates the
// mutable fields of the ones that do. Sources missing from declared are left
// untouched. It returns the URLs of the sources it created. Invalid entries are
// logged and skipped.
func (r *Registry) Reconcile(ctx context.Context, declared []Declared) ([]string, error) {
	var created []string
	updated, skipped := 0, 0

	err := r.store.InTx(ctx, func(tx *storage.Tx) error {
		created = created[:0]
		updated, skipped = 0, 0
		seen := make(map[string]bool, len(declared))

		for i, d := range declared {
			src, err := normalize(d)
			if err != nil {
				log.Warn().Err(err).Int("index", i).Str("url", d.URL).Msg("Skipping declared source")
				skipped++
				continue
			}
			if seen[src.URL] {
				log.Warn().Int("index", i).Str("url", src.URL).Msg("Skipping duplicate declared source")
				skipped++
				continue
			}
			seen[src.URL] = true

			existing, err := tx.FindSourceByURL(ctx, src.URL)
			if err != nil {
				return err
			}
			if existing == nil {
				if err := tx.InsertSource(ctx, src); err != nil {
					return err
				}
				created = append(created, src.URL)
				log.Debug().Int64("source_id", src.ID).Str("url", src.URL).Msg("Source created")
				continue
			}

			if !changed(existing, src) {
				continue
			}
			src.ID = existing.ID
			if err := tx.UpdateSource(ctx, src); err != nil {
				return err
			}
			updated++
			log.Debug().Int64("source_id", src.ID).Str("url", src.URL).Msg("Source updated")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile sources: %w", err)
	}

	log.Info().
		Int("declared", len(declared)).
		Int("created", len(created)).
		Int("updated", updated).
		Int("skipped", skipped).
		Msg("Source list reconciled")
	return created, nil
}

func normalize(d Declared) (*models.Source, error) {
	src := models.NewSource()
	src.URL = strings.TrimSpace(d.URL)
	if src.URL == "" {
		return nil, fmt.Errorf("empty url")
	}
	src.Name = strings.TrimSpace(d.Name)
	if src.Name == "" {
		src.Name = src.URL
	}
	if d.Type != "" {
		src.Type = models.SourceType(strings.ToLower(strings.TrimSpace(string(d.Type))))
	}
	if !src.Type.Valid() {
		return nil, fmt.Errorf("unknown source type %q", d.Type)
	}
	if lang := strings.TrimSpace(d.Language); lang != "" {
		src.Language = strings.ToLower(lang)
	}
	if d.ReliabilityWeight != nil {
		w := *d.ReliabilityWeight
		if w < 0 || w > 1 {
			return nil, fmt.Errorf("reliability weight %v outside [0,1]", w)
		}
		src.TrustWeight = w
	}
	if d.IsActive != nil {
		src.Active = *d.IsActive
	}
	return src, nil
}

func changed(existing, declared *models.Source) bool {
	return existing.Name != declared.Name ||
		existing.Type != declared.Type ||
		existing.Language != declared.Language ||
		existing.TrustWeight != declared.TrustWeight ||
		existing.Active != declared.Active
}
