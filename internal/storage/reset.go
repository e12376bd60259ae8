package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ResetCounts reports how many rows a reset removed per table.
type ResetCounts struct {
	Links    int64 `json:"links"`
	Contents int64 `json:"contents"`
	Drafts   int64 `json:"drafts"`
	Clusters int64 `json:"clusters"`
	Items    int64 `json:"items"`
	Sources  int64 `json:"sources"`
}

// Reset clears the pipeline in dependency order inside one transaction.
// Published articles are kept.
func (s *Store) Reset(ctx context.Context) (ResetCounts, error) {
	var counts ResetCounts
	steps := []struct {
		table string
		dest  *int64
	}{
		{"cluster_items", &counts.Links},
		{"generated_contents", &counts.Contents},
		{"drafts", &counts.Drafts},
		{"clusters", &counts.Clusters},
		{"items", &counts.Items},
		{"sources", &counts.Sources},
	}

	err := s.InTx(ctx, func(tx *Tx) error {
		for _, step := range steps {
			res, err := tx.ext.ExecContext(ctx, "DELETE FROM "+step.table)
			if err != nil {
				return fmt.Errorf("reset %s: %w", step.table, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("reset %s: rows affected: %w", step.table, err)
			}
			*step.dest = n
		}
		return nil
	})
	if err != nil {
		return ResetCounts{}, err
	}

	log.Info().
		Int64("links", counts.Links).
		Int64("contents", counts.Contents).
		Int64("drafts", counts.Drafts).
		Int64("clusters", counts.Clusters).
		Int64("items", counts.Items).
		Int64("sources", counts.Sources).
		Msg("Pipeline reset complete")
	return counts, nil
}
