// Package cluster groups recent unclustered items into story clusters by
// title similarity.
package cluster

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"reddot-watch/newsdesk/internal/storage"
	"reddot-watch/newsdesk/internal/textutil"
)

const (
	DefaultWindow    = 48 * time.Hour
	DefaultThreshold = 80
)

// Options tunes a Clusterer.
type Options struct {
	Window    time.Duration
	Threshold int
	Aliases   *textutil.Aliases
	Now       func() time.Time
}

// Result counts what one run did.
type Result struct {
	Created int `json:"created"`
	Linked  int `json:"linked"`
}

// Clusterer links items to the most similar recent cluster or founds a new one.
//
// Items are processed oldest first and clusters created during a run are
// candidates for the items that follow, so the outcome depends on input order.
// Each run compares every item against every member of every candidate cluster.
// A title whose tokens all appear in a member title scores 100 only when they
// share at least textutil.MinSharedTokens tokens.
type Clusterer struct {
	store *storage.Store
	opts  Options
}

type candidate struct {
	id      int64
	members [][]string
}

// New creates a Clusterer.
func New(store *storage.Store, opts Options) *Clusterer {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Clusterer{store: store, opts: opts}
}

// Run clusters every unclustered item fetched within the window.
func (c *Clusterer) Run(ctx context.Context) (Result, error) {
	var result Result
	now := c.opts.Now().UTC()
	since := now.Add(-c.opts.Window)

	items, err := c.store.UnclusteredItemsSince(ctx, since)
	if err != nil {
		return result, err
	}
	candidates, err := c.loadCandidates(ctx, since)
	if err != nil {
		return result, err
	}
	log.Debug().
		Int("items", len(items)).
		Int("candidate_clusters", len(candidates)).
		Time("since", since).
		Msg("Clustering recent items")

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		tokens := textutil.TitleTokens(item.Title, c.opts.Aliases)

		var best *candidate
		bestScore := -1
		for _, cand := range candidates {
			for _, member := range cand.members {
				if score := textutil.TokenSetRatio(tokens, member); score > bestScore {
					best, bestScore = cand, score
				}
			}
		}

		if best != nil && bestScore >= c.opts.Threshold {
			score := float64(bestScore)
			err := c.store.InTx(ctx, func(tx *storage.Tx) error {
				return tx.LinkItem(ctx, best.id, item.ID, &score, item.Title, now)
			})
			if err != nil {
				return result, fmt.Errorf("link item %d: %w", item.ID, err)
			}
			best.members = append(best.members, tokens)
			result.Linked++
			log.Debug().Int64("item_id", item.ID).Int64("cluster_id", best.id).Int("score", bestScore).Msg("Item linked")
			continue
		}

		var clusterID int64
		err := c.store.InTx(ctx, func(tx *storage.Tx) error {
			var err error
			if clusterID, err = tx.CreateCluster(ctx, item.Title, now); err != nil {
				return err
			}
			return tx.LinkItem(ctx, clusterID, item.ID, nil, item.Title, now)
		})
		if err != nil {
			return result, fmt.Errorf("create cluster for item %d: %w", item.ID, err)
		}
		candidates = append(candidates, &candidate{id: clusterID, members: [][]string{tokens}})
		result.Created++
		log.Debug().Int64("item_id", item.ID).Int64("cluster_id", clusterID).Int("best_score", bestScore).Msg("Cluster created")
	}

	log.Info().Int("created", result.Created).Int("linked", result.Linked).Msg("Clustering complete")
	return result, nil
}

func (c *Clusterer) loadCandidates(ctx context.Context, since time.Time) ([]*candidate, error) {
	rows, err := c.store.CandidateMembers(ctx, since)
	if err != nil {
		return nil, err
	}
	var candidates []*candidate
	byID := make(map[int64]*candidate)
	for _, row := range rows {
		cand, ok := byID[row.ClusterID]
		if !ok {
			cand = &candidate{id: row.ClusterID}
			byID[row.ClusterID] = cand
			candidates = append(candidates, cand)
		}
		cand.members = append(cand.members, textutil.TitleTokens(row.Title, c.opts.Aliases))
	}
	return candidates, nil
}
