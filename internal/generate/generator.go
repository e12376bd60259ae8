// Package generate drafts briefs and articles from story clusters.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"reddot-watch/newsdesk/internal/errs"
	"reddot-watch/newsdesk/internal/models"
	"reddot-watch/newsdesk/internal/storage"
	"reddot-watch/newsdesk/internal/textutil"
)

const (
	briefTemperature   = 0.3
	briefMaxTokens     = 512
	articleTemperature = 0.4
	articleMaxTokens   = 2048

	maxSlugAttempts = 100

	// BriefPlaceholder is stored when the backend returns nothing.
	BriefPlaceholder = "Brief indisponible : le générateur n'a renvoyé aucun texte pour ce sujet."
	// GenericExcerpt is used when the article payload carries no excerpt.
	GenericExcerpt = "Retrouvez l'essentiel de l'actualité du Paris Saint-Germain."
)

// Generator renders prompts from cluster sources and stores the results.
type Generator struct {
	store     *storage.Store
	backend   Backend
	fallback  Backend
	templates Templates
}

// New creates a generator. A nil backend uses the placeholder.
func New(store *storage.Store, backend Backend, templates Templates) *Generator {
	if backend == nil {
		backend = Placeholder{}
	}
	return &Generator{store: store, backend: backend, fallback: Placeholder{}, templates: templates}
}

// GenerateBrief stores a new brief for a cluster. The cluster status is not changed.
func (g *Generator) GenerateBrief(ctx context.Context, clusterID int64) (*models.GeneratedContent, error) {
	if _, err := g.store.GetCluster(ctx, clusterID); err != nil {
		return nil, err
	}
	members, err := g.store.ClusterMembers(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	prompt := Render(g.templates.Brief, map[string]string{"sources": formatSources(members)})
	text, _, err := g.complete(ctx, clusterID, prompt, briefTemperature, briefMaxTokens)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		text = BriefPlaceholder
	}

	content := &models.GeneratedContent{ClusterID: clusterID, Kind: models.ContentKindBrief, Content: strings.TrimSpace(text)}
	if err := g.store.InsertContent(ctx, content); err != nil {
		return nil, err
	}
	log.Info().Int64("cluster_id", clusterID).Int64("content_id", content.ID).Msg("Brief generated")
	return content, nil
}

// GenerateArticleDraft stores a new draft for a cluster and moves the cluster
// from pending to draft.
func (g *Generator) GenerateArticleDraft(ctx context.Context, clusterID int64) (*models.Draft, error) {
	cluster, err := g.store.GetCluster(ctx, clusterID)
	if err != nil {
		return nil, err
	}
	members, err := g.store.ClusterMembers(ctx, clusterID)
	if err != nil {
		return nil, err
	}
	brief, err := g.store.LatestBrief(ctx, clusterID)
	if err != nil {
		return nil, err
	}
	briefText := bulletList(members)
	if brief != nil && strings.TrimSpace(brief.Content) != "" {
		briefText = brief.Content
	}

	prompt := Render(g.templates.Article, map[string]string{
		"sources": formatSources(members),
		"brief":   briefText,
	})
	raw, offline, err := g.complete(ctx, clusterID, prompt, articleTemperature, articleMaxTokens)
	if err != nil {
		return nil, err
	}

	var payload articlePayload
	if !offline {
		payload = parseArticlePayload(raw)
	}
	draft := &models.Draft{
		ClusterID: clusterID,
		Title:     firstNonEmpty(payload.Title, cluster.TopicTitle),
		Excerpt:   firstNonEmpty(payload.Excerpt, GenericExcerpt),
		Sources:   payload.Sources,
		Status:    models.DraftPending,
	}
	if len(draft.Sources) == 0 {
		draft.Sources = sourceRefs(members)
	}
	if payload.ImageURL != "" {
		draft.ImageURL = &payload.ImageURL
	}
	body := payload.Content
	if !payload.Parsed {
		body = strings.TrimSpace(raw)
	}
	if body == "" {
		body = briefText
	}
	draft.Content = ensureSourcesSection(body, draft.Sources)

	if err := g.insertWithUniqueSlug(ctx, draft, payload.Category); err != nil {
		return nil, err
	}
	log.Info().
		Int64("cluster_id", clusterID).
		Int64("draft_id", draft.ID).
		Str("slug", draft.Slug).
		Bool("structured", payload.Parsed).
		Msg("Article draft generated")
	return draft, nil
}

// complete calls the backend and falls back to the placeholder when the
// backend is unavailable. offline reports whether the placeholder answered.
func (g *Generator) complete(ctx context.Context, clusterID int64, prompt string, temperature float64, maxTokens int) (text string, offline bool, err error) {
	if _, ok := g.backend.(Placeholder); ok {
		text, err = g.backend.Generate(ctx, prompt, temperature, maxTokens)
		return text, true, err
	}
	text, err = g.backend.Generate(ctx, prompt, temperature, maxTokens)
	if err == nil {
		return text, false, nil
	}
	if errors.Is(err, errs.ErrBackendUnavailable) {
		log.Warn().Err(err).Int64("cluster_id", clusterID).Msg("Generation backend unavailable, using placeholder")
		text, err = g.fallback.Generate(ctx, prompt, temperature, maxTokens)
		return text, true, err
	}
	if errors.Is(err, errs.ErrBackend) {
		return "", false, err
	}
	return "", false, errs.Wrap(errs.ErrBackend, "generate", fmt.Sprintf("cluster %d", clusterID), err)
}

func (g *Generator) insertWithUniqueSlug(ctx context.Context, draft *models.Draft, category string) error {
	base := textutil.Slugify(draft.Title, textutil.DefaultSlugLength)
	for n := 1; n <= maxSlugAttempts; n++ {
		slug := slugCandidate(base, n)
		taken, err := g.store.SlugExists(ctx, slug)
		if err != nil {
			return err
		}
		if taken {
			continue
		}
		draft.Slug = slug

		err = g.store.InTx(ctx, func(tx *storage.Tx) error {
			if err := tx.InsertDraft(ctx, draft); err != nil {
				return err
			}
			if category != "" {
				if err := tx.SetClusterCategory(ctx, draft.ClusterID, category); err != nil {
					return err
				}
			}
			return tx.AdvanceClusterStatus(ctx, draft.ClusterID, models.ClusterDraft)
		})
		if errors.Is(err, storage.ErrSlugTaken) {
			continue
		}
		return err
	}
	return fmt.Errorf("no free slug for %q after %d attempts", base, maxSlugAttempts)
}

// slugCandidate returns base for n == 1 and base-n otherwise, keeping the
// result within the slug length bound.
func slugCandidate(base string, n int) string {
	if n <= 1 {
		return base
	}
	suffix := "-" + strconv.Itoa(n)
	limit := textutil.DefaultSlugLength - len(suffix)
	if len(base) > limit {
		base = strings.TrimRight(base[:limit], "-")
	}
	return base + suffix
}

func sourceRefs(members []models.ClusterMember) models.SourceRefs {
	refs := make(models.SourceRefs, 0, len(members))
	for _, m := range members {
		refs = append(refs, models.SourceRef{Name: m.SourceName, URL: m.URL, Date: memberDate(m)})
	}
	return refs
}

func memberDate(m models.ClusterMember) string {
	t := m.FetchedAt
	if m.PublishedAt != nil {
		t = *m.PublishedAt
	}
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}

// formatSources renders one line per member for the {{sources}} placeholder.
func formatSources(members []models.ClusterMember) string {
	if len(members) == 0 {
		return "(aucune source)"
	}
	lines := make([]string, 0, len(members))
	for _, m := range members {
		line := fmt.Sprintf("- %s | %s | %s | %s", m.SourceName, m.Title, m.URL, memberDate(m))
		if m.Excerpt != nil && strings.TrimSpace(*m.Excerpt) != "" {
			line += "\n  " + strings.TrimSpace(*m.Excerpt)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// bulletList stands in for a brief when the cluster has none.
func bulletList(members []models.ClusterMember) string {
	lines := make([]string, 0, len(members))
	for _, m := range members {
		lines = append(lines, fmt.Sprintf("- %s (%s)", m.Title, m.SourceName))
	}
	return strings.Join(lines, "\n")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
