package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/hlog"

	"reddot-watch/newsdesk/internal/errs"
	"reddot-watch/newsdesk/internal/generate"
	"reddot-watch/newsdesk/internal/models"
	"reddot-watch/newsdesk/internal/server/pagination"
	"reddot-watch/newsdesk/internal/storage"
)

// ClusterListResponse is a page of cluster summaries.
type ClusterListResponse struct {
	Clusters   []models.ClusterSummary `json:"clusters"`
	NextCursor *string                 `json:"next_cursor,omitempty"`
}

// ClustersHandler serves cluster listings and content generation.
type ClustersHandler struct {
	store     *storage.Store
	generator *generate.Generator
}

// NewClustersHandler creates a new handler instance.
func NewClustersHandler(store *storage.Store, generator *generate.Generator) *ClustersHandler {
	return &ClustersHandler{store: store, generator: generator}
}

// List returns clusters newest first, optionally filtered by status.
func (h *ClustersHandler) List(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	query := r.URL.Query()

	filter := storage.ClusterFilter{Limit: storage.DefaultListLimit}
	if status := query.Get("status"); status != "" {
		filter.Status = models.ClusterStatus(status)
		if !filter.Status.Valid() {
			writeError(w, r, errs.Wrap(errs.ErrValidation, "list clusters", fmt.Sprintf("unknown status %q", status), nil))
			return
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 || limit > storage.MaxListLimit {
			log.Warn().Str("limit", limitStr).Msg("Invalid 'limit' parameter value")
			writeError(w, r, errs.Wrap(errs.ErrValidation, "list clusters",
				fmt.Sprintf("limit must be between 1 and %d", storage.MaxListLimit), nil))
			return
		}
		filter.Limit = limit
	}
	pageSize := filter.Limit
	if cursorStr := query.Get("cursor"); cursorStr != "" {
		cursor, err := pagination.Decode(cursorStr)
		if err != nil {
			log.Warn().Err(err).Str("cursor", cursorStr).Msg("Invalid 'cursor' parameter")
			writeError(w, r, errs.Wrap(errs.ErrValidation, "list clusters", "invalid cursor", err))
			return
		}
		filter.BeforeAt, filter.BeforeID = &cursor.At, cursor.ID
	}

	// Fetch one extra row to learn whether another page exists.
	filter.Limit = pageSize + 1
	clusters, err := h.store.ListClusters(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := ClusterListResponse{Clusters: clusters}
	if resp.Clusters == nil {
		resp.Clusters = []models.ClusterSummary{}
	}
	if len(clusters) > pageSize {
		resp.Clusters = clusters[:pageSize]
		last := resp.Clusters[pageSize-1]
		next := pagination.Cursor{At: last.CreatedAt, ID: last.ID}.Encode()
		resp.NextCursor = &next
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// Get returns one cluster with its items, contents and drafts.
func (h *ClustersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	detail, err := h.store.ClusterDetail(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, detail)
}

// GenerateBrief stores a new brief for the cluster.
func (h *ClustersHandler) GenerateBrief(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	brief, err := h.generator.GenerateBrief(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, brief)
}

// GenerateArticle stores a new article draft for the cluster.
func (h *ClustersHandler) GenerateArticle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	draft, err := h.generator.GenerateArticleDraft(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, draft)
}
