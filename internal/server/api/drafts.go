package api

import (
	"net/http"

	"reddot-watch/newsdesk/internal/errs"
	"reddot-watch/newsdesk/internal/models"
	"reddot-watch/newsdesk/internal/publish"
	"reddot-watch/newsdesk/internal/storage"
)

// DraftsHandler serves draft review and publication.
type DraftsHandler struct {
	store     *storage.Store
	publisher *publish.Publisher
}

// NewDraftsHandler creates a new handler instance.
func NewDraftsHandler(store *storage.Store, publisher *publish.Publisher) *DraftsHandler {
	return &DraftsHandler{store: store, publisher: publisher}
}

// Get returns a draft.
func (h *DraftsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	draft, err := h.store.GetDraft(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, draft)
}

// Update edits an unpublished draft.
func (h *DraftsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch models.DraftPatch
	if err := decodeBody(w, r, &patch, false); err != nil {
		writeError(w, r, err)
		return
	}
	if patch.Empty() {
		writeError(w, r, errs.Wrap(errs.ErrValidation, "update draft", "nothing to update", nil))
		return
	}
	draft, err := h.store.UpdateDraft(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, draft)
}

// Publish promotes the draft to a public article.
func (h *DraftsHandler) Publish(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	article, err := h.publisher.Publish(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, article)
}
