package api

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"reddot-watch/newsdesk/internal/cluster"
	"reddot-watch/newsdesk/internal/fetch"
	"reddot-watch/newsdesk/internal/jobs"
	"reddot-watch/newsdesk/internal/process"
	"reddot-watch/newsdesk/internal/registry"
	"reddot-watch/newsdesk/internal/storage"
)

// SourceLoader returns the declared source list reconciled before ingestion.
type SourceLoader func(ctx context.Context) ([]registry.Declared, error)

// JobResponse wraps the result of a pipeline job.
type JobResponse struct {
	RunID  string `json:"run_id"`
	Result any    `json:"result"`
}

// IngestURLsRequest is the body of POST /jobs/ingest-urls.
type IngestURLsRequest struct {
	URLs []string `json:"urls"`
}

// JobsHandler triggers the pipeline-mutating jobs. They all share one lock.
type JobsHandler struct {
	lock      *jobs.Lock
	store     *storage.Store
	ingester  *process.Ingester
	manual    *fetch.ManualFetcher
	clusterer *cluster.Clusterer
	sources   SourceLoader
}

// NewJobsHandler creates a new handler instance.
func NewJobsHandler(lock *jobs.Lock, store *storage.Store, ingester *process.Ingester, manual *fetch.ManualFetcher, clusterer *cluster.Clusterer, sources SourceLoader) *JobsHandler {
	return &JobsHandler{lock: lock, store: store, ingester: ingester, manual: manual, clusterer: clusterer, sources: sources}
}

// Ingest reconciles the declared sources and fetches every active one.
func (h *JobsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "ingest", func(ctx context.Context) (any, error) {
		var declared []registry.Declared
		if h.sources != nil {
			var err error
			if declared, err = h.sources(ctx); err != nil {
				return nil, err
			}
		}
		return h.ingester.Run(ctx, declared)
	})
}

// IngestURLs stores operator-submitted URLs.
func (h *JobsHandler) IngestURLs(w http.ResponseWriter, r *http.Request) {
	var req IngestURLsRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	h.run(w, r, "ingest-urls", func(ctx context.Context) (any, error) {
		outcomes, err := h.manual.Submit(ctx, req.URLs)
		if err != nil {
			return nil, err
		}
		return map[string]any{"outcomes": outcomes}, nil
	})
}

// Cluster groups recent unclustered items.
func (h *JobsHandler) Cluster(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "cluster", func(ctx context.Context) (any, error) {
		return h.clusterer.Run(ctx)
	})
}

// Reset deletes all pipeline state. Published articles are kept.
func (h *JobsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "reset", func(ctx context.Context) (any, error) {
		return h.store.Reset(ctx)
	})
}

func (h *JobsHandler) run(w http.ResponseWriter, r *http.Request, job string, fn func(ctx context.Context) (any, error)) {
	hlog.FromRequest(r).Debug().Str("job", job).Msg("Processing job request")

	var resp JobResponse
	err := h.lock.Run(r.Context(), job, func(ctx context.Context, runID string) error {
		result, err := fn(ctx)
		resp = JobResponse{RunID: runID, Result: result}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}
