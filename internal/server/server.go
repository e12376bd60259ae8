package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"reddot-watch/newsdesk/internal/server/api"
)

// Handlers groups the API handlers mounted by the server.
type Handlers struct {
	Jobs     *api.JobsHandler
	Clusters *api.ClustersHandler
	Drafts   *api.DraftsHandler
}

// bearerAuthMiddleware requires "Authorization: Bearer <token>". With no token
// configured every request is refused.
func bearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := hlog.FromRequest(r)
			if token == "" {
				log.Warn().Msg("Rejected request: no API token configured")
				unauthorized(w, "API token not configured")
				return
			}

			scheme, given, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(given) == "" {
				unauthorized(w, "Bearer token required")
				return
			}
			if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(given)), []byte(token)) != 1 {
				log.Warn().Msg("Rejected request: invalid token")
				unauthorized(w, "Invalid token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="newsdesk"`)
	http.Error(w, message, http.StatusUnauthorized)
}

// NewHandler builds the routed handler with logging middleware. Every route
// except /health sits behind the bearer token gate.
func NewHandler(h Handlers, logger zerolog.Logger, token string) http.Handler {
	pipeline := http.NewServeMux()
	pipeline.HandleFunc("POST /jobs/ingest", h.Jobs.Ingest)
	pipeline.HandleFunc("POST /jobs/ingest-urls", h.Jobs.IngestURLs)
	pipeline.HandleFunc("POST /jobs/cluster", h.Jobs.Cluster)
	pipeline.HandleFunc("POST /jobs/reset", h.Jobs.Reset)
	pipeline.HandleFunc("GET /clusters", h.Clusters.List)
	pipeline.HandleFunc("GET /clusters/{id}", h.Clusters.Get)
	pipeline.HandleFunc("POST /clusters/{id}/generate-brief", h.Clusters.GenerateBrief)
	pipeline.HandleFunc("POST /clusters/{id}/generate-article", h.Clusters.GenerateArticle)
	pipeline.HandleFunc("GET /drafts/{id}", h.Drafts.Get)
	pipeline.HandleFunc("POST /drafts/{id}", h.Drafts.Get)
	pipeline.HandleFunc("PATCH /drafts/{id}", h.Drafts.Update)
	pipeline.HandleFunc("POST /drafts/{id}/publish", h.Drafts.Publish)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthCheckHandler)
	mux.Handle("/", bearerAuthMiddleware(token)(pipeline))

	// Set up middleware chain for logging and request tracking
	handler := hlog.NewHandler(logger)(mux)
	handler = hlog.MethodHandler("method")(handler)
	handler = hlog.URLHandler("url")(handler)
	handler = hlog.RemoteAddrHandler("remote_addr")(handler)
	handler = hlog.UserAgentHandler("user_agent")(handler)
	handler = hlog.RequestIDHandler("req_id", "Request-Id")(handler)
	handler = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		idReq, _ := hlog.IDFromRequest(r)

		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Str("req_id", idReq.String()).
			Msg("HTTP Request")
	})(handler)
	return handler
}

// RunServer serves the API until ctx is cancelled or SIGINT/SIGTERM arrives,
// then shuts down gracefully.
func RunServer(ctx context.Context, h Handlers, listenAddr string, logger zerolog.Logger, token string) error {
	logger = logger.With().Str("service", "newsdesk-api").Logger()
	if token == "" {
		logger.Warn().Msg("No API token configured, every pipeline endpoint will answer 401")
	}

	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           NewHandler(h, logger, token),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Jobs run inside the request, ingestion can take minutes.
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("address", listenAddr).Msg("API Server starting")
		err := httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErr:
		return err
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case <-ctx.Done():
		logger.Info().Msg("Context cancelled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
		if err := httpServer.Close(); err != nil {
			logger.Error().Err(err).Msg("HTTP server force close error")
		}
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}
	if err := <-serverErr; err != nil {
		logger.Error().Err(err).Msg("ListenAndServe error during shutdown")
	}

	logger.Info().Msg("Server exiting.")
	return nil
}

// healthCheckHandler responds to liveness checks with a plain 200 OK.
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	log.Debug().Msg("Health check request received")

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		log.Error().Err(err).Msg("Error writing health check response")
	}
}
