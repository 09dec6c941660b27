// Package server exposes the agent tool surface over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/bloodstock/internal/agent"
)

// Tools is the tool surface served over HTTP.
type Tools interface {
	NormalizeLocation(text string) agent.NormalizeResponse
	FetchStock(ctx context.Context, location, bloodGroup, bloodComponent string) string
	Locations() (string, error)
}

// Options configures the router.
type Options struct {
	// AllowedOrigins for CORS. Empty allows every origin.
	AllowedOrigins []string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

type stockRequest struct {
	Location       string `json:"location"`
	BloodGroup     string `json:"blood_group"`
	BloodComponent string `json:"blood_component"`
}

// NewRouter builds the HTTP routes over tools.
func NewRouter(tools Tools, opts Options) http.Handler {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/locations", func(w http.ResponseWriter, _ *http.Request) {
		out, err := tools.Locations()
		if err != nil {
			zap.L().Error("server: locations", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to render locations"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(out))
	})

	r.Get("/normalize", func(w http.ResponseWriter, r *http.Request) {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		if q == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
			return
		}
		writeJSON(w, http.StatusOK, tools.NormalizeLocation(q))
	})

	r.Post("/stock", func(w http.ResponseWriter, r *http.Request) {
		var req stockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if strings.TrimSpace(req.Location) == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "location is required"})
			return
		}

		out := tools.FetchStock(r.Context(), req.Location, req.BloodGroup, req.BloodComponent)
		switch {
		case strings.HasPrefix(out, "["):
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
		case strings.HasPrefix(out, agent.AmbiguousPrefix):
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusConflict)
		case strings.HasPrefix(out, agent.ErrorPrefix):
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusUnprocessableEntity)
		default:
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
		}
		_, _ = w.Write([]byte(out))
	})

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			zap.L().Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
