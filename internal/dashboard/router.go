package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterConfig configures NewRouter.
type RouterConfig struct {
	AllowedOrigins []string
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// NewRouter builds the dashboard HTTP API.
func NewRouter(svc *Service, rc RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: rc.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if rc.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", rc.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", func(w http.ResponseWriter, req *http.Request) {
			ov, err := svc.Overview(req.Context())
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, ov)
		})
		r.Get("/profiles", func(w http.ResponseWriter, req *http.Request) {
			profiles, err := svc.Search(req.Context(), req.URL.Query().Get("q"))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, profiles)
		})
		r.Get("/profiles/{identifier}", func(w http.ResponseWriter, req *http.Request) {
			id := chi.URLParam(req, "identifier")
			p, err := svc.Profile(req.Context(), id)
			if err != nil {
				writeError(w, err)
				return
			}
			if p == nil {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "profile not found: " + id})
				return
			}
			writeJSON(w, http.StatusOK, p)
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("dashboard: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNoData) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": ErrNoData.Error()})
		return
	}
	zap.L().Error("dashboard: request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
