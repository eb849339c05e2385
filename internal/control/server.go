package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// DefaultPort is the control server's default listen port.
const DefaultPort = 8788

// RunRequest is the body of POST /run.
type RunRequest struct {
	Agent string   `json:"agent"`
	Args  []string `json:"args"`
}

// NewRouter returns the control API. Jobs are bound to base rather than to
// the request that started them.
func NewRouter(base context.Context, reg *Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, reg.Status())
	})

	r.Post("/run", func(w http.ResponseWriter, req *http.Request) {
		var body RunRequest
		if req.ContentLength != 0 {
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
		}
		if body.Agent == "" {
			body.Agent = "enrich"
		}

		err := reg.Start(base, body.Agent, body.Args)
		var busy *BusyError
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, map[string]string{"status": "started", "agent": body.Agent})
		case errors.As(err, &busy):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "agent already running", "agent": busy.Agent})
		case errors.Is(err, ErrUnknownAgent):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown agent", "agent": body.Agent})
		default:
			zap.L().Error("control: start failed", zap.String("agent", body.Agent), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not start agent"})
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("control: write response", zap.Error(err))
	}
}
