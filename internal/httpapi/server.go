// Package httpapi exposes the query pipeline over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pumpside/fueldocs/internal/query"
)

// Asker is the query capability the handlers need.
type Asker interface {
	AskTopK(ctx context.Context, question string, k int) (*query.Answer, error)
}

// QueryRequest is the POST /query body.
type QueryRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

// QueryResponse is the POST /query reply.
type QueryResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
	Model   string   `json:"model"`
}

// NewRouter builds the HTTP router: POST /query plus a health probe.
func NewRouter(engine Asker, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	r.Post("/query", handleQuery(engine, logger))

	return r
}

func handleQuery(engine Asker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		answer, err := engine.AskTopK(r.Context(), req.Question, req.TopK)
		if err != nil {
			logger.Error("query failed", "error", err)
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(QueryResponse{
			Answer:  answer.Text,
			Sources: answer.Sources,
			Model:   answer.ModelSlug,
		})
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
