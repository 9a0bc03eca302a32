package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/lmpc/internal/storage"
	"github.com/kalambet/lmpc/internal/transcript"
)

// Deps holds dependencies for the HTTP API.
type Deps struct {
	Store *storage.Store
}

// NewHandler builds the read-only inspection API over the episode store.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", handleHealth())
	r.Get("/runs", handleListRuns(deps))
	r.Get("/runs/{id}", handleGetRun(deps))
	r.Get("/episodes", handleListEpisodes(deps))
	r.Get("/episodes/{id}", handleGetEpisode(deps))
	r.Get("/metrics", handleMetrics(deps))
	r.Get("/export", handleExport(deps))

	return r
}

func handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func handleListRuns(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)

		runs, err := deps.Store.ListRuns(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list runs: %v", err)
			return
		}
		if runs == nil {
			runs = []storage.Run{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(runs)
	}
}

func handleGetRun(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		run, err := deps.Store.GetRun(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "run not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get run: %v", err)
			return
		}

		episodes, err := deps.Store.ListEpisodesByRun(id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list run episodes: %v", err)
			return
		}
		if episodes == nil {
			episodes = []storage.Episode{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"run":      run,
			"episodes": episodes,
		})
	}
}

func handleListEpisodes(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		speaker := r.URL.Query().Get("speaker")
		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)

		episodes, err := deps.Store.ListEpisodes(speaker, limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list episodes: %v", err)
			return
		}
		if episodes == nil {
			episodes = []storage.Episode{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(episodes)
	}
}

func handleGetEpisode(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		ep, err := deps.Store.GetEpisode(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "episode not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get episode: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ep)
	}
}

func handleMetrics(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics, err := deps.Store.Metrics()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to compute metrics: %v", err)
			return
		}
		if metrics == nil {
			metrics = []storage.Metric{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(metrics)
	}
}

// handleExport streams stored episodes as fine-tuning JSONL. Query
// params: speaker filters by speaker name, success=true keeps only
// successful episodes, relabel rewrites every message to one role.
func handleExport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		speaker := r.URL.Query().Get("speaker")
		successOnly := r.URL.Query().Get("success") == "true"
		relabel := r.URL.Query().Get("relabel")
		if relabel != "" && relabel != transcript.RoleUser && relabel != transcript.RoleAssistant {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "relabel must be %q or %q", transcript.RoleUser, transcript.RoleAssistant)
			return
		}

		episodes, err := deps.Store.ListEpisodes(speaker, 0, 0)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list episodes: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/jsonl")
		enc := json.NewEncoder(w)
		for _, ep := range episodes {
			if successOnly && !ep.Success {
				continue
			}
			var msgs []transcript.Message
			if err := json.Unmarshal([]byte(ep.MessagesJSON), &msgs); err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "corrupt episode %s: %v", ep.ID, err)
				return
			}
			if relabel != "" {
				msgs = transcript.Relabel(msgs, relabel)
			}
			if err := enc.Encode(transcript.ExportRecord{Messages: msgs}); err != nil {
				return
			}
		}
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
