package runtime

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

func (r *Runtime) routes() http.Handler {
	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: r.cfg.HTTP.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	router.Get("/healthz", r.handleHealth)
	router.Get("/readyz", r.handleReady)
	if r.metrics != nil {
		router.Method(http.MethodGet, "/metrics", r.metrics)
	}

	router.Post("/listen", r.handleListen)
	router.Get("/language", r.handleGetLanguage)
	router.Put("/language", r.handleSetLanguage)
	router.Get("/translation", r.handleTranslation)
	router.Post("/translate", r.handleTranslate)
	router.Post("/detect-translate", r.handleTranslate)
	return router
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

// handleListen starts one capture session and returns immediately; the
// outcome only ever shows up on the display surface.
func (r *Runtime) handleListen(w http.ResponseWriter, _ *http.Request) {
	task := r.pipeline.Listen()
	writeJSON(w, http.StatusAccepted, map[string]string{"language": task.Language})
}

func (r *Runtime) handleGetLanguage(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"language":        r.selector.Value(),
		"speech_language": r.pipeline.Listener().Language(),
	})
}

func (r *Runtime) handleSetLanguage(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Language string `json:"language"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	r.selector.Set(body.Language)
	w.WriteHeader(http.StatusNoContent)
}

func (r *Runtime) handleTranslation(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"text": r.view.Text()})
}

// handleTranslate is a synchronous lookup that bypasses the display. The
// provider detects the source language.
func (r *Runtime) handleTranslate(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Text       string `json:"text"`
		TargetLang string `json:"target_lang"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No text provided"})
		return
	}
	target := body.TargetLang
	if target == "" {
		target = r.selector.Value()
	}

	result, err := r.pipeline.Requester().Lookup(req.Context(), body.Text, target)
	if err != nil {
		r.logger.Warn("translate lookup failed", slogError(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "translation failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"detected_language": result.DetectedLanguage,
		"translated_text":   result.Text,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
