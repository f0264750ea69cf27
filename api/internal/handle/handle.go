package handle

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"first-aid/api/internal/analyze"
	"first-aid/api/internal/injury"
	"first-aid/api/internal/store"
	"first-aid/api/internal/vision"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const defaultDeadline = 60 * time.Second

// Analyzer is the part of analyze.Service the HTTP layer needs.
type Analyzer interface {
	Analyze(ctx context.Context, req analyze.Request) (analyze.Result, error)
	FromSignal(sig injury.Signal) injury.Bundle
	Get(ctx context.Context, id uuid.UUID) (*store.AnalysisRow, error)
	Recent(ctx context.Context, limit int) ([]store.AnalysisRow, error)
}

type Handle struct {
	engs     *vision.Engines
	svc      Analyzer
	deadline time.Duration
	fontPath string
}

func New(engs *vision.Engines, svc Analyzer) *Handle {
	return &Handle{engs: engs, svc: svc, deadline: defaultDeadline}
}

// WithDeadline sets the default per-request model deadline.
func (h *Handle) WithDeadline(d time.Duration) *Handle {
	if d > 0 {
		h.deadline = d
	}
	return h
}

// WithFontPath sets the TTF font used for PDF cards.
func (h *Handle) WithFontPath(p string) *Handle {
	h.fontPath = p
	return h
}

func (h *Handle) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1/injury", func(r chi.Router) {
		r.Post("/analyze", h.Analyze)
		r.Post("/classify", h.Classify)
		r.Get("/steps", h.Steps)
		r.Get("/history", h.History)
		r.Get("/{id}/card.pdf", h.Card)
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// requestDeadline reads X-Request-Timeout, then ?timeoutSec, in seconds.
func (h *Handle) requestDeadline(r *http.Request) time.Duration {
	for _, ts := range []string{r.Header.Get("X-Request-Timeout"), r.URL.Query().Get("timeoutSec")} {
		if ts == "" {
			continue
		}
		if v, _ := strconv.Atoi(ts); v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	return h.deadline
}
