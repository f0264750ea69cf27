package handle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"first-aid/api/internal/analyze"
	"first-aid/api/internal/injury"
	"first-aid/api/internal/report"
	"first-aid/api/internal/store"
	"first-aid/api/internal/util"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type AnalyzeRequest struct {
	LLMName  string `json:"llm_name"`
	ImageB64 string `json:"image_b64"`
	MIME     string `json:"mime,omitempty"`
}

func (h *Handle) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	img, hint, err := util.DecodeBase64MaybeDataURL(req.ImageB64)
	if err != nil || len(img) == 0 {
		writeError(w, http.StatusBadRequest, "bad image_b64")
		return
	}
	engine, err := h.engs.GetEngine(req.LLMName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestDeadline(r))
	defer cancel()

	res, err := h.svc.Analyze(ctx, analyze.Request{
		Image:  img,
		MIME:   util.PickMIME(req.MIME, hint, img),
		Engine: engine,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "analyze error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ClassifyRequest is a signal supplied by the client; bloodMentionCount is
// counted from tokens when absent.
type ClassifyRequest struct {
	injury.Signal
	BloodMentionCount *int `json:"bloodMentionCount,omitempty"`
}

func (h *Handle) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	sig := req.Signal
	sig.Tokens = injury.NormalizeTokens(sig.Tokens)
	sig.UpstreamSeverity = injury.ParseSeverity(string(sig.UpstreamSeverity))
	sig.UpstreamBloodLevel = injury.ParseBloodLevel(string(sig.UpstreamBloodLevel))
	if req.BloodMentionCount != nil {
		if *req.BloodMentionCount < 0 {
			writeError(w, http.StatusBadRequest, "bloodMentionCount must be >= 0")
			return
		}
		sig.BloodMentionCount = *req.BloodMentionCount
	} else {
		sig.BloodMentionCount = injury.CountBloodMentions(sig.Tokens)
	}
	writeJSON(w, http.StatusOK, h.svc.FromSignal(sig))
}

func (h *Handle) Steps(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cat, ok := injury.ParseCategory(q.Get("category"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}
	sev := injury.SeverityMedium
	if s := strings.TrimSpace(q.Get("severity")); s != "" {
		if sev = injury.ParseSeverity(s); sev == "" {
			writeError(w, http.StatusBadRequest, "severity must be low, medium or high")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category": cat,
		"severity": sev,
		"steps":    injury.GenerateSteps(cat, sev),
		"warning":  injury.Warning(sev),
	})
}

type historyItem struct {
	ID         uuid.UUID       `json:"id"`
	CreatedAt  time.Time       `json:"createdAt"`
	Engine     string          `json:"engine"`
	Model      string          `json:"model"`
	InjuryType injury.Category `json:"injuryType"`
	Severity   injury.Severity `json:"severity"`
	Confidence float64         `json:"probability"`
	FailSafe   bool            `json:"failSafe"`
}

func (h *Handle) History(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "bad limit")
			return
		}
		limit = v
	}
	rows, err := h.svc.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "history error: "+err.Error())
		return
	}
	out := make([]historyItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, historyItem{
			ID:         row.ID,
			CreatedAt:  row.CreatedAt,
			Engine:     row.Engine,
			Model:      row.Model,
			InjuryType: row.Bundle.InjuryType,
			Severity:   row.Bundle.Details.Severity,
			Confidence: row.Bundle.Probability,
			FailSafe:   row.FailSafe,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handle) Card(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad id")
		return
	}
	row, err := h.svc.Get(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
		return
	case errors.Is(err, analyze.ErrNoStore):
		writeError(w, http.StatusNotImplemented, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	pdf, err := report.Render(row.Bundle, report.Options{
		FontPath:    h.fontPath,
		GeneratedAt: row.CreatedAt,
		Reference:   row.ID.String(),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "pdf error: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="first-aid-%s.pdf"`, row.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
