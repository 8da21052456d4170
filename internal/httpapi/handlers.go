package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mhollis/appraisal-engine/internal/report"
	"github.com/mhollis/appraisal-engine/internal/store"
	"github.com/mhollis/appraisal-engine/internal/valuation"
)

const maxRequestBody = 1 << 20 // 1 MiB

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) decodeValuationRequest(w http.ResponseWriter, r *http.Request) (valuation.Request, bool) {
	blob, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return valuation.Request{}, false
	}
	if err := validateRequestBlob(blob); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return valuation.Request{}, false
	}
	var req valuation.Request
	if err := json.Unmarshal(blob, &req); err != nil {
		writeError(w, http.StatusBadRequest, "decode request: "+err.Error())
		return valuation.Request{}, false
	}
	return req, true
}

// handleValuate runs the engine without persisting anything.
func (s *Server) handleValuate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeValuationRequest(w, r)
	if !ok {
		return
	}
	res, err := s.valuate(r.Context(), req)
	if err != nil {
		writeJSON(w, statusForError(err), valuation.BuildEnvelope(res, err))
		return
	}
	writeJSON(w, http.StatusOK, valuation.BuildEnvelope(res, nil))
}

// handleCreateAppraisal runs the engine and stores the run as an appraisal
// record. A failed valuation stores nothing.
func (s *Server) handleCreateAppraisal(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeValuationRequest(w, r)
	if !ok {
		return
	}
	res, err := s.valuate(r.Context(), req)
	if err != nil {
		writeJSON(w, statusForError(err), valuation.BuildEnvelope(res, err))
		return
	}
	a, err := s.store.CreateAppraisal(*req.Subject, req.Comparables, &res)
	if err != nil {
		s.logger.Error("create appraisal", "error", err)
		writeError(w, http.StatusInternalServerError, "persist appraisal: "+err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleListAppraisals(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	offset := parseInt(r.URL.Query().Get("offset"), 0)

	items, total, err := s.store.ListAppraisals(limit, offset)
	if err != nil {
		s.logger.Error("list appraisals", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (s *Server) handleGetAppraisal(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadAppraisal(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleDeleteAppraisal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteAppraisal(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "appraisal not found")
			return
		}
		s.logger.Error("delete appraisal", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleNarrative generates the LLM narrative for a stored appraisal and
// persists it, replacing any earlier one.
func (s *Server) handleNarrative(w http.ResponseWriter, r *http.Request) {
	if s.narrator == nil {
		writeError(w, http.StatusServiceUnavailable, "narrative generation is not configured")
		return
	}
	a, ok := s.loadAppraisal(w, r)
	if !ok {
		return
	}
	if a.Result == nil {
		writeError(w, http.StatusConflict, "appraisal has no valuation result")
		return
	}

	out, err := s.narrator.Generate(r.Context(), a.Subject, *a.Result)
	if err != nil {
		s.logger.Error("generate narrative", "id", a.ID, "error", err)
		writeError(w, http.StatusBadGateway, "narrative generation failed: "+err.Error())
		return
	}
	saved, err := s.store.SaveNarrative(a.ID, store.Narrative{
		Summary:    out.Summary,
		KeyFactors: out.KeyFactors,
		Caveats:    out.Caveats,
		Model:      s.narrator.ModelName(),
	})
	if err != nil {
		s.logger.Error("save narrative", "id", a.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "persist narrative: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// handleReport renders the appraisal as markdown, or HTML with ?format=html.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadAppraisal(w, r)
	if !ok {
		return
	}
	md := report.BuildMarkdown(a)

	if r.URL.Query().Get("format") == "html" {
		htmlDoc, err := report.RenderHTML(md)
		if err != nil {
			s.logger.Error("render report html", "id", a.ID, "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, htmlDoc)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, md)
}

func (s *Server) loadAppraisal(w http.ResponseWriter, r *http.Request) (store.Appraisal, bool) {
	id := chi.URLParam(r, "id")
	a, err := s.store.GetAppraisal(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "appraisal not found")
			return store.Appraisal{}, false
		}
		s.logger.Error("load appraisal", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return store.Appraisal{}, false
	}
	return a, true
}
