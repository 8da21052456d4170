// Package httpapi exposes the valuation engine and the appraisal store over
// HTTP. All routes live under /api/v1 and speak JSON; the valuation routes
// return the success/error/data envelope, error cases included.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mhollis/appraisal-engine/internal/narrative"
	"github.com/mhollis/appraisal-engine/internal/store"
	"github.com/mhollis/appraisal-engine/internal/valuation"
)

// Narrator generates a written narrative for a stored valuation. The
// server treats a nil Narrator as "not configured" and answers 503 on the
// narrative route.
type Narrator interface {
	Generate(ctx context.Context, subject valuation.SubjectDetails, result valuation.Result) (narrative.Output, error)
	ModelName() string
}

type Server struct {
	engine   *valuation.Engine
	store    *store.Store
	narrator Narrator
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewServer(engine *valuation.Engine, st *store.Store, narrator Narrator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:   engine,
		store:    st,
		narrator: narrator,
		logger:   logger,
		tracer:   otel.Tracer("github.com/mhollis/appraisal-engine/internal/httpapi"),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP, s.requestLogger, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Trace-ID"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/valuations", s.handleValuate)
		r.Route("/appraisals", func(r chi.Router) {
			r.Post("/", s.handleCreateAppraisal)
			r.Get("/", s.handleListAppraisals)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetAppraisal)
				r.Delete("/", s.handleDeleteAppraisal)
				r.Post("/narrative", s.handleNarrative)
				r.Get("/report", s.handleReport)
			})
		})
	})
	return r
}

// valuate runs the engine under its own span so engine time is visible
// separately from handler time.
func (s *Server) valuate(ctx context.Context, req valuation.Request) (valuation.Result, error) {
	_, span := s.tracer.Start(ctx, "engine.valuate")
	defer span.End()

	res, err := s.engine.Valuate(req)
	if err != nil {
		span.RecordError(err)
	}
	return res, err
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, valuation.Envelope{Success: false, Error: msg})
}

// statusForError maps engine failures onto HTTP statuses. Bad input is the
// caller's fault; a too-small comparable set is a semantically valid but
// unprocessable request.
func statusForError(err error) int {
	var ve *valuation.Error
	if errors.As(err, &ve) {
		switch ve.Code {
		case valuation.CodeInvalidInput:
			return http.StatusBadRequest
		case valuation.CodeInsufficientComparables:
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

func parseInt(value string, def int) int {
	if strings.TrimSpace(value) == "" {
		return def
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return v
}
