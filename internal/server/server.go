// Package server exposes validation, pivoting and run history over HTTP.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/quote-pivot/internal/model"
	"github.com/sells-group/quote-pivot/internal/pipeline"
	"github.com/sells-group/quote-pivot/internal/store"
)

const (
	contentTypeCSV  = "text/csv"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	defaultMaxUpload = 10 << 20
)

// Options configures the HTTP surface.
type Options struct {
	CORSOrigins    []string
	MaxUploadBytes int64
}

// Server routes requests to a pipeline and a run store.
type Server struct {
	pipeline *pipeline.Pipeline
	store    store.Store
	opts     Options
	router   chi.Router
}

// New creates a Server. A nil store serves empty run history.
func New(p *pipeline.Pipeline, st store.Store, opts Options) *Server {
	if st == nil {
		st = store.Nop{}
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUpload
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	s := &Server{pipeline: p, store: st, opts: opts}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-Run-ID", "X-Quote-Errors", "X-Quote-Warnings", "X-Quote-Collisions"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/validate", s.handleValidate)
		r.Post("/pivot", s.handlePivot)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/runs/{id}/quotes", s.handleListQuotes)
	})

	return r
}

type validateResponse struct {
	RunID      string                  `json:"run_id"`
	Records    int                     `json:"records"`
	ReadErrors []string                `json:"read_errors"`
	Validated  []model.ValidatedRecord `json:"validated"`
	Errors     []string                `json:"errors"`
	Warnings   []string                `json:"warnings"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	res, ok := s.run(w, r, nil)
	if !ok {
		return
	}

	resp := validateResponse{
		RunID:      res.RunID,
		Records:    len(res.Read.Records),
		ReadErrors: nonNil(res.Read.Messages()),
		Validated:  res.Outcome.Validated,
		Errors:     nonNil(res.Outcome.Errors),
		Warnings:   nonNil(res.Outcome.Warnings),
	}
	if resp.Validated == nil {
		resp.Validated = []model.ValidatedRecord{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePivot(w http.ResponseWriter, r *http.Request) {
	xlsxOut := r.URL.Query().Get("output") == "xlsx"

	var buf bytes.Buffer
	sink := &pipeline.Sink{Name: "response", Writer: &buf, XLSX: xlsxOut}
	res, ok := s.run(w, r, sink)
	if !ok {
		return
	}

	h := w.Header()
	h.Set("X-Run-ID", res.RunID)
	h.Set("X-Quote-Errors", strconv.Itoa(len(res.Read.Errors)+len(res.Outcome.Errors)))
	h.Set("X-Quote-Warnings", strconv.Itoa(len(res.Outcome.Warnings)))
	h.Set("X-Quote-Collisions", strconv.Itoa(len(res.Grid.Collisions)))
	if xlsxOut {
		h.Set("Content-Type", contentTypeXLSX)
		h.Set("Content-Disposition", `attachment; filename="pivot.xlsx"`)
	} else {
		h.Set("Content-Type", contentTypeCSV+"; charset=utf-8")
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		zap.L().Warn("server: write pivot response", zap.Error(err))
	}
}

// run feeds the request body through the pipeline. Dropped rows never stop
// an HTTP run; they are reported in the response instead.
func (s *Server) run(w http.ResponseWriter, r *http.Request, sink *pipeline.Sink) (*pipeline.Result, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}

	src := pipeline.Source{
		Name:   sourceName(r),
		Reader: bytes.NewReader(data),
		XLSX:   isXLSXRequest(r),
	}
	res, err := s.pipeline.Run(r.Context(), src, sink, pipeline.AlwaysContinue)
	if err != nil {
		zap.L().Error("server: pipeline run failed", zap.String("source", src.Name), zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return nil, false
	}
	return res, true
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		Status: model.RunStatus(q.Get("status")),
		Source: q.Get("source"),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		s.storeError(w, "get run", id, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListQuotes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetRun(r.Context(), id); err != nil {
		s.storeError(w, "get run", id, err)
		return
	}
	quotes, err := s.store.ListQuotes(r.Context(), id)
	if err != nil {
		s.storeError(w, "list quotes", id, err)
		return
	}
	if quotes == nil {
		quotes = []model.ValidatedRecord{}
	}
	writeJSON(w, http.StatusOK, quotes)
}

func (s *Server) storeError(w http.ResponseWriter, action, id string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("run %s not found", id))
		return
	}
	zap.L().Error("server: "+action, zap.String("run_id", id), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "failed to "+action)
}

func sourceName(r *http.Request) string {
	if name := strings.TrimSpace(r.URL.Query().Get("name")); name != "" {
		return name
	}
	return "upload"
}

func isXLSXRequest(r *http.Request) bool {
	if r.URL.Query().Get("format") == "xlsx" {
		return true
	}
	return strings.HasPrefix(r.Header.Get("Content-Type"), contentTypeXLSX)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestID tags each request with an X-Request-ID, keeping one the client sent.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", w.Header().Get("X-Request-ID")),
		)
	})
}
